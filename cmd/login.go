package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skytree/skytree/internal/bsky"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store a session token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Identifier == "" {
			return fmt.Errorf("no account given: use --user, SKYTREE_ID or the config file")
		}
		if cfg.Password == "" {
			return fmt.Errorf("no password given: use --password, SKYTREE_PASSWD or the config file")
		}
		c := bsky.New(bsky.Options{Service: cfg.Service, Logger: logger})
		sess, err := c.Login(cmd.Context(), cfg.Identifier, cfg.Password)
		if err != nil {
			return err
		}
		if err := bsky.NewStore(cfg.TokensDir).Save(sess); err != nil {
			return err
		}
		fmt.Printf("Logged in as %s (%s)\n", sess.Handle, sess.Did)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := bsky.NewStore(cfg.TokensDir)
		identifier := cfg.Identifier
		if identifier == "" {
			last, err := store.LastIdentifier()
			if err != nil {
				return fmt.Errorf("no stored session to remove")
			}
			identifier = last
		}
		if err := store.Delete(identifier); err != nil {
			return err
		}
		fmt.Printf("Removed session for %s\n", identifier)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
