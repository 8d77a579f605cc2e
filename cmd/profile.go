package cmd

import (
	"github.com/spf13/cobra"

	"github.com/skytree/skytree/internal/value"
)

var profileFull bool

var profileCmd = &cobra.Command{
	Use:   "profile <actor>",
	Short: "Download a user profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		actor := args[0]
		var env value.Value
		if profileFull {
			env, err = c.Bundle(cmd.Context(), actor, limit)
		} else {
			env, err = c.Profile(cmd.Context(), actor)
		}
		if err != nil {
			return err
		}
		return materialize(env, "profile", actor)
	},
}

func init() {
	profileCmd.Flags().BoolVar(&profileFull, "full", false,
		"Also download posts, likes, followers and follows")
	rootCmd.AddCommand(profileCmd)
}
