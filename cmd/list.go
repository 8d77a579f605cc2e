package cmd

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <uri>",
	Short: "Download a user list with its members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		env, err := c.UserList(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		return materialize(env, "list", lastSegment(args[0]))
	},
}

var userListsCmd = &cobra.Command{
	Use:   "user-lists <actor>",
	Short: "Download the lists an actor has created",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		env, err := c.UserLists(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		return materialize(env, "user-lists", args[0])
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(userListsCmd)
}
