package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var postCmd = &cobra.Command{
	Use:   "post <uri>",
	Short: "Download a single post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		env, err := c.Post(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return materialize(env, "post", lastSegment(args[0]))
	},
}

var publishLangs []string

var publishCmd = &cobra.Command{
	Use:   "publish <text>",
	Short: "Create a new post under the logged-in account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		ref, err := c.CreatePost(cmd.Context(), args[0], publishLangs)
		if err != nil {
			return err
		}
		fmt.Printf("Post created: %s\n", ref.URI)
		fmt.Printf("CID: %s\n", ref.CID)
		return nil
	},
}

func init() {
	publishCmd.Flags().StringSliceVar(&publishLangs, "lang", nil,
		"Language tags for the post (repeatable)")
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(publishCmd)
}
