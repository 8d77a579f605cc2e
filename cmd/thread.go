package cmd

import (
	"github.com/spf13/cobra"
)

var (
	threadDepth        int
	threadParentHeight int
)

var threadCmd = &cobra.Command{
	Use:   "thread <uri>",
	Short: "Download a post's full conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		env, err := c.Thread(cmd.Context(), args[0], threadDepth, threadParentHeight)
		if err != nil {
			return err
		}
		return materialize(env, "thread", lastSegment(args[0]))
	},
}

func init() {
	threadCmd.Flags().IntVar(&threadDepth, "depth", 6, "Reply depth to fetch below the post")
	threadCmd.Flags().IntVar(&threadParentHeight, "parent-height", 80, "Ancestor posts to fetch above the post")
	rootCmd.AddCommand(threadCmd)
}
