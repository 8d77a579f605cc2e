package cmd

import (
	"github.com/spf13/cobra"
)

var feedFilter string

var feedCmd = &cobra.Command{
	Use:   "feed <actor>",
	Short: "Download an author feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		env, err := c.AuthorFeed(cmd.Context(), args[0], limit, feedFilter)
		if err != nil {
			return err
		}
		return materialize(env, "feed", args[0])
	},
}

var customFeedCmd = &cobra.Command{
	Use:   "custom-feed <uri>",
	Short: "Download a feed generator's feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		env, err := c.CustomFeed(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		return materialize(env, "custom-feed", lastSegment(args[0]))
	},
}

func init() {
	feedCmd.Flags().StringVar(&feedFilter, "filter", "posts_with_replies",
		"Post filter: posts_with_replies, posts_no_replies, posts_with_media or posts_and_author_threads")
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(customFeedCmd)
}
