package cmd

import (
	"github.com/spf13/cobra"
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Download your home timeline",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		env, err := c.Timeline(cmd.Context(), limit)
		if err != nil {
			return err
		}
		return materialize(env, "timeline", c.Session().Identifier)
	},
}

func init() {
	rootCmd.AddCommand(timelineCmd)
}
