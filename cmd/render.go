package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/skytree/skytree/internal/render"
)

var renderFetchMedia bool

var renderCmd = &cobra.Command{
	Use:   "render <input-dir> <output-dir>",
	Short: "Convert a downloaded tree's post JSON into Markdown",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolve input dir: %w", err)
		}
		out, err := filepath.Abs(args[1])
		if err != nil {
			return fmt.Errorf("resolve output dir: %w", err)
		}

		r := render.New(osfs.New("/"), render.Config{
			FetchMedia: renderFetchMedia,
			Logger:     logger,
		})
		st, err := r.Run(cmd.Context(), in, out)
		if err != nil {
			return err
		}

		fmt.Printf("Rendered %s documents to %s\n", humanize.Comma(int64(st.Rendered)), out)
		if renderFetchMedia {
			fmt.Printf("Fetched %s media files\n", humanize.Comma(int64(st.MediaFiles)))
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().BoolVar(&renderFetchMedia, "fetch-media", false,
		"Download avatars, thumbnails and images next to the output")
	rootCmd.AddCommand(renderCmd)
}
