package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/skytree/skytree/internal/config"
)

var (
	cfgPath       string
	outputDir     string
	maxDepth      int
	limit         int
	user          string
	password      string
	verbose       bool
	originalMedia bool
	simpleMode    bool

	// Resolved in setup, shared by every command.
	cfg         config.Config
	logger      *zap.Logger
	maxDepthSet bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "Path to config file (default ./skytree.hcl)")
	pf.StringVarP(&outputDir, "output", "o", "", "Output directory (default ./downloads)")
	pf.IntVarP(&maxDepth, "max-depth", "d", 0, "Maximum folder depth before subtrees stay as JSON files")
	pf.IntVarP(&limit, "limit", "l", 0, "Maximum number of items to download (0 = everything)")
	pf.StringVarP(&user, "user", "u", "", "Account identifier (handle or email)")
	pf.StringVarP(&password, "password", "p", "", "App password for login")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	pf.BoolVar(&originalMedia, "original-media", false, "Keep full-size media URLs instead of rewriting to thumbnails")
	pf.BoolVar(&simpleMode, "simple", false, "Plain tree mode: no filtering, no category folders")
}

var rootCmd = &cobra.Command{
	Use:   "skytree",
	Short: "Download Bluesky entities and save them as a folder tree",
	Long: `skytree pulls profiles, feeds, threads and lists from the Bluesky API
and materializes the JSON as a directory tree: mappings become folders,
scalars become small typed files, and list items get stable descriptive
names. The result is a snapshot you can browse, grep and diff with
ordinary shell tools.`,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// setup builds the logger and resolves the effective configuration:
// built-in defaults, then the config file, then environment, then flags.
func setup(cmd *cobra.Command, args []string) error {
	zc := zap.NewProductionConfig()
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	var err error
	logger, err = zc.Build()
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	cfg, err = config.Load(cfgPath)
	if err != nil {
		return err
	}
	flags := cmd.Root().PersistentFlags()
	if flags.Changed("output") {
		cfg.OutputDir = outputDir
	}
	maxDepthSet = flags.Changed("max-depth")
	if maxDepthSet {
		cfg.MaxDepth = maxDepth
	}
	if user != "" {
		cfg.Identifier = user
	}
	if password != "" {
		cfg.Password = password
	}
	if originalMedia {
		cfg.OriginalMedia = true
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
