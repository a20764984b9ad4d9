// framegen — "I'm in the Book!" profile frame generator.
//
// Usage:
//
//	framegen styles
//	framegen render -i <photo> [-s <style>] [-o <file>] [--all]
//	framegen share  -i <photo> [-s <style>] [--qr <file>]
//	framegen serve  [--addr :8080] [--open]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/peicooks/framegen/internal/config"
	"github.com/peicooks/framegen/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "framegen",
	Short: `Create "I'm in the Book!" profile pictures`,
	Long: `framegen composes a photo into one of the PEI Cooks at Home frame styles:
a coloured background, a white border, the photo cropped into a circle and
the caption text. The result is an 800x800 PNG.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		level := cfg.Logging.Level
		if verbose {
			level = zapcore.DebugLevel.String()
		}
		logger, err = logging.New(level, cfg.Logging.Format)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(stylesCmd, renderCmd, shareCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
