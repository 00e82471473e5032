package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MadhavanR1204/toonzy/internal/config"
)

var (
	cfgFile string
	debug   bool

	// Overrides for the loaded configuration
	sourceFlag   string
	chaptersFlag int
	imagesFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "toonzy [address]",
	Short: "Continuous-scroll comic reader for the terminal",
	Long: `toonzy reads a series of comic chapters (CBZ or PDF) as one vertical
strip of pages. Pages render lazily as they scroll into view, and the
reader moves on to the next chapter from the last page.

An address such as "reader.html?chapter=3" opens that chapter directly.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRead,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default ~/.config/toonzy/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write debug entries to the log file")
	rootCmd.PersistentFlags().StringVarP(&sourceFlag, "source", "s", "", "chapter source pattern, e.g. ./chapters/{chapter}.cbz")
	rootCmd.PersistentFlags().IntVar(&chaptersFlag, "chapters", 0, "total number of chapters")

	rootCmd.AddCommand(readCmd, fetchCmd, configCmd)
}

// loadConfig loads the configuration and applies flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if sourceFlag != "" {
		cfg.Source = sourceFlag
	}
	if chaptersFlag > 0 {
		cfg.TotalChapters = chaptersFlag
	}
	if imagesFlag != "" {
		cfg.Images = imagesFlag
	}
	return cfg, cfg.Validate()
}
