package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Config path: %s\n", cfg.Path())
		fmt.Printf("Source:      %s\n", cfg.Source)
		fmt.Printf("Chapters:    %d\n", cfg.TotalChapters)
		if cfg.Catalog != "" {
			fmt.Printf("Catalog:     %s\n", cfg.Catalog)
		}
		fmt.Printf("Images:      %s\n", cfg.Images)
		fmt.Printf("Theme:       %s\n", cfg.Theme)
		fmt.Printf("Cache dir:   %s\n", cfg.CacheDir)
		fmt.Printf("Log file:    %s\n", cfg.LogFile)
		fmt.Printf("Token set:   %v\n", cfg.Token != "")
		if last := cfg.LastRead; last.Chapter > 0 {
			fmt.Printf("Last read:   chapter %d, page %d\n", last.Chapter, last.Page)
		}
		return nil
	},
}
