package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MadhavanR1204/toonzy/internal/api"
	"github.com/MadhavanR1204/toonzy/internal/logger"
	"github.com/MadhavanR1204/toonzy/internal/reader"
	"github.com/MadhavanR1204/toonzy/internal/render"
	"github.com/MadhavanR1204/toonzy/internal/ui"
	"github.com/MadhavanR1204/toonzy/internal/ui/terminal"
)

var chapterFlag int

var readCmd = &cobra.Command{
	Use:   "read [address]",
	Short: "Open the reader",
	Long: `Open the chapter list, or a chapter directly when --chapter or an
address carrying a chapter query parameter is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRead,
}

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, readCmd} {
		cmd.Flags().IntVarP(&chapterFlag, "chapter", "c", 0, "chapter to open")
		cmd.Flags().StringVar(&imagesFlag, "images", "", "image protocol: auto, kitty, iterm, sixel or blocks")
	}
}

func runRead(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogFile, debug)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer log.Close()

	mode, err := terminal.ParseMode(cfg.Images)
	if err != nil {
		return err
	}

	chapter := chapterFlag
	if len(args) == 1 {
		chapter = reader.ParseNavigation(args[0])
	}

	log.Info("starting reader",
		zap.String("source", cfg.Source),
		zap.Int("chapters", cfg.TotalChapters),
		zap.Int("chapter", chapter),
		zap.Stringer("images", mode),
	)

	queue := render.NewQueue(render.DefaultQueueOptions(), render.NewCache(0), log.Named("queue"))
	defer queue.Close()

	app := ui.NewApp(cfg, ui.Options{
		Client:  api.NewClient(cfg.Token, cfg.CacheDir),
		Queue:   queue,
		Mode:    mode,
		Log:     log.Logger,
		Chapter: chapter,
	})
	defer app.Close()

	p := tea.NewProgram(app,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}
