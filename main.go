package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "reviewbot",
		Usage: "Translate, categorize and summarize app-store reviews",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to config.yaml"},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Process one review window",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Usage: "Input CSV file with reviews"},
					&cli.StringFlag{Name: "startDate", Usage: "Start date of review window (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "endDate", Usage: "End date of review window (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "summaryFile", Usage: "Output JSON with per-window summaries", Required: true},
				},
				Action: runAction,
			},
			{
				Name:  "serve",
				Usage: "Keep processing the next derived window on the configured schedule",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Usage: "Input CSV file with reviews"},
					&cli.StringFlag{Name: "summaryFile", Usage: "Output JSON with per-window summaries", Required: true},
				},
				Action: serveAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("reviewbot: %v", err)
	}
}

func buildDeps(cfg Config, input, summaryFile string) (RunDeps, error) {
	deps := RunDeps{
		SummaryPath: summaryFile,
		NewGateway: func(cfg Config, vocab *Vocabulary) (ModelGateway, error) {
			return NewLLMClient(cfg, vocab)
		},
	}
	if input != "" {
		deps.Source = CSVReviews{Path: input}
	} else {
		return RunDeps{}, fmt.Errorf("no review source configured: --input is required until a warehouse source is wired in")
	}
	if cfg.LanguageCheck {
		deps.Checker = NewLanguageChecker()
	}
	return deps, nil
}

func runAction(c *cli.Context) error {
	cfg := LoadConfig(c.String("config"))
	deps, err := buildDeps(cfg, c.String("input"), c.String("summaryFile"))
	if err != nil {
		return err
	}

	entries, err := LoadSummaryLog(deps.SummaryPath)
	if err != nil {
		return err
	}
	w, err := ResolveWindow(c.String("startDate"), c.String("endDate"), entries)
	if err != nil {
		return err
	}
	return RunWindow(c.Context, cfg, w, deps)
}

func serveAction(c *cli.Context) error {
	cfg := LoadConfig(c.String("config"))
	if cfg.Schedule == "" {
		return fmt.Errorf("schedule must be set in config for serve mode")
	}
	deps, err := buildDeps(cfg, c.String("input"), c.String("summaryFile"))
	if err != nil {
		return err
	}
	return RunScheduler(c.Context, cfg, deps)
}
