package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ZanzyTHEbar/text-inference/tinfer/backend"
	"github.com/ZanzyTHEbar/text-inference/tinfer/pipeline"
)

func generateCmd() *cli.Command {
	flags := append([]cli.Flag{}, commonFlags()...)

	return &cli.Command{
		Name:      "generate",
		Usage:     "Generate text for inputs read from stdin, one per line",
		Flags:     flags,
		ArgsUsage: " ",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load config: %v", err), 1)
			}

			texts, _, err := readInputLines(os.Stdin)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read input: %v", err), 1)
			}

			tok, err := newTokenizer(cfg)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: tokenizer: %v", err), 1)
			}
			rt := backend.DefaultRuntime()
			defer func() { _ = rt.Teardown() }()

			p, err := pipeline.New(cfg, tok, rt)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer p.Close()

			if cfg.Predict.Benchmark {
				timed := pipeline.NewTimed(p)
				results, err := timed.GenerateText(texts)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				printGenerations(texts, results)
				if reportPath != "" {
					if err := timed.WriteReport(reportPath); err != nil {
						return cli.Exit(fmt.Sprintf("error: write report: %v", err), 1)
					}
				}
				return nil
			}

			results, err := p.GenerateText(texts)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			printGenerations(texts, results)
			return nil
		},
	}
}

func printGenerations(texts, results []string) {
	for i, result := range results {
		fmt.Printf("Model input: %s\nResult: %s\n", texts[i], result)
	}
}
