package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/ZanzyTHEbar/text-inference/tinfer/backend"
	"github.com/ZanzyTHEbar/text-inference/tinfer/config"
	"github.com/ZanzyTHEbar/text-inference/tinfer/decode"
	"github.com/ZanzyTHEbar/text-inference/tinfer/pipeline"
	"github.com/ZanzyTHEbar/text-inference/tinfer/tokenizer"
)

func classifyCmd() *cli.Command {
	var labelMapPath string

	flags := append([]cli.Flag{}, commonFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "labels",
			Usage:       "path to a JSON label map, e.g. {\"0\": \"dissimilar\", \"1\": \"similar\"}",
			Destination: &labelMapPath,
		},
	)

	return &cli.Command{
		Name:      "classify",
		Usage:     "Classify texts read from stdin (one per line; tab-separated text pairs)",
		Flags:     flags,
		ArgsUsage: " ",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load config: %v", err), 1)
			}
			if labelMapPath != "" {
				cfg.Model.LabelMapPath = labelMapPath
			}
			if cfg.Model.LabelMapPath == "" {
				return cli.Exit("error: a label map is required (--labels)", 1)
			}
			labels, err := config.LoadLabelMap(cfg.Model.LabelMapPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			texts, pairs, err := readInputLines(os.Stdin)
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
				preds, err := timed.PredictLabels(texts, pairs, labels)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				printPredictions(texts, preds)
				if reportPath != "" {
					if err := timed.WriteReport(reportPath); err != nil {
						return cli.Exit(fmt.Sprintf("error: write report: %v", err), 1)
					}
				}
				return nil
			}

			preds, err := p.PredictLabels(texts, pairs, labels)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			printPredictions(texts, preds)
			return nil
		},
	}
}

func printPredictions(texts []string, preds []decode.Prediction) {
	for i, pred := range preds {
		fmt.Printf("Data: %s \t Label: %s \t Score: %.4f\n", texts[i], pred.Label, pred.Score)
	}
}

// readInputLines reads one example per line; a tab splits text and text pair.
func readInputLines(f *os.File) (texts, pairs []string, err error) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	hasPairs := false
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		text, pair, found := strings.Cut(line, "\t")
		texts = append(texts, text)
		pairs = append(pairs, pair)
		if found {
			hasPairs = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	if !hasPairs {
		pairs = nil
	}
	return texts, pairs, nil
}

func newTokenizer(cfg *config.Config) (tokenizer.Tokenizer, error) {
	vocab := cfg.Model.VocabPath
	if vocab == "" {
		return nil, fmt.Errorf("a vocab file is required (--vocab)")
	}
	if swp, err := tokenizer.NewSugarWordPiece(vocab, cfg.Predict.MaxSeqLen); err == nil {
		return swp, nil
	}
	return tokenizer.LoadWordPieceFromVocab(vocab)
}
