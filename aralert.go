package main

import (
	"log"
	"os"

	"github.com/dnamazing/aralert/aralert_api"
	"github.com/dnamazing/aralert/logger"
	cli "github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.New(os.Stderr, "", 0).Fatal(err)
	}
}

// Flags shared by every command that produces a report
func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "aro-json",
			Aliases:  []string{"j"},
			Usage:    "Path to the ARO catalog (aro.json)",
			Required: true,
			Category: "Required",
			Action:   aralert_api.ValidateFile,
		},
		&cli.StringFlag{
			Name:     "aro-obo",
			Aliases:  []string{"b"},
			Usage:    "Path to the ARO relationship graph, defaults to the catalog path with an .obo extension",
			Category: "Optional",
		},
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    "The location of the report, defaults to <sample>.csv",
			Category: "Optional",
		},
		&cli.StringFlag{
			Name:     "sample",
			Aliases:  []string{"s"},
			Usage:    "The sample name, defaults to the input file name without extension",
			Category: "Optional",
		},
		&cli.BoolFlag{
			Name:     "print",
			Aliases:  []string{"p"},
			Usage:    "Print the report as a table",
			Category: "Optional",
		},
		&cli.BoolFlag{
			Name:     "notify",
			Aliases:  []string{"n"},
			Usage:    "Send the alert to the SMS and email recipients of the config",
			Category: "Optional",
		},
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    "Configuration file (YAML) with aligner, report and notification settings",
			Category: "Optional",
			Action:   aralert_api.ValidateFile,
		},
		&cli.StringFlag{
			Name:     "history",
			Usage:    "SQLite database to record the run in",
			Category: "Optional",
		},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:            "aralert",
		Usage:           "Report the antibiotic classes a sample may resist from alignments against CARD",
		HideHelpCommand: true,
		Version:         "0.1.0dev",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug output",
			},
		},
		Before: func(Cctx *cli.Context) error {
			level := zapcore.InfoLevel
			if Cctx.Bool("verbose") {
				level = zapcore.DebugLevel
			}
			return logger.InitLogger(level)
		},
		After: func(Cctx *cli.Context) error {
			_ = logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "report",
				Usage: "Build the resistance report from a SAM alignment to CARD",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "aln",
						Aliases:  []string{"a"},
						Usage:    "SAM alignment to CARD, '-' reads from stdin, .gz is read as BGZF",
						Required: true,
						Category: "Required",
						Action:   aralert_api.ValidateFile,
					},
				}, reportFlags()...),
				Action: func(Cctx *cli.Context) error {
					if err := aralert_api.ReportCommand(Cctx); err != nil {
						return cli.Exit(err, 1)
					}
					return nil
				},
			},
			{
				Name:  "run",
				Usage: "Align reads to CARD with the external aligner and build the resistance report",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "reference",
						Aliases:  []string{"r"},
						Usage:    "The indexed CARD nucleotide reference",
						Required: true,
						Category: "Required",
					},
					&cli.StringSliceFlag{
						Name:     "reads",
						Aliases:  []string{"i"},
						Usage:    "Read file(s) to align, give twice for paired-end reads",
						Required: true,
						Category: "Required",
					},
				}, reportFlags()...),
				Action: func(Cctx *cli.Context) error {
					if err := aralert_api.RunCommand(Cctx); err != nil {
						return cli.Exit(err, 1)
					}
					return nil
				},
			},
			{
				Name:  "history",
				Usage: "List previously processed samples",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "history",
						Usage:    "SQLite database the runs were recorded in",
						Required: true,
						Category: "Required",
						Action:   aralert_api.ValidateFile,
					},
					&cli.IntFlag{
						Name:     "limit",
						Usage:    "The maximum number of runs to list",
						Value:    20,
						Category: "Optional",
					},
				},
				Action: func(Cctx *cli.Context) error {
					if err := aralert_api.HistoryCommand(Cctx); err != nil {
						return cli.Exit(err, 1)
					}
					return nil
				},
			},
		},
	}
}
