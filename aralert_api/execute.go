package aralert_api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dnamazing/aralert/logger"
	"github.com/olekukonko/tablewriter"
	cli "github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// Pipeline ties the loaded ontology to the report and alert outputs.
type Pipeline struct {
	// The ontology used for every lookup, read-only
	Ontology *Ontology

	// The column delimiter of written reports
	Delimiter rune

	// Where alerts go, nil to skip alerting
	Notifier Notifier

	// Where runs are recorded, nil to skip recording
	History *History

	// Where the report table is printed when requested
	Stdout io.Writer
}

// The per sample settings of one pipeline run
type ProcessOptions struct {
	// The sample name used in the alert and the history
	Sample string

	// The report location, empty to skip writing the report
	Output string

	// Print the report as a table to Stdout
	Print bool
}

// Process aggregates the alignments of one sample, writes its report, sends
// the alert and records the run.
func (p *Pipeline) Process(ctx context.Context, alignments RecordIterator, options ProcessOptions) (*Aggregation, error) {
	runID := NewRunID()
	started := time.Now()

	aggregation, err := Aggregate(FindMappedReads(alignments), p.Ontology)
	if err != nil {
		return nil, err
	}

	report := BuildReport(aggregation)
	if options.Output != "" {
		if err := SaveReport(options.Output, report, p.Delimiter); err != nil {
			return nil, err
		}
		logger.Info("Wrote report", zap.String("path", options.Output), zap.Int("rows", len(report.Rows)))
	}
	if options.Print && p.Stdout != nil {
		PrintReport(p.Stdout, report)
	}

	if len(aggregation.Classes) == 0 {
		logger.Info("No resistance detected", zap.String("sample", options.Sample))
	}

	var notifyErr error
	if p.Notifier != nil {
		notifyErr = p.Notifier.Notify(ctx, Alert{
			RunID:      runID,
			Sample:     options.Sample,
			Classes:    aggregation.Classes,
			ReportPath: options.Output,
		})
	}

	if p.History != nil {
		_, err := p.History.Record(Run{
			ID:         runID,
			Sample:     options.Sample,
			CreatedAt:  started,
			Genes:      len(aggregation.Genes),
			Reads:      aggregation.ReadCount(),
			Classes:    aggregation.Classes,
			ReportPath: options.Output,
		})
		if err != nil {
			return aggregation, err
		}
	}

	return aggregation, notifyErr
}

// ReportCommand processes an existing SAM file.
func ReportCommand(Cctx *cli.Context) error {
	input := Cctx.String("aln")
	sample := Cctx.String("sample")
	if sample == "" {
		sample = SampleName(input)
	}

	return withPipeline(Cctx, func(pipeline *Pipeline, config *Config) error {
		reader, err := OpenSAM(input)
		if err != nil {
			return fmt.Errorf("failed to open the alignment file: %w", err)
		}
		defer reader.Close()

		return runSample(Cctx, pipeline, config, reader, sample)
	}, nil)
}

// RunCommand aligns reads against the reference with the external aligner and
// processes its output as it streams in.
func RunCommand(Cctx *cli.Context) error {
	reads := Cctx.StringSlice("reads")
	sample := Cctx.String("sample")
	if sample == "" && len(reads) > 0 {
		sample = SampleName(reads[0])
	}

	var aligner *Aligner
	precheck := func(config *Config) error {
		aligner = NewAligner(config.Aligner, Cctx.String("reference"))
		return aligner.CheckPrerequisites(reads...)
	}

	return withPipeline(Cctx, func(pipeline *Pipeline, config *Config) error {
		return aligner.StreamAlignment(Cctx.Context, reads, func(alignments RecordIterator) error {
			return runSample(Cctx, pipeline, config, alignments, sample)
		})
	}, precheck)
}

// HistoryCommand prints the most recent runs.
func HistoryCommand(Cctx *cli.Context) error {
	history, err := OpenHistory(Cctx.String("history"))
	if err != nil {
		return err
	}
	defer history.Close()

	runs, err := history.List(Cctx.Int("limit"))
	if err != nil {
		return err
	}
	PrintRuns(Cctx.App.Writer, runs)
	return nil
}

// PrintRuns renders runs as a terminal table.
func PrintRuns(w io.Writer, runs []Run) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Run", "Sample", "Date", "Genes", "Reads", "Classes", "Report"})
	table.SetAutoWrapText(false)
	for _, run := range runs {
		table.Append([]string{
			run.ID,
			run.Sample,
			run.CreatedAt.Format(time.RFC3339),
			strconv.Itoa(run.Genes),
			strconv.Itoa(run.Reads),
			strings.Join(run.Classes, ", "),
			run.ReportPath,
		})
	}
	table.Render()
}

// withPipeline reads the config, runs the optional precheck before the
// ontology is loaded, then hands a ready pipeline to action.
func withPipeline(Cctx *cli.Context, action func(*Pipeline, *Config) error, precheck func(*Config) error) error {
	config, err := ReadConfig(Cctx.String("config"))
	if err != nil {
		return err
	}
	if precheck != nil {
		if err := precheck(config); err != nil {
			return err
		}
	}

	catalogPath := Cctx.String("aro-json")
	graphPath := Cctx.String("aro-obo")
	if graphPath == "" {
		graphPath = DefaultGraphPath(catalogPath)
	}
	ontology, err := LoadOntology(catalogPath, graphPath)
	if err != nil {
		return err
	}

	pipeline := &Pipeline{
		Ontology:  ontology,
		Delimiter: config.ReportDelimiter(),
		Stdout:    Cctx.App.Writer,
	}

	if Cctx.Bool("notify") {
		notifiers := config.Notifiers()
		if len(notifiers) == 0 {
			return errors.New("--notify is set but no sms or email recipients are configured")
		}
		pipeline.Notifier = MultiNotifier(notifiers)
	}

	if path := Cctx.String("history"); path != "" {
		history, err := OpenHistory(path)
		if err != nil {
			return err
		}
		defer history.Close()
		pipeline.History = history
	}

	return action(pipeline, config)
}

func runSample(Cctx *cli.Context, pipeline *Pipeline, config *Config, alignments RecordIterator, sample string) error {
	output := Cctx.String("output")
	if output == "" {
		output = sample + reportExtension(config.ReportDelimiter())
	}

	aggregation, err := pipeline.Process(Cctx.Context, alignments, ProcessOptions{
		Sample: sample,
		Output: output,
		Print:  Cctx.Bool("print"),
	})
	if err != nil {
		return err
	}

	if len(aggregation.Classes) == 0 {
		fmt.Fprintf(Cctx.App.Writer, "No AR genes found in sample %s.\n", sample)
	} else {
		fmt.Fprintf(Cctx.App.Writer, "Sample %s may resist: %s\n", sample, strings.Join(aggregation.Classes, ", "))
	}
	return nil
}

// SampleName derives a sample name from an input path, reads/S1.fastq.gz -> S1
func SampleName(path string) string {
	if path == "" || path == "-" {
		return "stdin"
	}
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".gz")
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func reportExtension(delimiter rune) string {
	if delimiter == '\t' {
		return ".tsv"
	}
	return ".csv"
}

// exists reports whether path exists, used by the CLI flag validation
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ValidateFile is a flag action that fails when the file does not exist.
func ValidateFile(Cctx *cli.Context, path string) error {
	if path == "-" || exists(path) {
		return nil
	}
	return cli.Exit("File '"+path+"' does not exist", 1)
}
