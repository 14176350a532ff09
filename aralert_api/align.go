package aralert_api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/dnamazing/aralert/logger"
	"go.uber.org/zap"
)

// Aligner modes
const (
	AlignModeShort = "short"
	AlignModeLong  = "long"
)

// The files bwa index writes next to the reference
var bwaIndexSuffixes = []string{".amb", ".ann", ".bwt", ".pac", ".sa"}

// Aligner runs an external aligner against the CARD reference and exposes its
// SAM output as a stream.
type Aligner struct {
	Executable string
	Mode       string
	Reference  string
	Threads    int
}

// NewAligner creates an aligner for the given reference from the config.
func NewAligner(config AlignerConfig, reference string) *Aligner {
	return &Aligner{
		Executable: config.Executable,
		Mode:       config.Mode,
		Reference:  reference,
		Threads:    config.Threads,
	}
}

// CheckPrerequisites makes sure the reference and its index are present.
// bwa needs the index files next to the reference, minimap2 indexes on the fly.
func (a *Aligner) CheckPrerequisites(reads ...string) error {
	required := []string{a.Reference}
	if a.Mode == AlignModeShort {
		for _, suffix := range bwaIndexSuffixes {
			required = append(required, a.Reference+suffix)
		}
	}
	required = append(required, reads...)

	for _, path := range required {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return &MissingPrerequisiteError{Path: path}
		} else if err != nil {
			return err
		}
	}
	return nil
}

// Args returns the aligner command line, without the executable.
func (a *Aligner) Args(reads ...string) []string {
	threads := strconv.Itoa(max(a.Threads, 1))
	var args []string
	if a.Mode == AlignModeLong {
		// bwa index is not used for long reads, map-ont covers nanopore data
		args = []string{"-a", "-x", "map-ont", "-t", threads, a.Reference}
	} else {
		args = []string{"mem", "-t", threads, a.Reference}
	}
	return append(args, reads...)
}

// Align starts the aligner and returns its standard output. Closing the
// output waits for the aligner and reports a failed exit, Abort kills it.
func (a *Aligner) Align(ctx context.Context, reads ...string) (*AlignerOutput, error) {
	if len(reads) == 0 {
		return nil, errors.New("no read files given to align")
	}
	if err := a.CheckPrerequisites(reads...); err != nil {
		return nil, err
	}

	args := a.Args(reads...)
	cmd := exec.CommandContext(ctx, a.Executable, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	// child processes holding on to the pipes must not keep Wait blocked
	cmd.WaitDelay = alignerWaitDelay
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	logger.Info("Starting aligner", zap.String("cmd", a.Executable+" "+strings.Join(args, " ")))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to execute %s: %w", a.Executable, err)
	}
	return &AlignerOutput{ReadCloser: stdout, cmd: cmd, stderr: stderr}, nil
}

// How long Wait keeps copying output after the aligner exited
const alignerWaitDelay = time.Second

// AlignerOutput is the SAM output of a running aligner.
type AlignerOutput struct {
	io.ReadCloser
	cmd    *exec.Cmd
	stderr *bytes.Buffer
}

// Close drains what is left so the aligner is not killed by a broken pipe,
// then waits for it to exit. Use it once the output was read to the end.
func (o *AlignerOutput) Close() error {
	_, _ = io.Copy(io.Discard, o.ReadCloser)
	if err := o.cmd.Wait(); err != nil {
		return fmt.Errorf("%s failed: %w - %s", o.cmd.Path, err, strings.TrimSpace(o.stderr.String()))
	}
	return nil
}

// Abort kills the aligner without reading the rest of its output and waits
// for it to exit.
func (o *AlignerOutput) Abort() {
	if err := o.cmd.Process.Kill(); err != nil {
		logger.Debug("Aligner already stopped", zap.Error(err))
	}
	_ = o.cmd.Wait()
	logger.Warn("Aborted aligner", zap.String("cmd", o.cmd.Path))
}

// StreamAlignment runs the aligner and hands its output to process as a
// record stream. A failing process kills the aligner instead of waiting for
// the rest of the alignment.
func (a *Aligner) StreamAlignment(ctx context.Context, reads []string, process func(RecordIterator) error) error {
	output, err := a.Align(ctx, reads...)
	if err != nil {
		return err
	}
	if err := process(NewSAMReader(output)); err != nil {
		output.Abort()
		return err
	}
	return output.Close()
}
