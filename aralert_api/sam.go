package aralert_api

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/biogo/hts/bgzf"
	"github.com/biogo/hts/sam"
)

// The number of mandatory fields in a SAM alignment line
const samFieldCount = 11

// The reference name used for unmapped reads
const unmappedRName = "*"

// RecordIterator is a pull based stream of alignment records.
// Next advances the stream and reports whether a record is available,
// Err returns the error that stopped the stream, if any.
type RecordIterator interface {
	Next() bool
	Record() AlignmentRecord
	Err() error
}

// SAMReader reads alignment records from a SAM text stream, skipping the header.
type SAMReader struct {
	scanner *bufio.Scanner
	closers []io.Closer
	line    int
	record  AlignmentRecord
	err     error
}

// NewSAMReader creates a reader over r. The caller keeps ownership of r.
func NewSAMReader(r io.Reader) *SAMReader {
	scanner := bufio.NewScanner(r)
	const maxCapacity = 8 * 1000000 // 8 MB
	scanner.Buffer(make([]byte, 0, 64*1024), maxCapacity)
	return &SAMReader{scanner: scanner}
}

// OpenSAM opens a SAM file for reading. "-" reads from stdin and files
// ending in .gz are decompressed as BGZF.
func OpenSAM(path string) (*SAMReader, error) {
	if path == "-" {
		return NewSAMReader(os.Stdin), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	if !strings.HasSuffix(path, ".gz") {
		reader := NewSAMReader(file)
		reader.closers = []io.Closer{file}
		return reader, nil
	}

	bgReader, err := bgzf.NewReader(file, 1)
	if err != nil {
		file.Close()
		return nil, err
	}
	reader := NewSAMReader(bgReader)
	reader.closers = []io.Closer{bgReader, file}
	return reader, nil
}

// Next reads up to the next alignment line and parses it.
// A malformed line stops the stream for good.
func (r *SAMReader) Next() bool {
	if r.err != nil {
		return false
	}
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSuffix(r.scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "@") {
			continue
		}
		record, err := ParseAlignment(line)
		if err != nil {
			if malformed, ok := err.(*MalformedRecordError); ok {
				malformed.Line = r.line
			}
			r.err = err
			return false
		}
		r.record = record
		return true
	}
	r.err = r.scanner.Err()
	return false
}

// Record returns the record read by the last successful call to Next.
func (r *SAMReader) Record() AlignmentRecord {
	return r.record
}

// Err returns the first error hit while reading, nil at a clean end of data.
func (r *SAMReader) Err() error {
	return r.err
}

// Close releases the underlying file, if the reader opened one.
func (r *SAMReader) Close() error {
	var firstErr error
	for _, closer := range r.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.closers = nil
	return firstErr
}

// ParseAlignment parses one tab delimited alignment line.
// Fields after the 11th are discarded. Integer fields with a sign prefix or
// leading zeros are rejected.
func ParseAlignment(line string) (AlignmentRecord, error) {
	data := strings.SplitN(line, "\t", samFieldCount+1)
	if len(data) < samFieldCount {
		return AlignmentRecord{}, &MalformedRecordError{
			Field: "line",
			Msg:   "expected " + strconv.Itoa(samFieldCount) + " tab delimited fields, found " + strconv.Itoa(len(data)),
		}
	}

	var record AlignmentRecord
	record.QName = data[0]
	flag, err := parseUint(data[1], "FLAG", 16)
	if err != nil {
		return AlignmentRecord{}, err
	}
	record.Flag = sam.Flags(flag)
	record.RName = data[2]
	pos, err := parseUint(data[3], "POS", 32)
	if err != nil {
		return AlignmentRecord{}, err
	}
	record.Pos = uint32(pos)
	mapq, err := parseUint(data[4], "MAPQ", 8)
	if err != nil {
		return AlignmentRecord{}, err
	}
	record.MapQ = uint8(mapq)
	record.Cigar = data[5]
	record.RNext = data[6]
	pnext, err := parseUint(data[7], "PNEXT", 32)
	if err != nil {
		return AlignmentRecord{}, err
	}
	record.PNext = uint32(pnext)
	tlen, err := strconv.ParseInt(data[8], 10, 32)
	if err != nil {
		return AlignmentRecord{}, &MalformedRecordError{Field: "TLEN", Msg: err.Error()}
	}
	if strconv.FormatInt(tlen, 10) != data[8] {
		return AlignmentRecord{}, nonCanonical("TLEN", data[8])
	}
	record.TLen = int32(tlen)
	record.Seq = data[9]
	record.Qual = data[10]

	return record, nil
}

// parseUint only accepts the canonical decimal form, so that String gives
// back the exact field text.
func parseUint(value string, field string, bitSize int) (uint64, error) {
	parsed, err := strconv.ParseUint(value, 10, bitSize)
	if err != nil {
		return 0, &MalformedRecordError{Field: field, Msg: err.Error()}
	}
	if strconv.FormatUint(parsed, 10) != value {
		return 0, nonCanonical(field, value)
	}
	return parsed, nil
}

func nonCanonical(field string, value string) *MalformedRecordError {
	return &MalformedRecordError{Field: field, Msg: "integer " + strconv.Quote(value) + " is not in canonical form"}
}

// IsUnmapped reports whether the record carries the unmapped reference name.
func (record AlignmentRecord) IsUnmapped() bool {
	return record.RName == unmappedRName
}

// ParseCigar decodes the CIGAR field. A "*" CIGAR gives a nil Cigar.
func (record AlignmentRecord) ParseCigar() (sam.Cigar, error) {
	return sam.ParseCigar([]byte(record.Cigar))
}

// String formats the 11 mandatory fields back into a SAM line without newline.
func (record AlignmentRecord) String() string {
	out := make([]byte, 0, 64+len(record.Seq)+len(record.Qual))
	out = append(append(out, record.QName...), '\t')
	out = append(strconv.AppendUint(out, uint64(record.Flag), 10), '\t')
	out = append(append(out, record.RName...), '\t')
	out = append(strconv.AppendUint(out, uint64(record.Pos), 10), '\t')
	out = append(strconv.AppendUint(out, uint64(record.MapQ), 10), '\t')
	out = append(append(out, record.Cigar...), '\t')
	out = append(append(out, record.RNext...), '\t')
	out = append(strconv.AppendUint(out, uint64(record.PNext), 10), '\t')
	out = append(strconv.AppendInt(out, int64(record.TLen), 10), '\t')
	out = append(append(out, record.Seq...), '\t')
	out = append(out, record.Qual...)
	return string(out)
}

// MappedReads passes through only the records of its source that are mapped.
type MappedReads struct {
	source RecordIterator
}

// FindMappedReads wraps source so that unmapped records are skipped.
func FindMappedReads(source RecordIterator) *MappedReads {
	return &MappedReads{source: source}
}

func (m *MappedReads) Next() bool {
	for m.source.Next() {
		if !m.source.Record().IsUnmapped() {
			return true
		}
	}
	return false
}

func (m *MappedReads) Record() AlignmentRecord {
	return m.source.Record()
}

func (m *MappedReads) Err() error {
	return m.source.Err()
}
