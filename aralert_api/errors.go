package aralert_api

import (
	"fmt"
	"os"
)

// MalformedRecordError is returned when an alignment line or its reference
// name does not follow the expected layout. It aborts the whole run.
type MalformedRecordError struct {
	Line  int    // 1-based line number, 0 when unknown
	Field string // the offending field
	Msg   string
}

func (e *MalformedRecordError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed record on line %d (%s): %s", e.Line, e.Field, e.Msg)
	}
	return fmt.Sprintf("malformed record (%s): %s", e.Field, e.Msg)
}

// OntologyLoadError is returned when the catalog or the relationship graph
// cannot be read or parsed.
type OntologyLoadError struct {
	Path string
	Err  error
}

func (e *OntologyLoadError) Error() string {
	return fmt.Sprintf("failed to load ontology document %s: %v", e.Path, e.Err)
}

func (e *OntologyLoadError) Unwrap() error {
	return e.Err
}

// UnknownAccessionError is returned when an accession is not in the catalog.
type UnknownAccessionError struct {
	Accession string
}

func (e *UnknownAccessionError) Error() string {
	return fmt.Sprintf("unknown accession ARO:%s", e.Accession)
}

// MissingPrerequisiteError is returned when a reference or index file is absent.
type MissingPrerequisiteError struct {
	Path string
}

func (e *MissingPrerequisiteError) Error() string {
	return fmt.Sprintf("missing prerequisite: %s", e.Path)
}

func (e *MissingPrerequisiteError) Unwrap() error {
	return os.ErrNotExist
}
