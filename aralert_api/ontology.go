package aralert_api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dnamazing/aralert/logger"
	"go.uber.org/zap"
)

// Ontology is a read-only view of the ARO: the gene/term catalog plus the
// typed relations between terms. It is safe for concurrent readers.
type Ontology struct {
	catalog map[string]Term
	terms   map[string]*OntologyTerm
}

// One entry of the catalog document. Pointers tell a missing field apart
// from an empty one.
type catalogEntry struct {
	Accession   *string `json:"accession"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// LoadOntology reads the catalog (JSON) and relationship graph (OBO) documents.
func LoadOntology(catalogPath string, graphPath string) (*Ontology, error) {
	catalogFile, err := os.Open(catalogPath)
	if err != nil {
		return nil, &OntologyLoadError{Path: catalogPath, Err: err}
	}
	defer catalogFile.Close()

	graphFile, err := os.Open(graphPath)
	if err != nil {
		return nil, &OntologyLoadError{Path: graphPath, Err: err}
	}
	defer graphFile.Close()

	catalog, err := parseCatalog(catalogFile)
	if err != nil {
		return nil, &OntologyLoadError{Path: catalogPath, Err: err}
	}
	terms, err := parseOBO(graphFile)
	if err != nil {
		return nil, &OntologyLoadError{Path: graphPath, Err: err}
	}

	logger.Info("Loaded ontology",
		zap.String("catalog", catalogPath),
		zap.String("graph", graphPath),
		zap.Int("catalogEntries", len(catalog)),
		zap.Int("graphTerms", len(terms)),
	)
	return &Ontology{catalog: catalog, terms: terms}, nil
}

// NewOntology builds an ontology from in-memory documents.
func NewOntology(catalog io.Reader, graph io.Reader) (*Ontology, error) {
	entries, err := parseCatalog(catalog)
	if err != nil {
		return nil, &OntologyLoadError{Path: "catalog", Err: err}
	}
	terms, err := parseOBO(graph)
	if err != nil {
		return nil, &OntologyLoadError{Path: "graph", Err: err}
	}
	return &Ontology{catalog: entries, terms: terms}, nil
}

// DefaultGraphPath derives the OBO path that sits next to a catalog, aro.json -> aro.obo
func DefaultGraphPath(catalogPath string) string {
	return strings.TrimSuffix(catalogPath, filepath.Ext(catalogPath)) + ".obo"
}

// parseCatalog accepts either a JSON array of entries or a JSON object whose
// values are entries. In the object form, values that are not objects are
// metadata ("_version", "_timestamp") and get skipped.
func parseCatalog(r io.Reader) (map[string]Term, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	content = bytes.TrimSpace(content)
	if len(content) == 0 {
		return nil, errors.New("empty catalog document")
	}

	var entries []catalogEntry
	switch content[0] {
	case '[':
		if err := json.Unmarshal(content, &entries); err != nil {
			return nil, err
		}
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(content, &raw); err != nil {
			return nil, err
		}
		for _, value := range raw {
			value = bytes.TrimSpace(value)
			if len(value) == 0 || value[0] != '{' {
				continue
			}
			var entry catalogEntry
			if err := json.Unmarshal(value, &entry); err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
	default:
		return nil, errors.New("catalog must be a JSON array or object")
	}

	catalog := make(map[string]Term, len(entries))
	for idx, entry := range entries {
		switch {
		case entry.Accession == nil || *entry.Accession == "":
			return nil, fmt.Errorf("catalog entry %d has no accession", idx)
		case entry.Name == nil:
			return nil, fmt.Errorf("catalog entry %s has no name", *entry.Accession)
		case entry.Description == nil:
			return nil, fmt.Errorf("catalog entry %s has no description", *entry.Accession)
		}
		accession := normalizeAccession(*entry.Accession)
		catalog[accession] = Term{
			Name:        *entry.Name,
			Accession:   accession,
			Description: *entry.Description,
		}
	}
	return catalog, nil
}

// normalizeAccession drops the "ARO:" prefix so catalog and graph keys agree
func normalizeAccession(accession string) string {
	return strings.TrimPrefix(strings.TrimSpace(accession), "ARO:")
}

// Len returns the number of catalog entries.
func (o *Ontology) Len() int {
	return len(o.catalog)
}

// Describe looks up an accession in the catalog. Both "3000001" and
// "ARO:3000001" are accepted.
func (o *Ontology) Describe(accession string) (Term, error) {
	accession = normalizeAccession(accession)
	term, ok := o.catalog[accession]
	if !ok {
		return Term{}, &UnknownAccessionError{Accession: accession}
	}
	return term, nil
}

// FindGeneForAlignment resolves the gene a mapped read aligned to.
func (o *Ontology) FindGeneForAlignment(record AlignmentRecord) (GeneMatch, error) {
	gene, accession, err := ParseReferenceName(record.RName)
	if err != nil {
		return GeneMatch{}, err
	}
	term, err := o.Describe(accession)
	if err != nil {
		return GeneMatch{}, err
	}
	return GeneMatch{
		Gene:        gene,
		Accession:   term.Accession,
		Description: term.Description,
	}, nil
}

// Related returns the targets of one relation kind, nil when the accession
// or the kind is absent.
func (o *Ontology) Related(accession string, kind string) []string {
	term, ok := o.terms[normalizeAccession(accession)]
	if !ok {
		return nil
	}
	return slices.Clone(term.Relations[kind])
}

// ResistedAntibiotics follows the confers_resistance_to_drug edges of an accession.
func (o *Ontology) ResistedAntibiotics(accession string) ([]Term, error) {
	return o.follow(accession, RelationConfersResistTo)
}

// Parents follows the is_a edges of an accession, one hop only.
func (o *Ontology) Parents(accession string) ([]Term, error) {
	return o.follow(accession, RelationIsA)
}

func (o *Ontology) follow(accession string, kind string) ([]Term, error) {
	targets := o.Related(accession, kind)
	result := make([]Term, 0, len(targets))
	for _, target := range targets {
		term, err := o.resolve(target)
		if err != nil {
			return nil, err
		}
		result = append(result, term)
	}
	return result, nil
}

// resolve describes a relation target. Drug and class terms are usually in the
// catalog, but a graph-only term is still described from its own stanza.
func (o *Ontology) resolve(accession string) (Term, error) {
	if term, ok := o.catalog[accession]; ok {
		return term, nil
	}
	if graphTerm, ok := o.terms[accession]; ok && graphTerm.Name != "" {
		return Term{
			Name:        graphTerm.Name,
			Accession:   accession,
			Description: graphTerm.Description,
		}, nil
	}
	return Term{}, &UnknownAccessionError{Accession: accession}
}

// ParseReferenceName splits a CARD reference name such as
// "gb|AF028812|+|392-1262|ARO:3003010|vanB" into its gene name (last segment)
// and accession (the term:accession pair in the second-to-last segment).
func ParseReferenceName(rname string) (gene string, accession string, err error) {
	segments := strings.Split(rname, "|")
	if len(segments) < 2 {
		return "", "", &MalformedRecordError{
			Field: "RNAME",
			Msg:   fmt.Sprintf("reference name %q has no accession segment", rname),
		}
	}
	gene = segments[len(segments)-1]
	_, accession, found := strings.Cut(segments[len(segments)-2], ":")
	if !found || accession == "" || gene == "" {
		return "", "", &MalformedRecordError{
			Field: "RNAME",
			Msg:   fmt.Sprintf("reference name %q does not end in 'term:accession|gene'", rname),
		}
	}
	return gene, accession, nil
}
