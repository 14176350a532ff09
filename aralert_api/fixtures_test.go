package aralert_api

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testCatalog = `[
	{"accession": "1000", "name": "geneA", "description": "gene A description"},
	{"accession": "ARO:1001", "name": "geneB", "description": "gene B description"},
	{"accession": "1002", "name": "geneC", "description": "gene C description", "id": "ignored"},
	{"accession": "1003", "name": "geneD", "description": "gene D description"},
	{"accession": "2000", "name": "ciprofloxacin", "description": "ciprofloxacin description"},
	{"accession": "2001", "name": "tetracycline", "description": "tetracycline description"},
	{"accession": "3000", "name": "fluoroquinolone antibiotic", "description": "fluoroquinolone class"},
	{"accession": "3001", "name": "tetracycline antibiotic", "description": "tetracycline class"},
	{"accession": "3002", "name": "peptide antibiotic", "description": "peptide class"}
]`

const testGraph = `format-version: 1.2
ontology: aro

[Term]
id: ARO:1000
name: geneA
def: "gene A \"quoted\" description" [PMID:1]
relationship: confers_resistance_to_drug ARO:2000 ! ciprofloxacin

[Term]
id: ARO:1001
name: geneB
relationship: confers_resistance_to_drug ARO:2000 ! ciprofloxacin
relationship: confers_resistance_to_drug ARO:2001 ! tetracycline

[Term]
id: ARO:1002
name: geneC

[Term]
id: ARO:1003
name: geneD
relationship: confers_resistance_to_drug ARO:2003 ! novobiocin

[Term]
id: ARO:2000
name: ciprofloxacin
is_a: ARO:3000 ! fluoroquinolone antibiotic

[Term]
id: ARO:2001
name: tetracycline
is_a: ARO:3001 ! tetracycline antibiotic
is_a: ARO:3002 {source="x"} ! peptide antibiotic

[Term]
id: ARO:2003
name: novobiocin
def: "An aminocoumarin antibiotic." []

[Term]
id: ARO:3000
name: fluoroquinolone antibiotic

[Typedef]
id: confers_resistance_to_drug
name: confers_resistance_to_drug
is_a: ARO:9999
`

// testOntology builds the ontology shared by the tests
func testOntology(t *testing.T) *Ontology {
	t.Helper()
	ontology, err := NewOntology(strings.NewReader(testCatalog), strings.NewReader(testGraph))
	require.NoError(t, err)
	return ontology
}

// writeOntologyFiles writes aro.json and aro.obo into dir and returns the catalog path
func writeOntologyFiles(t *testing.T, dir string) string {
	t.Helper()
	catalogPath := filepath.Join(dir, "aro.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aro.obo"), []byte(testGraph), 0o644))
	return catalogPath
}

// samLine builds a mapped alignment line against the given reference name
func samLine(qname string, rname string) string {
	return strings.Join([]string{qname, "0", rname, "1", "60", "4M", "*", "0", "0", "ACGT", "IIII"}, "\t")
}

const unmappedLine = "u1\t4\t*\t0\t0\t*\t*\t0\t0\tNN\tII"

// sliceIterator replays a fixed list of records
type sliceIterator struct {
	records []AlignmentRecord
	idx     int
	err     error
}

func (s *sliceIterator) Next() bool {
	if s.idx >= len(s.records) {
		return false
	}
	s.idx++
	return true
}

func (s *sliceIterator) Record() AlignmentRecord {
	return s.records[s.idx-1]
}

func (s *sliceIterator) Err() error {
	return s.err
}
