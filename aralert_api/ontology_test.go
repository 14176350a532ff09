package aralert_api

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	ontology := testOntology(t)
	assert.Equal(t, 9, ontology.Len())

	term, err := ontology.Describe("1001")
	require.NoError(t, err)
	assert.Equal(t, Term{Name: "geneB", Accession: "1001", Description: "gene B description"}, term)

	prefixed, err := ontology.Describe("ARO:1001")
	require.NoError(t, err)
	assert.Equal(t, term, prefixed)

	_, err = ontology.Describe("4242")
	var unknown *UnknownAccessionError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "4242", unknown.Accession)
}

func TestFindGeneForAlignment(t *testing.T) {
	ontology := testOntology(t)

	record, err := ParseAlignment(samLine("r1", "gb|AF028812|+|392-1262|ARO:1000|geneA"))
	require.NoError(t, err)

	match, err := ontology.FindGeneForAlignment(record)
	require.NoError(t, err)
	assert.Equal(t, GeneMatch{Gene: "geneA", Accession: "1000", Description: "gene A description"}, match)
}

func TestFindGeneForAlignmentUnknownAccession(t *testing.T) {
	ontology := testOntology(t)

	record, err := ParseAlignment(samLine("r1", "gb|X|ARO:4242|geneZ"))
	require.NoError(t, err)

	_, err = ontology.FindGeneForAlignment(record)
	var unknown *UnknownAccessionError
	assert.True(t, errors.As(err, &unknown))
}

func TestParseReferenceName(t *testing.T) {
	gene, accession, err := ParseReferenceName("geneA|ARO:1000|g")
	require.NoError(t, err)
	assert.Equal(t, "g", gene)
	assert.Equal(t, "1000", accession)

	for _, rname := range []string{"plainref", "gb|AF1|geneA", "gb|ARO:|geneA", "gb|ARO:1000|"} {
		_, _, err := ParseReferenceName(rname)
		var malformed *MalformedRecordError
		assert.True(t, errors.As(err, &malformed), rname)
	}
}

func TestResistedAntibiotics(t *testing.T) {
	ontology := testOntology(t)

	first, err := ontology.ResistedAntibiotics("1001")
	require.NoError(t, err)
	assert.Equal(t, []Term{
		{Name: "ciprofloxacin", Accession: "2000", Description: "ciprofloxacin description"},
		{Name: "tetracycline", Accession: "2001", Description: "tetracycline description"},
	}, first)

	second, err := ontology.ResistedAntibiotics("1001")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResistedAntibioticsWithoutRelation(t *testing.T) {
	ontology := testOntology(t)

	for _, accession := range []string{"1002", "3000", "not-in-graph"} {
		antibiotics, err := ontology.ResistedAntibiotics(accession)
		require.NoError(t, err)
		assert.Empty(t, antibiotics)
	}
	assert.Empty(t, ontology.Related("1002", "no_such_relation"))
}

func TestResistedAntibioticsGraphOnlyTarget(t *testing.T) {
	ontology := testOntology(t)

	antibiotics, err := ontology.ResistedAntibiotics("1003")
	require.NoError(t, err)
	assert.Equal(t, []Term{{Name: "novobiocin", Accession: "2003", Description: "An aminocoumarin antibiotic."}}, antibiotics)
}

func TestParents(t *testing.T) {
	ontology := testOntology(t)

	parents, err := ontology.Parents("2001")
	require.NoError(t, err)
	require.Len(t, parents, 2)
	assert.Equal(t, "tetracycline antibiotic", parents[0].Name)
	assert.Equal(t, "peptide antibiotic", parents[1].Name)

	parents, err = ontology.Parents("1000")
	require.NoError(t, err)
	assert.Empty(t, parents)
}

func TestRelatedReturnsCopy(t *testing.T) {
	ontology := testOntology(t)

	related := ontology.Related("1001", RelationConfersResistTo)
	related[0] = "mutated"
	assert.Equal(t, []string{"2000", "2001"}, ontology.Related("1001", RelationConfersResistTo))
}

func TestParseOBODefinitions(t *testing.T) {
	terms, err := parseOBO(strings.NewReader(testGraph))
	require.NoError(t, err)

	assert.Equal(t, `gene A "quoted" description`, terms["1000"].Description)
	assert.NotContains(t, terms, "confers_resistance_to_drug")
	assert.Equal(t, []string{"3001", "3002"}, terms["2001"].Relations[RelationIsA])
}

func TestCatalogObjectForm(t *testing.T) {
	catalog := `{
		"_version": "3.0.0",
		"_comment": "metadata",
		"36": {"accession": "1000", "name": "geneA", "description": "gene A description"}
	}`
	ontology, err := NewOntology(strings.NewReader(catalog), strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 1, ontology.Len())
}

func TestOntologyLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		catalog string
		graph   string
	}{
		{"catalog not json", "not json", testGraph},
		{"catalog empty", "", testGraph},
		{"entry without name", `[{"accession": "1", "description": "d"}]`, testGraph},
		{"entry without description", `[{"accession": "1", "name": "n"}]`, testGraph},
		{"entry without accession", `[{"name": "n", "description": "d"}]`, testGraph},
		{"object entry without accession", `{"_version": "3.0", "1": {"name": "geneA", "description": "d"}}`, testGraph},
		{"object entry without description", `{"1": {"accession": "1", "name": "geneA"}}`, testGraph},
		{"term without id", testCatalog, "[Term]\nname: orphan\n"},
		{"term line without tag", testCatalog, "[Term]\nid: ARO:1\njust text\n"},
		{"relationship without target", testCatalog, "[Term]\nid: ARO:1\nrelationship: confers_resistance_to_drug\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOntology(strings.NewReader(tt.catalog), strings.NewReader(tt.graph))
			var loadErr *OntologyLoadError
			assert.True(t, errors.As(err, &loadErr), "got %v", err)
		})
	}
}

func TestLoadOntology(t *testing.T) {
	dir := t.TempDir()
	catalogPath := writeOntologyFiles(t, dir)

	ontology, err := LoadOntology(catalogPath, DefaultGraphPath(catalogPath))
	require.NoError(t, err)
	assert.Equal(t, 9, ontology.Len())

	_, err = LoadOntology(catalogPath, filepath.Join(dir, "missing.obo"))
	var loadErr *OntologyLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, filepath.Join(dir, "missing.obo"), loadErr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultGraphPath(t *testing.T) {
	assert.Equal(t, "data/aro.obo", DefaultGraphPath("data/aro.json"))
	assert.Equal(t, "aro.obo", DefaultGraphPath("aro"))
}
