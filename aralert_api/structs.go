package aralert_api

import "github.com/biogo/hts/sam"

// The struct representing one alignment line of a SAM file
// Only the 11 mandatory fields are kept, optional tags are dropped
type AlignmentRecord struct {
	// The name of the query read
	QName string

	// The bitwise alignment flags
	Flag sam.Flags

	// The name of the reference the read aligned to
	// "*" means the read is unmapped
	RName string

	// The 1-based leftmost mapping position
	Pos uint32

	// The mapping quality
	MapQ uint8

	// The CIGAR string of the alignment
	Cigar string

	// The reference name of the mate/next read
	RNext string

	// The position of the mate/next read
	PNext uint32

	// The observed template length
	TLen int32

	// The segment sequence
	Seq string

	// The Phred+33 base qualities
	Qual string
}

// A struct representing one resolved ontology term
type Term struct {
	// The human readable name of the term
	Name string

	// The accession of the term without its "ARO:" prefix
	Accession string

	// The free text description of the term
	Description string
}

// A struct representing one entry of the relationship graph
type OntologyTerm struct {
	// The name of the term as written in the graph document
	Name string

	// The definition of the term as written in the graph document
	Description string

	// The outgoing relations of the term
	// The relation kind (is_a, confers_resistance_to_drug, ...) is the key of the map
	// The value holds the target accessions in document order
	Relations map[string][]string
}

// A struct representing the gene an alignment was mapped to
type GeneMatch struct {
	// The gene name taken from the last segment of the reference name
	Gene string

	// The accession of the gene
	Accession string

	// The description of the gene from the catalog
	Description string
}

// A struct holding everything known about one detected gene
type GeneSummary struct {
	// The gene the reads mapped to
	GeneMatch

	// The number of mapped reads supporting the gene
	Reads int

	// The reference bases covered by those reads, from their CIGAR strings
	AlignedBases int

	// The antibiotics the gene confers resistance to, in ontology order
	Antibiotics []Term
}

// A struct holding the outcome of one aggregation pass
type Aggregation struct {
	// The detected genes in the order they were first seen
	Genes []*GeneSummary

	// The antibiotic classes that survived the stopword filter, sorted
	Classes []string
}

// The struct representing the tabular report
type Report struct {
	// The column names
	Header []string

	// The rows, every row has len(Header) cells
	Rows [][]string
}

// The struct handed to a notifier once a sample is processed
type Alert struct {
	// The unique id of the run
	RunID string

	// The name of the sample
	Sample string

	// The antibiotic classes the sample may resist, possibly empty
	Classes []string

	// The location of the written report, empty when no report was written
	ReportPath string
}
