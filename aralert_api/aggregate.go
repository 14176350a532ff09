package aralert_api

import (
	"sort"
	"strings"

	"github.com/dnamazing/aralert/logger"
	"go.uber.org/zap"
)

// Class names starting or ending with one of these say nothing useful about
// what a strain resists and are left out of the alert.
var (
	classStopPrefixes = []string{"miscellaneous", "peptide", "antibiotic"}
	classStopSuffixes = []string{"mixture", "molecule"}
)

// Aggregate counts mapped reads per gene, then walks the ontology once per
// distinct gene to collect resisted antibiotics and their classes.
// Any lookup failure aborts the whole aggregation.
func Aggregate(reads RecordIterator, ontology *Ontology) (*Aggregation, error) {
	aggregation := &Aggregation{}
	byGene := map[string]*GeneSummary{}
	readCount := 0

	for reads.Next() {
		match, err := ontology.FindGeneForAlignment(reads.Record())
		if err != nil {
			return nil, err
		}
		readCount++
		summary, ok := byGene[match.Gene]
		if !ok {
			summary = &GeneSummary{GeneMatch: match}
			byGene[match.Gene] = summary
			aggregation.Genes = append(aggregation.Genes, summary)
		}
		summary.Reads++
		summary.AlignedBases += referenceSpan(reads.Record())
	}
	if err := reads.Err(); err != nil {
		return nil, err
	}

	candidates := []string{}
	for _, summary := range aggregation.Genes {
		antibiotics, err := ontology.ResistedAntibiotics(summary.Accession)
		if err != nil {
			return nil, err
		}
		summary.Antibiotics = antibiotics

		for _, antibiotic := range antibiotics {
			parents, err := ontology.Parents(antibiotic.Accession)
			if err != nil {
				return nil, err
			}
			for _, parent := range parents {
				candidates = append(candidates, parent.Name)
			}
		}
		logger.Debug("Resolved gene",
			zap.String("gene", summary.Gene),
			zap.String("accession", summary.Accession),
			zap.Int("reads", summary.Reads),
			zap.Int("alignedBases", summary.AlignedBases),
			zap.Int("antibiotics", len(antibiotics)),
		)
	}

	aggregation.Classes = FilterClasses(candidates)
	logger.Info("Aggregated alignments",
		zap.Int("mappedReads", readCount),
		zap.Int("genes", len(aggregation.Genes)),
		zap.Strings("classes", aggregation.Classes),
	)
	return aggregation, nil
}

// referenceSpan returns the reference bases a read covers. A CIGAR that does
// not parse only loses the coverage figure, the read still counts.
func referenceSpan(record AlignmentRecord) int {
	cigar, err := record.ParseCigar()
	if err != nil {
		logger.Debug("Unparsable CIGAR", zap.String("read", record.QName), zap.String("cigar", record.Cigar), zap.Error(err))
		return 0
	}
	span, _ := cigar.Lengths()
	return span
}

// FilterClasses drops generic class names, strips the " antibiotic" wording
// from the rest and returns the distinct survivors in sorted order.
func FilterClasses(candidates []string) []string {
	seen := map[string]bool{}
	classes := []string{}
	for _, candidate := range candidates {
		if isStopClass(candidate) {
			continue
		}
		class := strings.TrimSpace(strings.ReplaceAll(candidate, " antibiotic", ""))
		if class == "" || seen[class] {
			continue
		}
		seen[class] = true
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}

func isStopClass(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range classStopPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	for _, suffix := range classStopSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// GeneCounts returns the number of supporting reads per gene name.
func (a *Aggregation) GeneCounts() map[string]int {
	counts := make(map[string]int, len(a.Genes))
	for _, summary := range a.Genes {
		counts[summary.Gene] = summary.Reads
	}
	return counts
}

// ClassSet returns the antibiotic classes as a set.
func (a *Aggregation) ClassSet() map[string]struct{} {
	set := make(map[string]struct{}, len(a.Classes))
	for _, class := range a.Classes {
		set[class] = struct{}{}
	}
	return set
}

// ReadCount returns the total number of mapped reads that were aggregated.
func (a *Aggregation) ReadCount() int {
	total := 0
	for _, summary := range a.Genes {
		total += summary.Reads
	}
	return total
}
