package aralert_api

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Relation kinds used by the aggregation
const (
	RelationIsA             = "is_a"
	RelationConfersResistTo = "confers_resistance_to_drug"
)

// parseOBO reads the [Term] stanzas of an OBO document into a map keyed by
// normalized accession. Typedef and Instance stanzas are skipped.
func parseOBO(r io.Reader) (map[string]*OntologyTerm, error) {
	terms := map[string]*OntologyTerm{}

	scanner := bufio.NewScanner(r)
	const maxCapacity = 8 * 1000000 // 8 MB
	scanner.Buffer(make([]byte, 0, 64*1024), maxCapacity)

	var (
		current   *OntologyTerm
		currentID string
		inTerm    bool
		lineNr    int
	)

	flush := func() error {
		if !inTerm {
			return nil
		}
		if currentID == "" {
			return fmt.Errorf("line %d: [Term] stanza without id", lineNr)
		}
		terms[currentID] = current
		return nil
	}

	for scanner.Scan() {
		lineNr++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if err := flush(); err != nil {
				return nil, err
			}
			inTerm = line == "[Term]"
			current = &OntologyTerm{Relations: map[string][]string{}}
			currentID = ""
			continue
		}

		// header tags and non-term stanzas
		if !inTerm {
			continue
		}

		tag, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("line %d: expected 'tag: value', got %q", lineNr, line)
		}
		value = strings.TrimSpace(value)

		switch tag {
		case "id":
			currentID = normalizeAccession(value)
		case "name":
			current.Name = value
		case "def":
			current.Description = unquoteDef(value)
		case "is_a":
			target := normalizeAccession(stripTrailingComment(value))
			current.Relations[RelationIsA] = append(current.Relations[RelationIsA], target)
		case "relationship":
			fields := strings.Fields(stripTrailingComment(value))
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: relationship needs a kind and a target, got %q", lineNr, value)
			}
			kind := fields[0]
			current.Relations[kind] = append(current.Relations[kind], normalizeAccession(fields[1]))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return terms, nil
}

// stripTrailingComment removes an OBO "! comment" and any {qualifiers}
func stripTrailingComment(value string) string {
	if idx := strings.Index(value, "!"); idx >= 0 {
		value = value[:idx]
	}
	if idx := strings.Index(value, "{"); idx >= 0 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}

// unquoteDef extracts the quoted text of a def tag, dropping the xref list
func unquoteDef(value string) string {
	if !strings.HasPrefix(value, "\"") {
		return value
	}
	var sb strings.Builder
	escaped := false
	for _, letter := range value[1:] {
		switch {
		case escaped:
			sb.WriteRune(letter)
			escaped = false
		case letter == '\\':
			escaped = true
		case letter == '"':
			return sb.String()
		default:
			sb.WriteRune(letter)
		}
	}
	return sb.String()
}
