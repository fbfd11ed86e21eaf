package models

import "fmt"

// TableSchema fixes the columns and row labels a vision model must emit.
type TableSchema struct {
	Columns  []string `yaml:"columns" json:"columns"`
	Members  []string `yaml:"members" json:"members"`
	Metadata []string `yaml:"metadata" json:"metadata"`
}

// DefaultTableSchema returns the scorecard layout: thirteen columns and one
// row per club member in card order.
func DefaultTableSchema() TableSchema {
	return TableSchema{
		Columns: []string{
			"Member", "Guide", "Blind", "Guns",
			"MallardDrake", "MallardHen", "Sprig", "Widgeon",
			"Teal", "Wood", "Other", "Geese", "Pheasant",
		},
		Members: []string{
			"Kevin Harvey", "Daniel Davis", "JB Ferrarone", "Jay Abbe",
			"Mike Mountanos", "Tom Messervy", "Bob Lashinski", "Pete Sonsini",
			"Buster Posey", "Jean Young", "Casey Safreno", "Hank Wetzel",
			"Gavin Holles", "Dave Brett",
		},
		Metadata: []string{"date", "location", "notes"},
	}
}

// IsZero reports whether the schema has no columns configured.
func (s TableSchema) IsZero() bool {
	return len(s.Columns) == 0
}

// TableResult is the structured row-set returned by a vision model.
// Cells are JSON scalars; nil marks an illegible or missing value.
type TableResult struct {
	Headers  []string       `json:"headers"`
	Rows     [][]any        `json:"rows"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ShapeIssues lists every way the result deviates from the schema. An empty
// slice means the row count, row order and column count all match.
func (t *TableResult) ShapeIssues(schema TableSchema) []string {
	var issues []string

	if len(t.Headers) != len(schema.Columns) {
		issues = append(issues, fmt.Sprintf("expected %d headers, got %d", len(schema.Columns), len(t.Headers)))
	}
	if len(t.Rows) != len(schema.Members) {
		issues = append(issues, fmt.Sprintf("expected %d rows, got %d", len(schema.Members), len(t.Rows)))
	}

	for i, row := range t.Rows {
		if len(row) != len(schema.Columns) {
			issues = append(issues, fmt.Sprintf("row %d: expected %d cells, got %d", i+1, len(schema.Columns), len(row)))
		}
		if i >= len(schema.Members) || len(row) == 0 {
			continue
		}
		name, _ := row[0].(string)
		if name != schema.Members[i] {
			issues = append(issues, fmt.Sprintf("row %d: expected member %q, got %q", i+1, schema.Members[i], name))
		}
	}

	return issues
}
