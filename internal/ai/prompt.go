package ai

import (
	"fmt"
	"strings"

	"github.com/logc/scorecard-ocr/internal/models"
)

// SystemPrompt frames the model as a table extractor.
const SystemPrompt = "You are an OCR and table extraction assistant. " +
	"You take an image of a hunting club scorecard or similar form and " +
	"return ONLY a JSON object describing the main people table."

// BuildPrompt renders the user instruction for a schema: the fixed columns,
// the fixed member order, the expected JSON shape and the null rule.
func BuildPrompt(schema models.TableSchema) string {
	var b strings.Builder
	n := len(schema.Members)

	b.WriteString("Look at this image of a hunting club card / scorecard and extract the main TABLE of hunting results.\n\n")
	b.WriteString("The table layout is FIXED. Each row represents one member. Columns are:\n")
	for _, c := range schema.Columns {
		fmt.Fprintf(&b, "- %s\n", c)
	}

	b.WriteString("\nThe ONLY valid member names and row order are:\n")
	for i, m := range schema.Members {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m)
	}

	fmt.Fprintf(&b, `
Your job is to:
1. For each of the %d members above, read any clearly legible data in that image.
2. Produce EXACTLY %d rows in the fixed order above.
3. For each row, fill a value for each column (%s).
4. Also capture high-level metadata (%s) if visible.

OUTPUT FORMAT (VERY IMPORTANT):
- Return ONLY a single JSON object with EXACTLY these keys:
  {
    "headers": [%s],
    "rows": [
%s      ...
    ],
    "metadata": {%s}
  }

RULES:
- You MUST output exactly %d rows in the "rows" array, in the member order listed above.
- The first column in each row (%s) MUST be that member's name exactly as written above.
- If a numeric cell (e.g., species count) is illegible or not present, use null for that cell.
- Use numbers (integers) for counts and guns when possible.
- Do NOT invent new member names or extra rows.
- Do NOT output any explanations, markdown, or text outside of the JSON object.
`,
		n, n,
		strings.Join(schema.Columns, ", "),
		strings.Join(schema.Metadata, ", "),
		quoteList(schema.Columns),
		exampleRows(schema),
		exampleMetadata(schema.Metadata),
		n,
		firstColumn(schema),
	)
	return b.String()
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}

// exampleRows shows the first two members with one null and numeric counts.
func exampleRows(schema models.TableSchema) string {
	var b strings.Builder
	for i := 0; i < len(schema.Members) && i < 2; i++ {
		cells := make([]string, len(schema.Columns))
		for j := range cells {
			switch j {
			case 0:
				cells[j] = fmt.Sprintf("%q", schema.Members[i])
			case 1:
				cells[j] = "null"
			case 2:
				cells[j] = `"4"`
			default:
				cells[j] = "0"
			}
		}
		fmt.Fprintf(&b, "      [%s],\n", strings.Join(cells, ", "))
	}
	return b.String()
}

func exampleMetadata(keys []string) string {
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%q: \"...\"", k)
	}
	return strings.Join(pairs, ", ")
}

func firstColumn(schema models.TableSchema) string {
	if len(schema.Columns) == 0 {
		return "Member"
	}
	return schema.Columns[0]
}
