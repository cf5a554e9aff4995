package pipeline

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParsedLine is one candidate product line from the receipt's product
// region. A nil Quantity marks a line the parser could not confidently
// decompose; its Name is then the raw line verbatim and NeedsReview is set.
type ParsedLine struct {
	RawText     string
	Name        string
	Quantity    *decimal.Decimal
	NeedsReview bool
}

// ParseLines segments normalized text into the product region and
// decomposes each line into a name and a trailing decimal quantity.
//
// Region detection: a line consisting only of dashes is a separator; the
// second separator opens the region and the third closes it. A header line
// containing both "producto" and "cantidad" also opens the region, and a
// line containing "total" inside the region closes it.
//
// Each region line is split on whitespace and its tokens scanned from the
// end; the first token that parses as a decimal becomes the quantity and
// everything before it the name. This right-to-left scan deliberately
// tolerates names with embedded numbers ("producto 5kg 3" -> name
// "producto 5kg", qty 3) but flags names with no trailing quantity. The
// heuristic is lossy by design; flagged lines go to human review instead
// of failing the receipt.
func ParseLines(text string) []ParsedLine {
	var items []ParsedLine

	inProducts := false
	separators := 0

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if isSeparator(line) {
			separators++
			if separators == 2 {
				inProducts = true
			} else if separators == 3 {
				break
			}
			continue
		}

		if strings.Contains(line, "producto") && strings.Contains(line, "cantidad") {
			inProducts = true
			continue
		}

		if inProducts && strings.Contains(line, "total") {
			break
		}

		if !inProducts {
			continue
		}

		items = append(items, parseLine(line))
	}

	return items
}

func parseLine(line string) ParsedLine {
	tokens := strings.Fields(line)
	if len(tokens) >= 2 {
		for i := len(tokens) - 1; i >= 0; i-- {
			qty, err := decimal.NewFromString(tokens[i])
			if err != nil {
				continue
			}
			name := strings.TrimSpace(strings.Join(tokens[:i], " "))
			// A zero quantity or an empty name is as useless as no parse.
			if qty.IsZero() || name == "" {
				break
			}
			return ParsedLine{RawText: line, Name: name, Quantity: &qty}
		}
	}
	return ParsedLine{RawText: line, Name: line, NeedsReview: true}
}

func isSeparator(line string) bool {
	return strings.TrimSpace(strings.ReplaceAll(line, "-", "")) == ""
}
