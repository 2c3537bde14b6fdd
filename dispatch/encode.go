package dispatch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spektr-org/tableqa/dataset"
)

// ============================================================================
// ENCODER — Query + table → bounded model input
// ============================================================================
// Linearisation (lower-cased):
//
//   <query> col : c1 | c2 | c3 row 1 : v | v | v row 2 : v | v | v
//
// The input is bounded by a token budget. Two tokens are reserved for the
// sequence delimiters the model adds. When the table does not fit, rows are
// dropped from the end; when even the header does not fit, the token stream
// is cut. Neither case is an error.
// ============================================================================

// DefaultMaxLength is the input budget of the base TAPEX checkpoints.
const DefaultMaxLength = 512

const reservedTokens = 2

// Tokenizer splits text into model tokens. Token counts must be additive
// over space-joined segments.
type Tokenizer interface {
	Tokenize(text string) []string
}

// WordTokenizer approximates a subword tokenizer from below: one token per
// word and one per punctuation mark.
type WordTokenizer struct{}

var wordPattern = regexp.MustCompile(`\w+|[^\w\s]`)

// Tokenize implements Tokenizer.
func (WordTokenizer) Tokenize(text string) []string {
	return wordPattern.FindAllString(text, -1)
}

// Encoding is a linearised model input.
type Encoding struct {
	Text      string
	Tokens    int  // tokens in Text, delimiters excluded
	RowsKept  int  // table rows present in Text
	Truncated bool // rows were dropped or the text was cut
}

// Encode linearises query and table within maxLength tokens. A maxLength
// below one uses DefaultMaxLength; a nil tok uses WordTokenizer.
func Encode(query string, table *dataset.Dataset, maxLength int, tok Tokenizer) Encoding {
	if maxLength < 1 {
		maxLength = DefaultMaxLength
	}
	if tok == nil {
		tok = WordTokenizer{}
	}
	budget := maxLength - reservedTokens
	if budget < 1 {
		budget = 1
	}

	head := strings.ToLower(strings.TrimSpace(query) + " " + header(table))
	headTokens := tok.Tokenize(head)

	// ── Header alone overflows: cut the token stream ──────────────────────
	if len(headTokens) > budget {
		return Encoding{
			Text:      strings.Join(headTokens[:budget], " "),
			Tokens:    budget,
			Truncated: true,
		}
	}

	var b strings.Builder
	b.WriteString(head)
	used := len(headTokens)
	kept := 0

	for i := 0; i < table.Len(); i++ {
		seg := strings.ToLower(row(table, i))
		n := len(tok.Tokenize(seg))
		if used+n > budget {
			break
		}
		b.WriteString(" ")
		b.WriteString(seg)
		used += n
		kept++
	}

	return Encoding{
		Text:      b.String(),
		Tokens:    used,
		RowsKept:  kept,
		Truncated: kept < table.Len(),
	}
}

func header(table *dataset.Dataset) string {
	return "col : " + strings.Join(table.ColumnNames(), " | ")
}

func row(table *dataset.Dataset, i int) string {
	cells := table.Row(i)
	parts := make([]string, len(cells))
	for j, v := range cells {
		parts[j] = v.String()
	}
	return fmt.Sprintf("row %d : %s", i+1, strings.Join(parts, " | "))
}

// ============================================================================
// DECODER
// ============================================================================

var controlTokens = []string{"<s>", "</s>", "<pad>", "<unk>", "<mask>"}

// Decode strips generation-control tokens and collapses whitespace.
func Decode(output string) string {
	for _, t := range controlTokens {
		output = strings.ReplaceAll(output, t, " ")
	}
	return strings.Join(strings.Fields(output), " ")
}
