package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/tableqa/dataset"
)

// fakeModel records its inputs and replays canned outputs.
type fakeModel struct {
	inputs  []string
	outputs []string
	err     error
}

func (f *fakeModel) Generate(_ context.Context, input string) ([]string, error) {
	f.inputs = append(f.inputs, input)
	return f.outputs, f.err
}

func people(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromStrings("people.csv",
		[]string{"id", "Name", "age"},
		[][]string{{"1", "Alice", "30"}, {"2", "Bob", "25"}, {"3", "Carol", ""}})
	require.NoError(t, err)
	return ds
}

// ============================================================================
// ENCODE / DECODE
// ============================================================================

func TestEncodeLinearisesTable(t *testing.T) {
	enc := Encode("How old is Alice?", people(t), 0, nil)

	assert.Equal(t,
		"how old is alice? col : id | name | age row 1 : 1 | alice | 30 row 2 : 2 | bob | 25 row 3 : 3 | carol | ",
		enc.Text)
	assert.Equal(t, 3, enc.RowsKept)
	assert.False(t, enc.Truncated)
	assert.Equal(t, len(WordTokenizer{}.Tokenize(enc.Text)), enc.Tokens)
}

func TestEncodeDropsRowsFromTheEnd(t *testing.T) {
	ds := people(t)
	full := Encode("q", ds, 0, nil)
	head := len(WordTokenizer{}.Tokenize("q col : id | name | age"))
	row1 := len(WordTokenizer{}.Tokenize("row 1 : 1 | alice | 30"))

	enc := Encode("q", ds, head+row1+reservedTokens, nil)

	assert.True(t, enc.Truncated)
	assert.Equal(t, 1, enc.RowsKept)
	assert.True(t, strings.HasPrefix(full.Text, enc.Text))
	assert.NotContains(t, enc.Text, "row 2")
	assert.LessOrEqual(t, enc.Tokens, head+row1)
}

func TestEncodeCutsOversizeHeader(t *testing.T) {
	enc := Encode(strings.Repeat("word ", 100), people(t), 10, nil)

	assert.True(t, enc.Truncated)
	assert.Equal(t, 0, enc.RowsKept)
	assert.Equal(t, 8, enc.Tokens)
	assert.Len(t, WordTokenizer{}.Tokenize(enc.Text), 8)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"</s><s> 30</s>", "30"},
		{"  alice ,  bob <pad><pad>", "alice , bob"},
		{"<unk>", ""},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Decode(tt.in), tt.in)
	}
}

// ============================================================================
// DISPATCH
// ============================================================================

func TestAnswer(t *testing.T) {
	m := &fakeModel{outputs: []string{"</s><s> 30</s>", "ignored"}}
	d := New(m, 512)

	answer, err := d.Answer(context.Background(), "How old is Alice?", people(t), nil)
	require.NoError(t, err)

	assert.Equal(t, "30", answer)
	require.Len(t, m.inputs, 1)
	assert.True(t, strings.HasPrefix(m.inputs[0], "how old is alice? col : id | name | age"))
}

func TestAnswerProjectsColumns(t *testing.T) {
	m := &fakeModel{outputs: []string{"bob"}}
	d := New(m, 512)

	_, err := d.Answer(context.Background(), "who is 25?", people(t), []string{"age", "Name"})
	require.NoError(t, err)
	assert.Contains(t, m.inputs[0], "col : age | name row 1 : 30 | alice")

	_, err = d.Answer(context.Background(), "q", people(t), []string{"salary"})
	assert.Error(t, err)
	assert.Len(t, m.inputs, 1, "unknown column must not reach the model")
}

func TestAnswerPropagatesModelError(t *testing.T) {
	boom := errors.New("connection refused")
	d := New(&fakeModel{err: boom}, 512)

	_, err := d.Answer(context.Background(), "q", people(t), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestAnswerNoOutput(t *testing.T) {
	d := New(&fakeModel{}, 512)

	_, err := d.Answer(context.Background(), "q", people(t), nil)
	assert.True(t, errors.Is(err, ErrNoOutput))
}

func TestAnswerNilDataset(t *testing.T) {
	m := &fakeModel{outputs: []string{"x"}}
	_, err := New(m, 512).Answer(context.Background(), "q", nil, nil)
	assert.Error(t, err)
	assert.Empty(t, m.inputs)
}

type spaceTokenizer struct{}

func (spaceTokenizer) Tokenize(s string) []string { return strings.Fields(s) }

func TestWithTokenizer(t *testing.T) {
	m := &fakeModel{outputs: []string{"ok"}}
	// "q col : id | name | age" and each row are 8 space tokens.
	d := New(m, 8+8+reservedTokens, WithTokenizer(spaceTokenizer{}))

	_, err := d.Answer(context.Background(), "q", people(t), nil)
	require.NoError(t, err)
	assert.Contains(t, m.inputs[0], "row 1")
	assert.NotContains(t, m.inputs[0], "row 2")
}
