package submission

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `401 Q0 clueweb09-en0000-00-00001 1 12.5 runA
401 Q0 clueweb09-en0000-00-00002 2 11 runA
402	Q0	clueweb09-en0000-00-00003	1	9.25	runA

401 Q0 clueweb09-en0000-00-00004 3 10.75 runA
`

func TestReadGroupsByQueryInFileOrder(t *testing.T) {
	f, err := Read(strings.NewReader(sample), "sample.txt")
	require.NoError(t, err)

	assert.Equal(t, "runA", f.RunTag)
	require.Len(t, f.Queries, 2)
	assert.Equal(t, 401, f.Queries[0].ID)
	assert.Equal(t, 402, f.Queries[1].ID)
	assert.Equal(t, []Entry{
		{DocID: "clueweb09-en0000-00-00001", Score: 12.5},
		{DocID: "clueweb09-en0000-00-00002", Score: 11},
		{DocID: "clueweb09-en0000-00-00004", Score: 10.75},
	}, f.Queries[0].Entries)
	assert.Equal(t, 4, f.NumEntries())
}

func TestReadKeepsSubmittedOrderNotScoreOrder(t *testing.T) {
	in := "7 Q0 a 1 1.0 r\n7 Q0 b 2 5.0 r\n7 Q0 c 3 3.0 r\n"
	f, err := Read(strings.NewReader(in), "x")
	require.NoError(t, err)

	var ids []string
	for _, e := range f.Queries[0].Entries {
		ids = append(ids, e.DocID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestReadIgnoresQ0Column(t *testing.T) {
	f, err := Read(strings.NewReader("1 whatever d1 1 2 tag\n"), "x")
	require.NoError(t, err)
	assert.Equal(t, "d1", f.Queries[0].Entries[0].DocID)
}

func TestReadMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
		line int
	}{
		{"too few columns", "1 Q0 d1 1 2.0\n", 1},
		{"too many columns", "1 Q0 d1 1 2.0 tag extra\n", 1},
		{"non-numeric query", "1 Q0 d1 1 2.0 tag\nabc Q0 d2 2 1.0 tag\n", 2},
		{"non-numeric score", "1 Q0 d1 1 high tag\n", 1},
		{"empty file", "\n\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.in), "bad.txt")
			require.Error(t, err)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.line, pe.Line)
			assert.Equal(t, "bad.txt", pe.Path)
			assert.ErrorIs(t, err, errors.ErrMalformedInput)
			assert.Equal(t, errors.KindParse, errors.KindOf(err))
		})
	}
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Equal(t, errors.KindIO, errors.KindOf(err))
}

func TestWriteThenParse(t *testing.T) {
	f, err := Read(strings.NewReader(sample), "sample.txt")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.txt")
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	again, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, f.Queries, again.Queries)
	assert.Equal(t, f.RunTag, again.RunTag)
	assert.Contains(t, buf.String(), "401 Q0 clueweb09-en0000-00-00004 3 10.75 runA\n")
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "0", FormatScore(0))
	assert.Equal(t, "12.5", FormatScore(12.5))
	assert.Equal(t, "-3.25", FormatScore(-3.25))
	assert.Equal(t, "7", FormatScore(7.0))
}
