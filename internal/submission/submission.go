// Package submission reads and writes TREC-style ranked result files:
//
//	queryID Q0 docID rank score runTag
//
// Entries are grouped per query in the order they appear in the file; they
// are never re-sorted by score.
package submission

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/errors"
)

const columns = 6

// Entry is one ranked document of a query.
type Entry struct {
	DocID string
	Score float64
}

// Query is the ranked list submitted for one topic.
type Query struct {
	ID      int
	Entries []Entry
}

// File is a parsed submission file.
type File struct {
	Path    string
	RunTag  string
	Queries []Query
}

// NumEntries returns the number of ranked entries across all queries.
func (f *File) NumEntries() int {
	n := 0
	for _, q := range f.Queries {
		n += len(q.Entries)
	}
	return n
}

// ParseError describes the line that made a file unusable.
type ParseError struct {
	Path   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parsing %s line %d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("parsing %s: %s", e.Path, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return errors.ErrMalformedInput
}

// Parse opens and parses the submission file at path.
func Parse(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Newf(errors.ErrIO, "opening submission %s: %v", path, err)
	}
	defer f.Close()
	return Read(f, path)
}

// Read parses a submission from r. name is used in error messages.
func Read(r io.Reader, name string) (*File, error) {
	file := &File{Path: name}
	index := make(map[int]int)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != columns {
			return nil, &ParseError{Path: name, Line: lineNo, Reason: fmt.Sprintf("expected %d columns, got %d", columns, len(fields))}
		}
		qid, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, &ParseError{Path: name, Line: lineNo, Reason: fmt.Sprintf("invalid query id %q", fields[0])}
		}
		score, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, &ParseError{Path: name, Line: lineNo, Reason: fmt.Sprintf("invalid score %q", fields[4])}
		}
		if file.RunTag == "" {
			file.RunTag = fields[5]
		}

		pos, ok := index[qid]
		if !ok {
			pos = len(file.Queries)
			index[qid] = pos
			file.Queries = append(file.Queries, Query{ID: qid})
		}
		file.Queries[pos].Entries = append(file.Queries[pos].Entries, Entry{DocID: fields[2], Score: score})
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Path: name, Line: lineNo + 1, Reason: err.Error()}
	}
	if len(file.Queries) == 0 {
		return nil, &ParseError{Path: name, Reason: "no entries"}
	}
	return file, nil
}

// Write serialises f in submission format, ranks numbered from 1 per query.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, q := range f.Queries {
		for i, e := range q.Entries {
			if _, err := fmt.Fprintf(bw, "%d Q0 %s %d %s %s\n", q.ID, e.DocID, i+1, FormatScore(e.Score), f.RunTag); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// FormatScore renders a score with the fewest digits that read back to the
// same float64.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
