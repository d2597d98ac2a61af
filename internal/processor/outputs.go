package processor

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/filter"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/submission"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/errors"
)

const tmpSuffix = ".tmp"

// output is one threshold's result file. Lines go to a temp file beside the
// final path; the temp file is renamed only when the whole submission has
// been filtered, so a final path never holds a partial ranking.
type output struct {
	threshold int
	final     string
	tmp       string
	f         *os.File
	w         *bufio.Writer
	closed    bool
	renamed   bool
}

func (o *output) writeLine(queryID int, r filter.Ranked, runTag string) error {
	// queryID \t Q0 \t docID \t rank \t score \t runTag
	o.w.WriteString(strconv.Itoa(queryID))
	o.w.WriteString("\tQ0\t")
	o.w.WriteString(r.DocID)
	o.w.WriteByte('\t')
	o.w.WriteString(strconv.Itoa(r.Rank))
	o.w.WriteByte('\t')
	o.w.WriteString(submission.FormatScore(r.Score))
	o.w.WriteByte('\t')
	o.w.WriteString(runTag)
	if err := o.w.WriteByte('\n'); err != nil {
		return errors.Newf(errors.ErrIO, "writing %s: %v", o.tmp, err)
	}
	return nil
}

// close flushes and closes the temp file. Later calls are no-ops.
func (o *output) close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	flushErr := o.w.Flush()
	closeErr := o.f.Close()
	if flushErr != nil {
		return errors.Newf(errors.ErrIO, "flushing %s: %v", o.tmp, flushErr)
	}
	if closeErr != nil {
		return errors.Newf(errors.ErrIO, "closing %s: %v", o.tmp, closeErr)
	}
	return nil
}

// outputs holds the writers of one submission file, indexed like
// filter.Thresholds.
type outputs [filter.NumThresholds]*output

// openOutputs creates the temp files for every threshold. On error the
// files created so far are removed.
func openOutputs(pathFor func(threshold int) string) (*outputs, error) {
	var outs outputs
	for i, t := range filter.Thresholds {
		final := pathFor(t)
		if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
			outs.discard()
			return nil, errors.Newf(errors.ErrIO, "creating output directory for threshold %d: %v", t, err)
		}
		tmp := final + tmpSuffix
		f, err := os.Create(tmp)
		if err != nil {
			outs.discard()
			return nil, errors.Newf(errors.ErrIO, "creating output for threshold %d: %v", t, err)
		}
		outs[i] = &output{
			threshold: t,
			final:     final,
			tmp:       tmp,
			f:         f,
			w:         bufio.NewWriterSize(f, 64*1024),
		}
	}
	return &outs, nil
}

// commit closes every writer and moves the temp files into place. If any
// step fails, nothing is left behind.
func (outs *outputs) commit() error {
	for _, o := range outs {
		if err := o.close(); err != nil {
			outs.discard()
			return err
		}
	}
	for _, o := range outs {
		if err := os.Rename(o.tmp, o.final); err != nil {
			outs.discard()
			return errors.Newf(errors.ErrIO, "renaming %s: %v", o.tmp, err)
		}
		o.renamed = true
	}
	return nil
}

// discard closes every writer and deletes its files.
func (outs *outputs) discard() {
	for _, o := range outs {
		if o == nil {
			continue
		}
		o.close()
		if o.renamed {
			os.Remove(o.final)
			continue
		}
		os.Remove(o.tmp)
	}
}

func (outs *outputs) paths() []string {
	paths := make([]string, 0, len(outs))
	for _, o := range outs {
		paths = append(paths, o.final)
	}
	return paths
}

