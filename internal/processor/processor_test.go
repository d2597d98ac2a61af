package processor

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/filter"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noDocs = "clueweb09-en0000-00-00000"

type fixture struct {
	inputRoot  string
	outputBase string
	job        Job
}

func newFixture(t *testing.T, rel, content string) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		inputRoot:  filepath.Join(dir, "base_spam_runs"),
		outputBase: dir,
	}
	path := filepath.Join(f.inputRoot, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	f.job = Job{Path: path, RelPath: rel}
	return f
}

func (f fixture) outputRoot(threshold int) string {
	return filepath.Join(f.outputBase, "spam_"+strconv.Itoa(threshold)+"_runs")
}

func (f fixture) output(t *testing.T, threshold int) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.outputRoot(threshold), f.job.RelPath))
	require.NoError(t, err)
	return string(data)
}

func (f fixture) options(lookup scoring.Lookup) Options {
	return Options{OutputRoot: f.outputRoot, Lookup: lookup, NoResultDocID: noDocs}
}

func TestProcessWritesEveryThreshold(t *testing.T) {
	f := newFixture(t, "adhoc/runA.txt",
		"1 Q0 d1 1 3.5 runA\n1 Q0 d2 2 2 runA\n1 Q0 d3 3 1.25 runA\n2 Q0 d4 1 9 runA\n")
	lookup := scoring.NewStatic(map[string]int{"d1": 10, "d2": 50, "d3": 90, "d4": 4})

	report, err := Process(context.Background(), f.job, f.options(lookup))
	require.NoError(t, err)

	assert.Equal(t, "runA", report.RunTag)
	assert.Equal(t, 2, report.Queries)
	assert.Equal(t, 4, report.Entries)
	assert.Equal(t, 4, report.Lookups)
	assert.Equal(t, 0, report.FailedLookups())
	assert.Len(t, report.Outputs, filter.NumThresholds)

	assert.Equal(t,
		"1\tQ0\td1\t1\t3.5\trunA\n1\tQ0\td2\t2\t2\trunA\n1\tQ0\td3\t3\t1.25\trunA\n2\tQ0\t"+noDocs+"\t1\t0\trunA\n",
		f.output(t, 10))
	assert.Equal(t,
		"1\tQ0\td2\t1\t2\trunA\n1\tQ0\td3\t2\t1.25\trunA\n2\tQ0\t"+noDocs+"\t1\t0\trunA\n",
		f.output(t, 50))
	assert.Equal(t,
		"1\tQ0\t"+noDocs+"\t1\t0\trunA\n2\tQ0\t"+noDocs+"\t1\t0\trunA\n",
		f.output(t, 95))

	// query 2 falls back at every threshold, query 1 from 95 up
	assert.Equal(t, filter.NumThresholds+1, report.Fallbacks)
	assert.Equal(t, 3, report.Accepted[0])
}

func TestProcessIsIdempotent(t *testing.T) {
	f := newFixture(t, "runB.txt", "5 Q0 a 1 1 tagB\n5 Q0 b 2 0.5 tagB\n")
	lookup := scoring.NewStatic(map[string]int{"a": 70, "b": 20})

	_, err := Process(context.Background(), f.job, f.options(lookup))
	require.NoError(t, err)
	first := make(map[int]string)
	for _, th := range filter.Thresholds {
		first[th] = f.output(t, th)
	}

	_, err = Process(context.Background(), f.job, f.options(lookup))
	require.NoError(t, err)
	for _, th := range filter.Thresholds {
		assert.Equal(t, first[th], f.output(t, th), "threshold %d", th)
	}
}

func TestProcessLookupFailureDropsOnlyDocument(t *testing.T) {
	f := newFixture(t, "runC.txt", "1 Q0 ok 1 2 c\n1 Q0 gone 2 1 c\n1 Q0 weird 3 0.5 c\n")
	lookup := scoring.NewStatic(map[string]int{"ok": 30, "weird": -1})

	report, err := Process(context.Background(), f.job, f.options(lookup))
	require.NoError(t, err)
	assert.Equal(t, 2, report.FailedLookups())
	assert.Equal(t, 1, report.Failures[errors.KindNotFound])
	assert.Equal(t, 1, report.Failures[errors.KindValidation])
	assert.Equal(t, "1\tQ0\tok\t1\t2\tc\n", f.output(t, 30))
}

func TestProcessParseErrorWritesNothing(t *testing.T) {
	f := newFixture(t, "broken.txt", "1 Q0 a 1 2 tag\nnot a valid line\n")

	_, err := Process(context.Background(), f.job, f.options(scoring.NewStatic(nil)))
	require.Error(t, err)
	assert.Equal(t, errors.KindParse, errors.KindOf(err))

	for _, th := range filter.Thresholds {
		_, statErr := os.Stat(f.outputRoot(th))
		assert.True(t, os.IsNotExist(statErr), "threshold %d root should not exist", th)
	}
}

func TestProcessCancelledLeavesNoOutputs(t *testing.T) {
	f := newFixture(t, "runD.txt", "1 Q0 a 1 2 d\n2 Q0 b 1 2 d\n")
	ctx, cancel := context.WithCancel(context.Background())
	lookup := scoring.LookupFunc(func(ctx context.Context, docID string) (int, error) {
		if docID == "b" {
			cancel()
			return 0, ctx.Err()
		}
		return 50, nil
	})

	_, err := Process(ctx, f.job, f.options(lookup))
	require.ErrorIs(t, err, context.Canceled)

	for _, th := range filter.Thresholds {
		entries, readErr := os.ReadDir(f.outputRoot(th))
		require.NoError(t, readErr)
		assert.Empty(t, entries, "threshold %d", th)
	}
}

func TestProcessReplacesStaleOutputOnlyOnSuccess(t *testing.T) {
	f := newFixture(t, "runE.txt", "1 Q0 a 1 2 e\n")
	stale := filepath.Join(f.outputRoot(50), f.job.RelPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Process(ctx, f.job, f.options(scoring.NewStatic(map[string]int{"a": 60})))
	require.Error(t, err)
	assert.Equal(t, "old\n", f.output(t, 50))

	_, err = Process(context.Background(), f.job, f.options(scoring.NewStatic(map[string]int{"a": 60})))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(f.output(t, 50), "1\tQ0\ta\t1\t2\te"))
}

func TestProcessRateLimitedPastDeadlineWritesNothing(t *testing.T) {
	f := newFixture(t, "runF.txt", "1 Q0 a 1 3 p\n1 Q0 b 2 2 p\n1 Q0 c 3 1 p\n")
	guard := scoring.NewGuard(scoring.NewStatic(map[string]int{"a": 90, "b": 90, "c": 90}),
		scoring.GuardConfig{Name: "static", RateLimit: 1, Burst: 1}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	report, err := Process(ctx, f.job, f.options(guard))
	require.Error(t, err)
	assert.Equal(t, errors.KindTimeout, errors.KindOf(err))
	assert.Equal(t, 0, report.FailedLookups())

	for _, th := range filter.Thresholds {
		entries, readErr := os.ReadDir(f.outputRoot(th))
		require.NoError(t, readErr)
		assert.Empty(t, entries, "threshold %d", th)
	}
}
