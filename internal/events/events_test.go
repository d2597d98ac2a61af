package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/processor"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	events []kafka.Event
	err    error
}

func (p *fakeProducer) Publish(_ context.Context, e kafka.Event) error {
	p.events = append(p.events, e)
	return p.err
}

var fixed = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPublisher(p Producer) *Publisher {
	pub := NewPublisher(p)
	pub.now = func() time.Time { return fixed }
	return pub
}

func TestFileCompletedEvent(t *testing.T) {
	prod := &fakeProducer{}
	pub := newTestPublisher(prod)

	res := pipeline.FileResult{
		Job: processor.Job{RelPath: "adhoc/runA.txt"},
		Report: processor.Report{
			RunTag:   "runA",
			Queries:  50,
			Lookups:  4000,
			Failures: map[errors.Kind]int{errors.KindNotFound: 3},
			Elapsed:  1500 * time.Millisecond,
		},
	}
	res.Report.Accepted[0] = 3900
	res.Report.Accepted[18] = 12

	require.NoError(t, pub.FileFinished(context.Background(), "run-9", res))
	require.Len(t, prod.events, 1)
	assert.Equal(t, "run-9", prod.events[0].Key)

	ev, ok := prod.events[0].Value.(FileEvent)
	require.True(t, ok)
	assert.Equal(t, FileCompleted, ev.Type)
	assert.Equal(t, "adhoc/runA.txt", ev.Path)
	assert.Equal(t, 3, ev.FailedLookups)
	assert.Equal(t, int64(1500), ev.LatencyMs)
	assert.Equal(t, 3900, ev.Accepted["spam_5"])
	assert.Equal(t, 12, ev.Accepted["spam_95"])
	assert.Len(t, ev.Accepted, 19)
	assert.Equal(t, fixed, ev.Timestamp)
}

func TestFileFailedEvent(t *testing.T) {
	prod := &fakeProducer{}
	pub := newTestPublisher(prod)

	res := pipeline.FileResult{
		Job:  processor.Job{RelPath: "bad.txt"},
		Err:  fmt.Errorf("parsing bad.txt line 3: expected 6 columns"),
		Kind: errors.KindParse,
	}
	require.NoError(t, pub.FileFinished(context.Background(), "run-9", res))
	ev := prod.events[0].Value.(FileEvent)
	assert.Equal(t, FileFailed, ev.Type)
	assert.Equal(t, "parse", ev.ErrorKind)
	assert.Contains(t, ev.Error, "line 3")
	assert.Nil(t, ev.Accepted)
}

func TestRunFinishedEvent(t *testing.T) {
	prod := &fakeProducer{err: fmt.Errorf("broker down")}
	pub := newTestPublisher(prod)

	s := pipeline.Summary{
		RunID:      "run-9",
		Discovered: 3,
		Completed:  []pipeline.FileResult{{}, {}},
		Failed:     []pipeline.FileResult{{Kind: errors.KindCancelled}},
		Elapsed:    time.Minute,
	}
	err := pub.RunFinished(context.Background(), s)
	assert.EqualError(t, err, "broker down")

	ev := prod.events[0].Value.(RunEvent)
	assert.Equal(t, RunFinished, ev.Type)
	assert.Equal(t, 2, ev.Completed)
	assert.Equal(t, 1, ev.Failed)
	assert.Equal(t, 1, ev.Cancelled)
	assert.Equal(t, int64(60000), ev.LatencyMs)
}
