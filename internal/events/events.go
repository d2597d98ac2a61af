// Package events turns finished files and runs into Kafka messages so
// downstream evaluation jobs can start as soon as a run's outputs exist.
package events

import (
	"context"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/filter"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/kafka"
)

type Type string

const (
	FileCompleted Type = "file.completed"
	FileFailed    Type = "file.failed"
	RunFinished   Type = "run.finished"
)

type FileEvent struct {
	Type          Type           `json:"type"`
	RunID         string         `json:"run_id"`
	Path          string         `json:"path"`
	RunTag        string         `json:"run_tag,omitempty"`
	Queries       int            `json:"queries"`
	Lookups       int            `json:"lookups"`
	FailedLookups int            `json:"failed_lookups"`
	Fallbacks     int            `json:"fallbacks"`
	Accepted      map[string]int `json:"accepted,omitempty"`
	ErrorKind     string         `json:"error_kind,omitempty"`
	Error         string         `json:"error,omitempty"`
	LatencyMs     int64          `json:"latency_ms"`
	Timestamp     time.Time      `json:"timestamp"`
}

type RunEvent struct {
	Type       Type      `json:"type"`
	RunID      string    `json:"run_id"`
	Discovered int       `json:"discovered"`
	Completed  int       `json:"completed"`
	Failed     int       `json:"failed"`
	Cancelled  int       `json:"cancelled"`
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Producer is the part of kafka.Producer the publisher needs.
type Producer interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Publisher implements pipeline.Notifier on top of a Kafka producer. Events
// are keyed by run ID so one run's events stay ordered on one partition.
type Publisher struct {
	producer Producer
	now      func() time.Time
}

func NewPublisher(p Producer) *Publisher {
	return &Publisher{producer: p, now: time.Now}
}

func (p *Publisher) FileFinished(ctx context.Context, runID string, res pipeline.FileResult) error {
	ev := FileEvent{
		Type:          FileCompleted,
		RunID:         runID,
		Path:          res.Job.RelPath,
		RunTag:        res.Report.RunTag,
		Queries:       res.Report.Queries,
		Lookups:       res.Report.Lookups,
		FailedLookups: res.Report.FailedLookups(),
		Fallbacks:     res.Report.Fallbacks,
		LatencyMs:     res.Report.Elapsed.Milliseconds(),
		Timestamp:     p.now().UTC(),
	}
	if res.Err != nil {
		ev.Type = FileFailed
		ev.ErrorKind = string(res.Kind)
		ev.Error = res.Err.Error()
	} else {
		ev.Accepted = make(map[string]int, filter.NumThresholds)
		for i, t := range filter.Thresholds {
			ev.Accepted[thresholdKey(t)] = res.Report.Accepted[i]
		}
	}
	return p.producer.Publish(ctx, kafka.Event{Key: runID, Value: ev})
}

func (p *Publisher) RunFinished(ctx context.Context, s pipeline.Summary) error {
	ev := RunEvent{
		Type:       RunFinished,
		RunID:      s.RunID,
		Discovered: s.Discovered,
		Completed:  len(s.Completed),
		Failed:     len(s.Failed),
		Cancelled:  s.Cancelled(),
		LatencyMs:  s.Elapsed.Milliseconds(),
		Timestamp:  p.now().UTC(),
	}
	return p.producer.Publish(ctx, kafka.Event{Key: s.RunID, Value: ev})
}

func thresholdKey(t int) string {
	return "spam_" + strconv.Itoa(t)
}

var _ pipeline.Notifier = (*Publisher)(nil)
