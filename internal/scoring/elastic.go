package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/logger"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
)

// Elastic reads percentiles from an index holding one document per ranked
// page, keyed by IDField.
type Elastic struct {
	client          *elasticsearch.TypedClient
	index           string
	idField         string
	percentileField string
	logger          *slog.Logger
}

func NewElastic(client *elasticsearch.TypedClient, cfg config.ElasticsearchConfig) *Elastic {
	return &Elastic{
		client:          client,
		index:           cfg.Index,
		idField:         cfg.IDField,
		percentileField: cfg.PercentileField,
		logger:          logger.WithComponent("elastic-scoring").With("index", cfg.Index),
	}
}

// Percentile issues a term query for docID. Zero hits is ErrNotFound; more
// than one hit is logged and the first one is used.
func (e *Elastic) Percentile(ctx context.Context, docID string) (int, error) {
	res, err := e.client.Search().
		Index(e.index).
		Query(&types.Query{
			Term: map[string]types.TermQuery{
				e.idField: {Value: docID},
			},
		}).
		Size(2).
		Do(ctx)
	if err != nil {
		return 0, &ServiceError{Backend: "elasticsearch", DocID: docID, Err: err}
	}

	hits := res.Hits.Hits
	if len(hits) == 0 {
		e.logger.Warn("cannot find docID", "doc_id", docID)
		return 0, notFound("elasticsearch/"+e.index, docID)
	}
	if len(hits) != 1 {
		e.logger.Warn("docID returned many hits", "doc_id", docID, "hits", len(hits))
	}

	p, err := e.decode(docID, hits[0].Source_)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return 0, err
		}
		return 0, &ServiceError{Backend: "elasticsearch", DocID: docID, Err: err}
	}
	return Validate(docID, p)
}

func (e *Elastic) decode(docID string, source json.RawMessage) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(source))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return 0, fmt.Errorf("decoding _source: %w", err)
	}
	raw, ok := doc[e.percentileField]
	if !ok {
		return 0, fmt.Errorf("_source has no %q field", e.percentileField)
	}
	return toPercentile(docID, raw)
}

// toPercentile accepts integers, whole-valued floats and integer strings.
// Fractional or out-of-range numbers are validation errors; they are never
// rounded into range.
func toPercentile(docID string, v any) (int, error) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			if n < 0 || n >= MaxPercentile {
				return 0, &ValidationError{DocID: docID, Raw: t.String()}
			}
			return int(n), nil
		}
		f, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("percentile %q is not a number", t.String())
		}
		if f != math.Trunc(f) || f < 0 || f >= MaxPercentile {
			return 0, &ValidationError{DocID: docID, Raw: t.String()}
		}
		return int(f), nil
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, fmt.Errorf("percentile %q is not an integer", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("percentile has unexpected type %T", v)
	}
}
