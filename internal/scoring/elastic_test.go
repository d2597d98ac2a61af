package scoring

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/elastic"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCluster answers _search requests from a docID -> hit sources table.
func fakeCluster(t *testing.T, sources map[string][]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if !strings.HasSuffix(r.URL.Path, "/_search") {
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, `{}`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Query struct {
				Term map[string]struct {
					Value string `json:"value"`
				} `json:"term"`
			} `json:"query"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		docID := req.Query.Term["docid"].Value
		if docID == "explode" {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"error":{"type":"exception","reason":"boom"},"status":500}`)
			return
		}

		hits := make([]map[string]any, 0)
		for i, src := range sources[docID] {
			hits = append(hits, map[string]any{
				"_index":  "spam09a",
				"_id":     docID + string(rune('a'+i)),
				"_score":  1.0,
				"_source": json.RawMessage(src),
			})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"took":      1,
			"timed_out": false,
			"_shards":   map[string]int{"total": 1, "successful": 1, "skipped": 0, "failed": 0},
			"hits": map[string]any{
				"total":     map[string]any{"value": len(hits), "relation": "eq"},
				"max_score": 1.0,
				"hits":      hits,
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newElastic(t *testing.T, srv *httptest.Server) *Elastic {
	t.Helper()
	cfg := config.ElasticsearchConfig{
		Addresses:       []string{srv.URL},
		Index:           "spam09a",
		IDField:         "docid",
		PercentileField: "percentile",
	}
	client, err := elastic.NewClient(cfg)
	require.NoError(t, err)
	return NewElastic(client, cfg)
}

func TestElasticPercentile(t *testing.T) {
	srv := fakeCluster(t, map[string][]string{
		"one":     {`{"docid":"one","percentile":73}`},
		"float":   {`{"docid":"float","percentile":41.0}`},
		"string":  {`{"docid":"string","percentile":"12"}`},
		"many":    {`{"docid":"many","percentile":5}`, `{"docid":"many","percentile":88}`},
		"invalid": {`{"docid":"invalid","percentile":100}`},
		"nofield": {`{"docid":"nofield"}`},
		"neg":     {`{"docid":"neg","percentile":-0.5}`},
		"over":    {`{"docid":"over","percentile":100.5}`},
		"frac":    {`{"docid":"frac","percentile":99.9}`},
	})
	e := newElastic(t, srv)
	ctx := context.Background()

	p, err := e.Percentile(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, 73, p)

	p, err = e.Percentile(ctx, "float")
	require.NoError(t, err)
	assert.Equal(t, 41, p)

	p, err = e.Percentile(ctx, "string")
	require.NoError(t, err)
	assert.Equal(t, 12, p)

	p, err = e.Percentile(ctx, "many")
	require.NoError(t, err)
	assert.Equal(t, 5, p, "first hit wins")

	_, err = e.Percentile(ctx, "absent")
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))

	_, err = e.Percentile(ctx, "invalid")
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))

	for _, id := range []string{"neg", "over", "frac"} {
		_, err = e.Percentile(ctx, id)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, id)
		assert.Equal(t, errors.KindValidation, errors.KindOf(err), id)
	}
	_, err = e.Percentile(ctx, "neg")
	assert.EqualError(t, err, "percentile invalid -0.5 for neg")

	_, err = e.Percentile(ctx, "nofield")
	assert.Equal(t, errors.KindService, errors.KindOf(err))

	_, err = e.Percentile(ctx, "explode")
	assert.Equal(t, errors.KindService, errors.KindOf(err))
}

func TestToPercentile(t *testing.T) {
	n, err := toPercentile("d", json.Number("17"))
	require.NoError(t, err)
	assert.Equal(t, 17, n)

	n, err = toPercentile("d", json.Number("17.0"))
	require.NoError(t, err)
	assert.Equal(t, 17, n)

	for _, raw := range []string{"17.9", "-0.5", "100.5", "100", "-3", "1e300"} {
		_, err = toPercentile("d", json.Number(raw))
		assert.Equal(t, errors.KindValidation, errors.KindOf(err), raw)
	}

	_, err = toPercentile("d", true)
	assert.Error(t, err)
	_, err = toPercentile("d", "x")
	assert.Error(t, err)
}
