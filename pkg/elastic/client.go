// Package elastic builds the typed Elasticsearch client used to read spam
// percentiles and checks that the cluster answers before a run starts.
package elastic

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/config"
	"github.com/elastic/go-elasticsearch/v8"
)

// NewClient creates a typed client for the configured addresses. Credentials
// are only set when both username and password are present.
func NewClient(cfg config.ElasticsearchConfig) (*elasticsearch.TypedClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}
	if cfg.Username != "" && cfg.Password != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}
	client, err := elasticsearch.NewTypedClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}
	return client, nil
}

// Ping reports whether the cluster is reachable.
func Ping(ctx context.Context, client *elasticsearch.TypedClient) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ok, err := client.Ping().Do(ctx)
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("elasticsearch ping failed: unexpected status")
	}
	return nil
}
