package scoring

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	pkgredis "github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/redis"
)

// Redis reads percentiles from a preloaded copy of the ranking. Nothing is
// written at lookup time.
type Redis struct {
	client *pkgredis.Client
}

func NewRedis(client *pkgredis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Percentile(ctx context.Context, docID string) (int, error) {
	val, ok, err := r.client.Lookup(ctx, docID)
	if err != nil {
		return 0, &ServiceError{Backend: "redis", DocID: docID, Err: err}
	}
	if !ok {
		return 0, notFound("redis", docID)
	}
	p, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return 0, &ServiceError{Backend: "redis", DocID: docID, Err: fmt.Errorf("value %q is not an integer", val)}
	}
	return Validate(docID, p)
}
