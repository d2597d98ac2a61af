package tracing

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "run", "trace-1")
	fctx, file := StartChildSpan(ctx, "process_file")
	_, q := StartChildSpan(fctx, "filter_query")
	q.SetAttr("query_id", 401)
	q.End(nil)
	file.End(fmt.Errorf("io"))
	root.End(nil)

	require.Len(t, root.Children, 1)
	require.Len(t, file.Children, 1)
	assert.Equal(t, "trace-1", q.TraceID)
	assert.Equal(t, 401, q.Attrs["query_id"])
	assert.EqualError(t, file.Err, "io")
	assert.Same(t, file, SpanFromContext(fctx))
}

func TestChildWithoutParent(t *testing.T) {
	_, s := StartChildSpan(context.Background(), "orphan")
	assert.Empty(t, s.TraceID)
}

func TestLogOnlyAtDebug(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "run", "t")
	_, child := StartChildSpan(ctx, "child")
	child.End(nil)
	root.End(nil)

	var buf bytes.Buffer
	info := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	root.Log(ctx, info)
	assert.Empty(t, buf.String())

	debug := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	root.Log(ctx, debug)
	assert.Equal(t, 2, strings.Count(buf.String(), "msg=span"))
	assert.Contains(t, buf.String(), "depth=1")
}
