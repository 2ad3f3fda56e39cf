package bootstrap_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ajayykmr/sms-dispatch-service/internal/bootstrap"
	"github.com/ajayykmr/sms-dispatch-service/internal/config"
	"github.com/ajayykmr/sms-dispatch-service/internal/search"
)

func TestOpenWiresSQLiteRedisAndDBSearch(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "sms.db"), SlowQuery: time.Second},
		Redis:    config.RedisConfig{Addr: mr.Addr(), CacheTTL: time.Hour},
		Search:   config.SearchConfig{Backend: "db"},
	}

	ctx := context.Background()
	core, err := bootstrap.Open(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = core.Close() })

	require.NoError(t, core.PingDB(ctx))
	require.NoError(t, core.PingRedis(ctx))

	row, err := core.Ledger.Create(ctx, "+919876543210", "hello world", "req-1")
	require.NoError(t, err)

	page, err := core.Projector.Search(ctx, search.Criteria{Text: "hello"}, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, row.ID, page.Items[0].ID)

	require.NoError(t, core.Gate.Add(ctx, []string{"+919876543210"}))
	require.True(t, core.Gate.IsBlocked(ctx, "+919876543210"))
}

func TestOpenRejectsUnknownSearchBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "sms.db")},
		Redis:    config.RedisConfig{Addr: mr.Addr()},
		Search:   config.SearchConfig{Backend: "solr"},
	}
	_, err := bootstrap.Open(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}
