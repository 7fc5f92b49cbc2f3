package db

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolOptions(t *testing.T) {
	cfg, err := pgxpool.ParseConfig("postgres://u:p@localhost:5432/app?pool_max_conns=4")
	require.NoError(t, err)
	assert.EqualValues(t, 4, cfg.MaxConns)

	WithMaxConns(0)(cfg)
	assert.EqualValues(t, 4, cfg.MaxConns, "non-positive override is ignored")

	WithMaxConns(16)(cfg)
	WithApplicationName("captionhub-api")(cfg)

	assert.EqualValues(t, 16, cfg.MaxConns)
	assert.Equal(t, "captionhub-api", cfg.ConnConfig.RuntimeParams["application_name"])
}

func TestNewPool_BadURL(t *testing.T) {
	_, err := NewPool(t.Context(), "postgres://u:p@localhost:5432/%zz")
	assert.Error(t, err)
}
