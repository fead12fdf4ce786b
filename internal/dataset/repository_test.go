package dataset

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/bondalloc/internal/contracts"
	"github.com/wonny/bondalloc/pkg/config"
	"github.com/wonny/bondalloc/pkg/database"
)

func TestRepository_UpsertAndLoad(t *testing.T) {
	// Skip if DATABASE_URL is not set
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := database.New(ctx, &config.Config{Database: config.DatabaseConfig{URL: url, MaxConns: 2, MinConns: 1}})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.EnsureSchema(ctx))

	instruments, err := ParseCSV(strings.NewReader(sample), contracts.DefaultSectors())
	require.NoError(t, err)

	repo := NewRepository(db.Pool)
	n, err := repo.Upsert(ctx, instruments)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// second upsert must not duplicate
	_, err = repo.Upsert(ctx, instruments)
	require.NoError(t, err)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)

	byTicker := map[string]contracts.Instrument{}
	for _, inst := range loaded {
		byTicker[inst.Ticker] = inst
	}
	assert.Equal(t, instruments[1], byTicker["SPAB"])
}
