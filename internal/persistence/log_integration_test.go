package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/exchangecore/matchkernel/internal/core"
)

// TestSubmissionLogReplay spins up a real Postgres in a container
// (grounded on other_examples's testcontainers-go usage) and verifies
// that replaying a submission log yields the state submitting the same
// orders directly produces: a 10-lot sell filled by buys of 6 and 4
// leaves two trades (sequence 2) and an empty book — spec §6's "pure
// function of the (initial empty state, ordered submission sequence)"
// requirement.
func TestSubmissionLogReplay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in -short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("exchange"),
		postgres.WithUsername("exchange"),
		postgres.WithPassword("exchange"),
	)
	require.NoError(t, err)
	defer container.Terminate(ctx)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	submissionLog, err := OpenSubmissionLog(ctx, dsn)
	require.NoError(t, err)
	defer submissionLog.Close()

	orders := []*core.Order{
		{ID: "A", Market: "BTC-USD", Wallet: "w1", Side: core.Sell, Price: 50000, Residual: 10, Timestamp: 1},
		{ID: "B", Market: "BTC-USD", Wallet: "w2", Side: core.Buy, Price: 50000, Residual: 6, Timestamp: 2},
		{ID: "C", Market: "BTC-USD", Wallet: "w3", Side: core.Buy, Price: 50000, Residual: 4, Timestamp: 3},
	}
	for _, o := range orders {
		require.NoError(t, submissionLog.Append(ctx, o))
	}

	replayed, err := submissionLog.Replay(ctx)
	require.NoError(t, err)

	eng, ok := replayed.GetMarket("BTC-USD")
	require.True(t, ok)
	assert.Equal(t, uint64(2), eng.Sequence())
	assert.True(t, eng.Book().Empty())
}
