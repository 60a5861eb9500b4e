//go:build integration

package integration

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/attaboy/lottery/test/integration/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchase_OneWinnerPerNumber(t *testing.T) {
	env := testutil.NewTestEnv(t)
	game := env.CreateGame("contested", 30)

	players := make([]testutil.Player, 5)
	for i := range players {
		players[i] = env.CreatePlayer(100)
	}

	var (
		wg    sync.WaitGroup
		won   atomic.Int32
		taken atomic.Int32
	)
	for _, p := range players {
		wg.Add(1)
		go func(p testutil.Player) {
			defer wg.Done()
			resp := env.BuyTicket(game.ID, 7, p)
			defer resp.Body.Close()
			switch resp.StatusCode {
			case http.StatusCreated:
				won.Add(1)
			case http.StatusConflict:
				taken.Add(1)
			}
		}(p)
	}
	wg.Wait()

	assert.Equal(t, int32(1), won.Load())
	assert.Equal(t, int32(4), taken.Load())
	assert.Equal(t, 1, testutil.CountRows(t, env, "tickets", game.ID))

	var total int64
	for _, p := range players {
		u, err := env.Stores.Users.FindByID(context.Background(), p.ID)
		require.NoError(t, err)
		total += u.Balance
	}
	assert.Equal(t, int64(5*100-30), total)
}

func TestPurchase_InsufficientBalance(t *testing.T) {
	env := testutil.NewTestEnv(t)
	game := env.CreateGame("pricey", 500)
	player := env.CreatePlayer(100)

	resp := env.BuyTicket(game.ID, 1, player)
	testutil.AssertStatus(t, resp, http.StatusBadRequest)
	testutil.AssertErrorCode(t, resp, domain.CodeInsufficientBalance)

	testutil.AssertBalance(t, env, player.ID, 100)
	assert.Zero(t, testutil.CountRows(t, env, "tickets", game.ID))
}

func TestLedger_CompensationKeyIsIdempotent(t *testing.T) {
	env := testutil.NewTestEnv(t)
	player := env.CreatePlayer(10)
	game := env.CreateGame("direct", 5)
	ctx := context.Background()

	params := domain.CancelCompensationParams{UserID: player.ID, GameID: game.ID, Delta: 5, Refunds: 5}
	first, err := env.Core.Ledger.ExecuteCancelCompensation(ctx, params)
	require.NoError(t, err)
	assert.False(t, first.Idempotent)

	params.Delta = 999
	again, err := env.Core.Ledger.ExecuteCancelCompensation(ctx, params)
	require.NoError(t, err)
	assert.True(t, again.Idempotent)
	assert.Equal(t, first.Entry.ID, again.Entry.ID)
	assert.Equal(t, int64(5), again.Entry.Delta)

	testutil.AssertBalance(t, env, player.ID, 15)
}

func TestHealth_ReportsPostgres(t *testing.T) {
	env := testutil.NewTestEnv(t)
	resp := env.GET("/health")
	testutil.AssertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}
