package ledger

import (
	"encoding/json"
	"testing"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- ensureJSON Tests ---

func TestEnsureJSON(t *testing.T) {
	t.Run("nil returns empty object", func(t *testing.T) {
		result := ensureJSON(nil)
		assert.Equal(t, json.RawMessage(`{}`), result)
	})

	t.Run("non-nil passthrough", func(t *testing.T) {
		data := json.RawMessage(`{"key":"value"}`)
		result := ensureJSON(data)
		assert.Equal(t, data, result)
	})
}

// --- mergeMeta Tests ---

func TestMergeMeta(t *testing.T) {
	t.Run("nil base with extras", func(t *testing.T) {
		result := mergeMeta(nil, map[string]interface{}{"refunds": 100, "reversed": 50})
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(result, &m))
		assert.Equal(t, float64(100), m["refunds"])
		assert.Equal(t, float64(50), m["reversed"])
	})

	t.Run("existing base with extras", func(t *testing.T) {
		base := json.RawMessage(`{"game_id":"g1"}`)
		result := mergeMeta(base, map[string]interface{}{"ticket_number": 7})
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(result, &m))
		assert.Equal(t, "g1", m["game_id"])
		assert.Equal(t, float64(7), m["ticket_number"])
	})

	t.Run("extras overwrite base", func(t *testing.T) {
		base := json.RawMessage(`{"refunds":100}`)
		result := mergeMeta(base, map[string]interface{}{"refunds": 200})
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(result, &m))
		assert.Equal(t, float64(200), m["refunds"])
	})

	t.Run("empty extras", func(t *testing.T) {
		base := json.RawMessage(`{"key":"val"}`)
		result := mergeMeta(base, map[string]interface{}{})
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(result, &m))
		assert.Equal(t, "val", m["key"])
	})
}

// --- validateInvariants Tests ---

func TestValidateInvariants(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Balance: 80}

	t.Run("consistent history", func(t *testing.T) {
		entries := []domain.LedgerEntry{
			{Delta: -20, BalanceAfter: 80, IdempotencyKey: "b"},
			{Delta: 100, BalanceAfter: 100, IdempotencyKey: "a"},
		}
		for _, c := range validateInvariants(user, entries, false) {
			assert.True(t, c.Passed, c.Name)
		}
	})

	t.Run("sum mismatch", func(t *testing.T) {
		entries := []domain.LedgerEntry{{Delta: 50, BalanceAfter: 80, IdempotencyKey: "a"}}
		checks := validateInvariants(user, entries, false)
		require.Len(t, checks, 3)
		assert.True(t, checks[0].Passed)
		assert.False(t, checks[1].Passed)
	})

	t.Run("duplicate keys", func(t *testing.T) {
		entries := []domain.LedgerEntry{
			{Delta: 40, BalanceAfter: 80, IdempotencyKey: "a"},
			{Delta: 40, BalanceAfter: 40, IdempotencyKey: "a"},
		}
		checks := validateInvariants(user, entries, false)
		assert.False(t, checks[2].Passed)
	})

	t.Run("empty ledger needs zero balance", func(t *testing.T) {
		checks := validateInvariants(user, nil, false)
		assert.False(t, checks[0].Passed)
	})

	t.Run("truncated history skips sums", func(t *testing.T) {
		entries := []domain.LedgerEntry{{Delta: 1, BalanceAfter: 80}}
		checks := validateInvariants(user, entries, true)
		require.Len(t, checks, 3)
		assert.Equal(t, "history truncated", checks[1].Detail)
	})
}
