//go:build integration

package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/attaboy/lottery/internal/domain"
	"github.com/google/uuid"
)

// DecodeJSON reads and decodes a JSON response body into dst.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
}

// AssertStatus checks that the response has the expected HTTP status code.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertErrorCode checks that the response body contains the expected error code.
func AssertErrorCode(t *testing.T, resp *http.Response, expectedCode string) {
	t.Helper()
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	DecodeJSON(t, resp, &errResp)
	if errResp.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, errResp.Code, errResp.Message)
	}
}

// AssertBalance queries the users table and asserts the stored balance.
func AssertBalance(t *testing.T, env *TestEnv, userID uuid.UUID, expected int64) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var bal int64
	err := env.Pool.QueryRow(ctx,
		"SELECT balance::bigint FROM users WHERE id = $1", userID).Scan(&bal)
	if err != nil {
		t.Fatalf("AssertBalance: query: %v", err)
	}
	if bal != expected {
		t.Errorf("balance: expected %d, got %d", expected, bal)
	}
}

// CountEntries returns the number of ledger entries of entryType for a user.
func CountEntries(t *testing.T, env *TestEnv, userID uuid.UUID, entryType domain.EntryType) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := env.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM ledger_entries WHERE user_id = $1 AND type = $2",
		userID, string(entryType)).Scan(&count)
	if err != nil {
		t.Fatalf("CountEntries: %v", err)
	}
	return count
}

// CountRows returns the number of rows in table belonging to a game.
func CountRows(t *testing.T, env *TestEnv, table string, gameID uuid.UUID) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := env.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM "+table+" WHERE game_id = $1", gameID).Scan(&count)
	if err != nil {
		t.Fatalf("CountRows %s: %v", table, err)
	}
	return count
}

// CountOutboxEvents returns the number of outbox events of eventType for an aggregate.
func CountOutboxEvents(t *testing.T, env *TestEnv, aggregateID string, eventType domain.EventType) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := env.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM event_outbox WHERE "aggregateId" = $1 AND "eventType" = $2`,
		aggregateID, string(eventType)).Scan(&count)
	if err != nil {
		t.Fatalf("CountOutboxEvents: %v", err)
	}
	return count
}
