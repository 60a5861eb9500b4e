//go:build integration

package testutil

import (
	"context"
	"strings"
	"time"
)

// CleanAll truncates every table the lottery schema owns.
func (env *TestEnv) CleanAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tables := []string{
		"event_outbox",
		"prizes",
		"tickets",
		"games",
		"ledger_entries",
		"users",
	}

	_, err := env.Pool.Exec(ctx, "TRUNCATE "+strings.Join(tables, ", ")+" RESTART IDENTITY CASCADE")
	if err != nil {
		env.t.Fatalf("CleanAll: %v", err)
	}
}
