package repository

import (
	"strings"
	"testing"
)

func TestLockProductQueryTakesRowLock(t *testing.T) {
	query := strings.ToLower(lockProductQuery)

	if !strings.HasSuffix(strings.TrimSpace(query), "for update") {
		t.Fatalf("expected product lock query to end with FOR UPDATE, got %q", query)
	}
	if strings.Contains(query, "skip locked") {
		t.Fatal("ledger lock must wait for concurrent writers, not skip them")
	}
}
