package repository

import (
	"strings"
	"testing"
)

func TestOrderColumnsMatchScanTargets(t *testing.T) {
	columns := strings.Split(OrderColumns, ",")
	if len(columns) != 21 {
		t.Fatalf("expected 21 order columns for ScanOrder, got %d", len(columns))
	}
}

func TestHistoryColumnsMatchScanTargets(t *testing.T) {
	if got := len(strings.Split(historyColumns, ",")); got != 7 {
		t.Fatalf("expected 7 history columns, got %d", got)
	}
}

func TestHasDeductionLooksForOrderDeductions(t *testing.T) {
	query := strings.ToLower(hasDeductionQuery)
	for _, fragment := range []string{"from stock_movements", "order_id = $1", "movement_type = 'order_deduction'"} {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected %q in deduction query, got %q", fragment, query)
		}
	}
}
