package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func readAll(t *testing.T) string {
	t.Helper()
	names, err := fs.Glob(FS, "*.sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("expected embedded migrations")
	}

	var b strings.Builder
	for _, name := range names {
		data, err := FS.ReadFile(name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !strings.Contains(string(data), "-- +goose Up") || !strings.Contains(string(data), "-- +goose Down") {
			t.Fatalf("%s: missing goose annotations", name)
		}
		b.Write(data)
	}
	return strings.ToLower(b.String())
}

func TestSchemaKeepsLedgerAndPromotionBackstops(t *testing.T) {
	schema := readAll(t)

	required := []string{
		"stock_quantity      integer not null default 0 check (stock_quantity >= 0)",
		"check (new_stock = previous_stock + change_amount)",
		"create unique index orders_source_lead_uidx on orders (source_type, source_lead_id) where source_lead_id is not null",
		"check ((source_type = 'manual') = (source_lead_id is null))",
		"changed_at      timestamptz not null default clock_timestamp()",
	}
	for _, fragment := range required {
		if !strings.Contains(schema, fragment) {
			t.Fatalf("expected schema fragment %q", fragment)
		}
	}
}
