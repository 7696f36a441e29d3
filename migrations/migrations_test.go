package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestFS_ContainsOrderedSQL(t *testing.T) {
	names, err := fs.Glob(FS, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(names) < 3 {
		t.Fatalf("expected at least 3 migrations, got %v", names)
	}
	for _, table := range []string{"group_home", "resident", "staff", "resident_ledger", "cash_count", "incident_report"} {
		found := false
		for _, n := range names {
			b, _ := fs.ReadFile(FS, n)
			if strings.Contains(string(b), "CREATE TABLE IF NOT EXISTS "+table+" (") {
				found = true
			}
		}
		if !found {
			t.Errorf("no migration creates table %s", table)
		}
	}
}
