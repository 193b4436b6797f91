package main

import (
	"testing"

	"github.com/chrissnell/haldane/internal/deco"
)

func TestTable(t *testing.T) {
	rows, err := table(deco.KindBuhlmann, 9, 42, 3, 18)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 12 {
		t.Fatalf("expected 12 rows, got %d", len(rows))
	}
	if !deco.Unlimited(rows[0].ndl) {
		t.Errorf("9 m: expected no limit, got %d", rows[0].ndl)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].ndl > rows[i-1].ndl {
			t.Errorf("NDL increased from %d at %.0f m to %d at %.0f m",
				rows[i-1].ndl, rows[i-1].depth, rows[i].ndl, rows[i].depth)
		}
	}
}
