package core_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"distribution-backoffice/internal/core"
)

func line(brand, model, quality string, qty int64) core.ProjectionLine {
	return core.ProjectionLine{
		Identity: core.ItemIdentity{Brand: brand, Model: model, Quality: quality},
		Qty:      decimal.NewFromInt(qty),
	}
}

func TestFoldStockRoom(t *testing.T) {
	returns := []core.ProjectionLine{
		line("Acme", "X100", "A", 5),
		line("acme", "x100", "a", 3), // same identity, different casing
		line("Bolt", "B2", "B", 2),
	}
	removals := []core.ProjectionLine{
		line("ACME", "X100", "A", 4),
	}

	levels := core.FoldStockRoom(returns, removals)
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %d: %+v", len(levels), levels)
	}

	byKey := make(map[string]decimal.Decimal)
	for _, lv := range levels {
		id := core.ItemIdentity{Brand: lv.Brand, Model: lv.Model, Quality: lv.Quality}
		byKey[id.Key()] = lv.Quantity
	}
	if got := byKey["acme|x100|a"]; !got.Equal(decimal.NewFromInt(4)) {
		t.Errorf("acme level = %s, want 4 (5+3-4)", got)
	}
	if got := byKey["bolt|b2|b"]; !got.Equal(decimal.NewFromInt(2)) {
		t.Errorf("bolt level = %s, want 2", got)
	}
}

func TestFoldStockRoom_FloorsAtZero(t *testing.T) {
	returns := []core.ProjectionLine{line("Acme", "X100", "A", 2)}
	removals := []core.ProjectionLine{line("Acme", "X100", "A", 5)}

	// Over-removal must not surface a negative level; the row disappears.
	levels := core.FoldStockRoom(returns, removals)
	if len(levels) != 0 {
		t.Errorf("over-removed identity should be dropped, got %+v", levels)
	}

	// A removal with no matching return contributes nothing.
	levels = core.FoldStockRoom(nil, removals)
	if len(levels) != 0 {
		t.Errorf("removals without returns should project empty, got %+v", levels)
	}
}

func TestFoldStockRoom_SortedByIdentity(t *testing.T) {
	returns := []core.ProjectionLine{
		line("Zeta", "Z1", "A", 1),
		line("Acme", "X100", "A", 1),
	}
	levels := core.FoldStockRoom(returns, nil)
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(levels))
	}
	if levels[0].Brand != "Acme" || levels[1].Brand != "Zeta" {
		t.Errorf("levels should be sorted by identity key: %+v", levels)
	}
}
