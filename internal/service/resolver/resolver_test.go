package resolver

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mamadbah2/tirecost/internal/domain/models"
)

func pool() []models.StockRecord {
	return []models.StockRecord{
		{ItemID: "M1", ItemName: "Borracha Natural", ItemType: models.ItemMaterial, UnitCost: 5},
		{ItemID: "M2", ItemName: "Aço", ItemType: models.ItemMaterial, UnitCost: 3},
		{ItemID: "M3", ItemName: "Borracha", ItemType: models.ItemMaterial, UnitCost: 7},
		{ItemID: "M4", ItemName: "", ItemType: models.ItemMaterial, UnitCost: 1},
	}
}

func TestResolve_Tiers(t *testing.T) {
	testCases := []struct {
		name    string
		ref     models.Reference
		wantID  string
		wantTir Tier
	}{
		{"id wins over name", models.Reference{ID: "M2", Name: "Borracha"}, "M2", TierID},
		{"exact name beats earlier substring", models.Reference{Name: "  borracha "}, "M3", TierExactName},
		{"unknown id falls back to name", models.Reference{ID: "X9", Name: "aço"}, "M2", TierExactName},
		{"candidate contains target", models.Reference{Name: "natural"}, "M1", TierContains},
		{"target contains candidate", models.Reference{Name: "Aço Carbono 1020"}, "M2", TierContains},
		{"first in pool order wins within tier", models.Reference{Name: "borr"}, "M1", TierContains},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := Resolve(tc.ref, pool(), stockKey)
			if !m.Found {
				t.Fatalf("expected a match for %+v", tc.ref)
			}
			if m.Item.ItemID != tc.wantID {
				t.Fatalf("ItemID=%q, want %q", m.Item.ItemID, tc.wantID)
			}
			if m.Tier != tc.wantTir {
				t.Fatalf("Tier=%s, want %s", m.Tier, tc.wantTir)
			}
		})
	}
}

func TestResolve_Misses(t *testing.T) {
	testCases := []struct {
		name string
		ref  models.Reference
	}{
		{"empty reference", models.Reference{}},
		{"blank name", models.Reference{Name: "   "}},
		{"no match", models.Reference{Name: "Nylon"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := Resolve(tc.ref, pool(), stockKey)
			if m.Found || m.Tier != TierNone || m.Index != -1 {
				t.Fatalf("expected miss, got %+v", m)
			}
		})
	}

	if m := Resolve(models.Reference{Name: "x"}, []models.StockRecord(nil), stockKey); m.Found {
		t.Fatal("expected miss on empty pool")
	}
}

func TestResolveInText(t *testing.T) {
	products := []models.StockRecord{
		{ItemID: "P1", ItemName: "Pneu Aro 13"},
		{ItemID: "P2", ItemName: "Pneu Aro 14"},
	}

	m := ResolveInText("Venda de 4 PNEU ARO 14 para cliente", products, stockKey)
	if !m.Found || m.Item.ItemID != "P2" {
		t.Fatalf("expected P2, got %+v", m)
	}

	if m := ResolveInText("Venda avulsa", products, stockKey); m.Found {
		t.Fatalf("expected miss, got %+v", m)
	}
}

func TestResolver_LogsFuzzyAndMisses(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := New(zap.New(core))

	r.Material(models.Reference{ID: "M1"}, pool())
	r.Material(models.Reference{Name: "natural"}, pool())
	r.Material(models.Reference{Name: "Nylon"}, pool())

	if got := logs.FilterMessage("resolved by partial name").Len(); got != 1 {
		t.Fatalf("partial-name logs=%d, want 1", got)
	}
	if got := logs.FilterMessage("reference not resolved").Len(); got != 1 {
		t.Fatalf("miss logs=%d, want 1", got)
	}
	if got := logs.Len(); got != 2 {
		t.Fatalf("total logs=%d, want 2 (id matches are silent)", got)
	}
}
