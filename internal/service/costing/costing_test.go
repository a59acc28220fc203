package costing

import (
	"math"
	"testing"
	"time"

	"github.com/mamadbah2/tirecost/internal/domain/models"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func fixtureSnapshot() models.Snapshot {
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	return models.Snapshot{
		Recipes: []models.Recipe{
			{ID: "R-A", ProductName: "Tire A", Materials: []models.MaterialRequirement{
				{MaterialID: "X", MaterialName: "MaterialX", QuantityNeeded: 2},
				{MaterialID: "Y", MaterialName: "MaterialY", QuantityNeeded: 1},
			}},
			{ID: "R-B", ProductName: "Tire B", Materials: []models.MaterialRequirement{
				{MaterialID: "X", MaterialName: "MaterialX", QuantityNeeded: 4},
			}},
			{ID: "R-OLD", ProductName: "Tire C", Archived: true, Materials: []models.MaterialRequirement{
				{MaterialID: "X", MaterialName: "MaterialX", QuantityNeeded: 1},
			}},
			{ID: "R-EMPTY", ProductName: "Tire D"},
		},
		Stock: []models.StockRecord{
			{ItemID: "X", ItemName: "MaterialX", ItemType: models.ItemMaterial, UnitCost: 5},
			{ItemID: "Y", ItemName: "MaterialY", ItemType: models.ItemMaterial, UnitCost: 3},
			{ItemID: "PA", ItemName: "Tire A", ItemType: models.ItemProduct, UnitCost: 40},
			{ItemID: "PB", ItemName: "Tire B", ItemType: models.ItemProduct, UnitCost: 60},
		},
		Production: []models.ProductionEntry{
			{
				ID: "E1", ProductName: "tire a ", ProductionDate: day, QuantityProduced: 10,
				MaterialsConsumed: []models.MaterialConsumption{{MaterialID: "X", QuantityConsumed: 20}},
				ProductionLoss:    2,
				MaterialLoss:      []models.MaterialLoss{{MaterialID: "Y", MaterialName: "MaterialY", QuantityLost: 5}},
			},
			{ID: "E2", ProductName: "Tire B", ProductionDate: day, QuantityProduced: 4},
		},
		Warranties: []models.WarrantyRecord{
			{ProductName: "Tire A", Quantity: 3, WarrantyDate: day, CustomerName: "Oficina Sul"},
			{ProductName: "Tire C", Quantity: 1, WarrantyDate: day},
		},
		DefectiveSales: []models.DefectiveSaleRecord{
			{TireName: "Tire A", Quantity: 2, SaleValue: 1000, SaleDate: day},
			{TireName: "Tire B", Quantity: 1, SaleValue: 800, SaleDate: day},
		},
		Sales: []models.SaleRecord{
			{Kind: models.KindIncome, Category: "Venda", Amount: 200, TransactionDate: day, Description: "ID_Produto: PA | Qtd: 8 | Produto: Tire A"},
			{Kind: models.KindIncome, Category: "venda", Amount: 300, TransactionDate: day, Description: "ID_Produto: PA | Qtd: 5 | TIPO_PRODUTO: revenda"},
			{Kind: models.KindExpense, Category: "Energia", Amount: 400, TransactionDate: day},
			{Kind: models.KindExpense, Category: "Aluguel", Amount: 600, TransactionDate: day},
		},
		Employees: []models.Employee{
			{ID: "1", Name: "Ana", Salary: 2000},
			{ID: "2", Name: "Bruno", Salary: 1500, Archived: true},
		},
	}
}

func newFixtureCalculator() *Calculator {
	return NewCalculator(fixtureSnapshot(), "", nil)
}

func TestRecipeCost_SumsResolvedLines(t *testing.T) {
	c := newFixtureCalculator()

	rc := c.RecipeCost("  TIRE A")
	if !rc.HasRecipe {
		t.Fatal("expected Tire A to have a recipe")
	}
	nearlyEqual(t, "cost", rc.Cost, 13)
	if len(rc.Lines) != 2 {
		t.Fatalf("lines=%d, want 2", len(rc.Lines))
	}
	nearlyEqual(t, "line X", rc.Lines[0].LineCost, 10)
	nearlyEqual(t, "line Y", rc.Lines[1].LineCost, 3)
	if rc.Unresolved != 0 {
		t.Fatalf("Unresolved=%d, want 0", rc.Unresolved)
	}
}

func TestRecipeCost_UnresolvedMaterialCostsZero(t *testing.T) {
	snap := fixtureSnapshot()
	snap.Recipes[0].Materials = append(snap.Recipes[0].Materials, models.MaterialRequirement{MaterialID: "Z", MaterialName: "Nylon", QuantityNeeded: 9})

	rc := NewCalculator(snap, "", nil).RecipeCost("Tire A")
	nearlyEqual(t, "cost", rc.Cost, 13)
	if rc.Unresolved != 1 || rc.Lines[2].Resolved {
		t.Fatalf("expected one unresolved line, got %+v", rc.Lines[2])
	}
}

func TestRecipeCost_OnlyValidRecipes(t *testing.T) {
	c := newFixtureCalculator()

	for _, name := range []string{"Tire C", "Tire D", "Tire Z", ""} {
		rc := c.RecipeCost(name)
		if rc.HasRecipe || rc.Cost != 0 {
			t.Fatalf("%q: expected no recipe, got %+v", name, rc)
		}
	}
}

func TestLosses_UsesRunCost(t *testing.T) {
	c := newFixtureCalculator()

	ls := c.Losses("Tire A")
	if ls.Entries != 1 {
		t.Fatalf("Entries=%d, want 1", ls.Entries)
	}
	// 20 X at 5 over 10 units = 10 per unit; 2 lost units.
	nearlyEqual(t, "finished loss", ls.FinishedLossValue, 20)
	// 5 Y at 3.
	nearlyEqual(t, "material loss", ls.MaterialLossValue, 15)
	nearlyEqual(t, "total loss", ls.TotalLossValue, 35)
	nearlyEqual(t, "lost qty", ls.LostQuantity, 2)
	nearlyEqual(t, "lost material qty", ls.LostMaterialQuantity, 5)
	nearlyEqual(t, "loss percentage", ls.LossPercentage, 2.0/12.0)
}

func TestLosses_ZeroProducedDoesNotDivide(t *testing.T) {
	snap := fixtureSnapshot()
	snap.Production = []models.ProductionEntry{{
		ProductName:       "Tire A",
		MaterialsConsumed: []models.MaterialConsumption{{MaterialID: "X", QuantityConsumed: 3}},
		ProductionLoss:    0,
	}}

	ls := NewCalculator(snap, "", nil).Losses("Tire A")
	nearlyEqual(t, "finished loss", ls.FinishedLossValue, 0)
	nearlyEqual(t, "loss percentage", ls.LossPercentage, 0)

	if empty := NewCalculator(models.Snapshot{}, "", nil).Losses("Tire A"); empty.Entries != 0 || empty.TotalLossValue != 0 {
		t.Fatalf("expected empty summary, got %+v", empty)
	}
}

func TestWarranty_ValuedAtRecipeCost(t *testing.T) {
	c := newFixtureCalculator()

	ws := c.Warranty("Tire A")
	nearlyEqual(t, "total value", ws.TotalValue, 39)
	nearlyEqual(t, "total qty", ws.TotalQuantity, 3)
	if ws.RecordCount != 1 || ws.Lines[0].MissingRecipe {
		t.Fatalf("unexpected warranty summary %+v", ws)
	}

	missing := c.Warranty("Tire C")
	if missing.HasRecipe || missing.TotalValue != 0 || !missing.Lines[0].MissingRecipe {
		t.Fatalf("expected flagged zero-value warranty, got %+v", missing)
	}
}

func TestDefectiveCredit(t *testing.T) {
	ds := DefectiveCredit(fixtureSnapshot().DefectiveSales)
	nearlyEqual(t, "value", ds.TotalValue, 1800)
	nearlyEqual(t, "qty", ds.TotalQuantity, 3)
	if ds.RecordCount != 2 {
		t.Fatalf("RecordCount=%d, want 2", ds.RecordCount)
	}
}

func TestPools(t *testing.T) {
	snap := fixtureSnapshot()
	nearlyEqual(t, "labor", LaborPool(snap.Employees), 2000)
	nearlyEqual(t, "cash flow", CashFlowPool(snap.Sales), 1000)
}

func TestCompose_MaterialOnly(t *testing.T) {
	comp := Compose(ComposeInput{
		MaterialCost: 13,
		Produced:     10,
		Sold:         8,
		Pools:        CostPools{Labor: 5000, CashFlow: 100},
		Options:      models.CostOptions{DivideByProduction: true},
	})

	nearlyEqual(t, "denominator", comp.Denominator, 10)
	nearlyEqual(t, "total", comp.Breakdown.Total, 13)
}

func TestCompose_ProductionLosses(t *testing.T) {
	comp := Compose(ComposeInput{
		MaterialCost: 13,
		Produced:     10,
		Sold:         8,
		Pools:        CostPools{ProductionLoss: 50},
		Options:      models.CostOptions{IncludeProductionLosses: true, DivideByProduction: true},
	})

	nearlyEqual(t, "production loss", comp.Breakdown.ProductionLossCost, 5)
	nearlyEqual(t, "total", comp.Breakdown.Total, 18)
}

func TestCompose_DefectiveCreditIsSubtracted(t *testing.T) {
	comp := Compose(ComposeInput{
		MaterialCost: 13,
		Produced:     100,
		Pools:        CostPools{DefectiveCredit: 1800},
		Options:      models.CostOptions{IncludeDefectiveSalesCredit: true, DivideByProduction: true},
	})

	nearlyEqual(t, "credit", comp.Breakdown.DefectiveSalesCredit, -18)
	nearlyEqual(t, "total", comp.Breakdown.Total, 13-18)
}

func TestCompose_WithoutDivision(t *testing.T) {
	comp := Compose(ComposeInput{
		MaterialCost: 13,
		Produced:     10,
		Pools:        CostPools{Labor: 200},
		Options:      models.CostOptions{IncludeLabor: true},
	})

	nearlyEqual(t, "labor", comp.Breakdown.LaborCost, 200)
	nearlyEqual(t, "total", comp.Breakdown.Total, 213)
}

func TestCompose_DenominatorFloor(t *testing.T) {
	nearlyEqual(t, "zero quantities", Denominator(0, 0), 1)
	nearlyEqual(t, "sold dominates", Denominator(3, 7), 7)
	nearlyEqual(t, "fractional", Denominator(0.5, 0), 1)
}

func TestCompose_ToggleInvariants(t *testing.T) {
	pools := CostPools{Labor: 300, CashFlow: 200, ProductionLoss: 50, DefectiveCredit: 1800, Warranty: 39}

	for mask := 0; mask < 64; mask++ {
		opts := models.CostOptions{
			IncludeLabor:                mask&1 != 0,
			IncludeCashFlowExpenses:     mask&2 != 0,
			IncludeProductionLosses:     mask&4 != 0,
			IncludeDefectiveSalesCredit: mask&8 != 0,
			IncludeWarrantyValue:        mask&16 != 0,
			DivideByProduction:          mask&32 != 0,
		}
		b := Compose(ComposeInput{MaterialCost: 13, Produced: 10, Sold: 8, Pools: pools, Options: opts}).Breakdown

		if !opts.IncludeLabor && b.LaborCost != 0 {
			t.Fatalf("mask %d: labor=%v with toggle off", mask, b.LaborCost)
		}
		if !opts.IncludeCashFlowExpenses && b.CashFlowCost != 0 {
			t.Fatalf("mask %d: cash flow=%v with toggle off", mask, b.CashFlowCost)
		}
		if !opts.IncludeProductionLosses && b.ProductionLossCost != 0 {
			t.Fatalf("mask %d: losses=%v with toggle off", mask, b.ProductionLossCost)
		}
		if !opts.IncludeDefectiveSalesCredit && b.DefectiveSalesCredit != 0 {
			t.Fatalf("mask %d: credit=%v with toggle off", mask, b.DefectiveSalesCredit)
		}
		if !opts.IncludeWarrantyValue && b.WarrantyCost != 0 {
			t.Fatalf("mask %d: warranty=%v with toggle off", mask, b.WarrantyCost)
		}
		if b.DefectiveSalesCredit > 0 {
			t.Fatalf("mask %d: credit=%v is positive", mask, b.DefectiveSalesCredit)
		}
		if b.Total != b.Sum() {
			t.Fatalf("mask %d: total=%v, sum=%v", mask, b.Total, b.Sum())
		}
	}
}

func TestCompose_NonPositivePoolsIgnored(t *testing.T) {
	comp := Compose(ComposeInput{
		MaterialCost: 13,
		Pools:        CostPools{Labor: -10, DefectiveCredit: -500},
		Options:      models.CostOptions{IncludeLabor: true, IncludeDefectiveSalesCredit: true},
	})

	nearlyEqual(t, "labor", comp.Breakdown.LaborCost, 0)
	nearlyEqual(t, "credit", comp.Breakdown.DefectiveSalesCredit, 0)
	nearlyEqual(t, "total", comp.Breakdown.Total, 13)
}

func TestProductCost_EndToEnd(t *testing.T) {
	c := newFixtureCalculator()

	opts := models.CostOptions{
		IncludeLabor:                true,
		IncludeCashFlowExpenses:     true,
		IncludeProductionLosses:     true,
		IncludeDefectiveSalesCredit: true,
		IncludeWarrantyValue:        true,
		DivideByProduction:          true,
	}
	pc := c.ProductCost("Tire A", opts)

	nearlyEqual(t, "produced", pc.Produced, 10)
	// The resale-tagged sale does not count as sold.
	nearlyEqual(t, "sold", pc.Sold, 8)
	nearlyEqual(t, "denominator", pc.Denominator, 10)
	nearlyEqual(t, "material", pc.Breakdown.MaterialCost, 13)
	nearlyEqual(t, "labor", pc.Breakdown.LaborCost, 200)
	nearlyEqual(t, "cash flow", pc.Breakdown.CashFlowCost, 100)
	nearlyEqual(t, "losses", pc.Breakdown.ProductionLossCost, 3.5)
	nearlyEqual(t, "credit", pc.Breakdown.DefectiveSalesCredit, -180)
	nearlyEqual(t, "warranty", pc.Breakdown.WarrantyCost, 3.9)
	nearlyEqual(t, "total", pc.CostPerUnit, 13+200+100+3.5-180+3.9)
}

func TestSimulate_WeightedAverage(t *testing.T) {
	// R-A becomes 2 X (cost 10); R-B is 4 X (cost 20).
	snap := fixtureSnapshot()
	snap.Recipes[0].Materials = []models.MaterialRequirement{{MaterialID: "X", QuantityNeeded: 2}}
	res := NewCalculator(snap, "", nil).Simulate(SimulationInput{
		Items: []SimulationItem{
			{RecipeID: "R-A", Quantity: 100},
			{RecipeID: "R-B", Quantity: 50},
		},
	})

	nearlyEqual(t, "total qty", res.TotalQuantity, 150)
	nearlyEqual(t, "total cost", res.TotalCost, 2000)
	nearlyEqual(t, "average", res.AverageCostPerUnit, 2000.0/150.0)
	nearlyEqual(t, "weighted material", res.WeightedBreakdown.MaterialCost, 2000.0/150.0)
	nearlyEqual(t, "weighted total", res.WeightedBreakdown.Total, res.AverageCostPerUnit)
	if res.ValidCount != 2 || res.InvalidCount != 0 {
		t.Fatalf("valid=%d invalid=%d", res.ValidCount, res.InvalidCount)
	}
}

func TestSimulate_PerItemDenominator(t *testing.T) {
	c := newFixtureCalculator()

	res := c.Simulate(SimulationInput{
		Items:   []SimulationItem{{RecipeID: "R-A", Quantity: 100}, {RecipeID: "R-B", Quantity: 50}},
		Options: models.CostOptions{IncludeLabor: true, DivideByProduction: true},
		Pools:   CostPools{Labor: 1000},
	})

	nearlyEqual(t, "labor A", res.Lines[0].Breakdown.LaborCost, 10)
	nearlyEqual(t, "labor B", res.Lines[1].Breakdown.LaborCost, 20)
	// (13+10)*100 + (20+20)*50 = 4300
	nearlyEqual(t, "total cost", res.TotalCost, 4300)
	nearlyEqual(t, "weighted labor", res.WeightedBreakdown.LaborCost, 2000.0/150.0)
}

func TestSimulate_InvalidItemsReported(t *testing.T) {
	c := newFixtureCalculator()

	res := c.Simulate(SimulationInput{
		Items: []SimulationItem{
			{RecipeID: "", Quantity: 10},
			{RecipeID: "R-NOPE", Quantity: 10},
			{RecipeID: "R-OLD", Quantity: 10},
			{RecipeID: "R-A", Quantity: 0},
			{RecipeID: "R-A", Quantity: 4},
		},
	})

	wantReasons := []string{ReasonMissingRecipeID, ReasonRecipeNotFound, ReasonRecipeInvalid, ReasonInvalidQuantity}
	for i, reason := range wantReasons {
		line := res.Lines[i]
		if line.Valid || line.Error == nil || line.Error.Reason != reason {
			t.Fatalf("line %d: got %+v, want reason %q", i, line, reason)
		}
	}
	if res.InvalidCount != 4 || res.ValidCount != 1 {
		t.Fatalf("valid=%d invalid=%d", res.ValidCount, res.InvalidCount)
	}
	nearlyEqual(t, "total qty", res.TotalQuantity, 4)
	nearlyEqual(t, "average", res.AverageCostPerUnit, 13)
}

func TestSimulate_EmptyBatch(t *testing.T) {
	res := newFixtureCalculator().Simulate(SimulationInput{})
	nearlyEqual(t, "average", res.AverageCostPerUnit, 0)
	nearlyEqual(t, "total qty", res.TotalQuantity, 0)
}

func TestLinkSale(t *testing.T) {
	c := newFixtureCalculator()

	testCases := []struct {
		name     string
		desc     string
		want     string
		freeText bool
		wantErr  bool
	}{
		{"id resolves to stock name", "ID_Produto: PB | Qtd: 1", "Tire B", false, false},
		{"typed name kept when stock unknown", "ID_Produto: ?? | Qtd: 1 | Produto: Tire Z", "Tire Z", false, false},
		{"free text fallback", "Venda de pneus tire b para frota | Qtd: 2", "Tire B", true, false},
		{"unresolvable id without name", "ID_Produto: 999 | Qtd: 1", "", false, true},
		{"no quantity", "ID_Produto: PA", "", false, true},
		{"free text without match", "Venda avulsa | Qtd: 2", "", false, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			link := c.LinkSale(tc.desc)
			if (link.Err != nil) != tc.wantErr {
				t.Fatalf("err=%v, wantErr=%v", link.Err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if link.ProductName != tc.want {
				t.Fatalf("ProductName=%q, want %q", link.ProductName, tc.want)
			}
			if link.FreeText != tc.freeText {
				t.Fatalf("FreeText=%v, want %v", link.FreeText, tc.freeText)
			}
		})
	}
}
