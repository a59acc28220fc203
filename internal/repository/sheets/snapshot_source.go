package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/tirecost/internal/domain/models"
)

// Ranges names the sheet range of every record type.
type Ranges struct {
	Recipes        string
	Stock          string
	Production     string
	Consumption    string
	MaterialLoss   string
	DefectiveSales string
	Warranties     string
	CashFlow       string
	Employees      string
}

// DefaultRanges returns the layout of the factory workbook.
func DefaultRanges() Ranges {
	return Ranges{
		Recipes:        "Receitas!A:F",
		Stock:          "Estoque!A:E",
		Production:     "Producao!A:E",
		Consumption:    "ProducaoConsumo!A:D",
		MaterialLoss:   "ProducaoPerdas!A:D",
		DefectiveSales: "VendasDefeituosas!A:D",
		Warranties:     "Garantias!A:E",
		CashFlow:       "FluxoCaixa!A:F",
		Employees:      "Funcionarios!A:D",
	}
}

func (r Ranges) all() []string {
	return []string{r.Recipes, r.Stock, r.Production, r.Consumption, r.MaterialLoss, r.DefectiveSales, r.Warranties, r.CashFlow, r.Employees}
}

// SnapshotSource loads every record list from the workbook in one batch.
type SnapshotSource struct {
	repo   Repository
	ranges Ranges
	logger *zap.Logger
	now    func() time.Time
}

// NewSnapshotSource wires a loader over a sheets repository.
func NewSnapshotSource(repo Repository, ranges Ranges, logger *zap.Logger) *SnapshotSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotSource{repo: repo, ranges: ranges, logger: logger, now: time.Now}
}

// Load reads the workbook and builds a snapshot. Rows that do not parse,
// header rows included, are skipped.
func (s *SnapshotSource) Load(ctx context.Context) (models.Snapshot, error) {
	data, err := s.repo.BatchReadRanges(ctx, s.ranges.all())
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("load workbook: %w", err)
	}

	production := s.parseProduction(data[s.ranges.Production])
	s.attachConsumption(production, data[s.ranges.Consumption])
	s.attachMaterialLoss(production, data[s.ranges.MaterialLoss])

	snap := models.Snapshot{
		Recipes:        s.parseRecipes(data[s.ranges.Recipes]),
		Stock:          s.parseStock(data[s.ranges.Stock]),
		Production:     production.entries(),
		DefectiveSales: s.parseDefectiveSales(data[s.ranges.DefectiveSales]),
		Warranties:     s.parseWarranties(data[s.ranges.Warranties]),
		Sales:          s.parseCashFlow(data[s.ranges.CashFlow]),
		Employees:      s.parseEmployees(data[s.ranges.Employees]),
		LoadedAt:       s.now().UTC(),
	}

	s.logger.Info("snapshot loaded",
		zap.Int("recipes", len(snap.Recipes)),
		zap.Int("stock", len(snap.Stock)),
		zap.Int("production", len(snap.Production)),
		zap.Int("defective_sales", len(snap.DefectiveSales)),
		zap.Int("warranties", len(snap.Warranties)),
		zap.Int("cash_flow", len(snap.Sales)),
		zap.Int("employees", len(snap.Employees)))

	return snap, nil
}

func (s *SnapshotSource) skip(kind string, row []interface{}, err error) {
	s.logger.Debug("skip row", zap.String("kind", kind), zap.Any("row", row), zap.Error(err))
}

// parseRecipes groups one-material-per-row lines by recipe id, keeping
// first-seen order. A row without material registers an empty recipe.
func (s *SnapshotSource) parseRecipes(rows [][]interface{}) []models.Recipe {
	index := make(map[string]int)
	var recipes []models.Recipe

	for _, row := range rows {
		id := cell(row, 0)
		product := cell(row, 1)
		if id == "" || product == "" {
			s.skip("recipe", row, fmt.Errorf("missing recipe id or product"))
			continue
		}

		materialID, materialName := cell(row, 2), cell(row, 3)
		var line *models.MaterialRequirement
		if materialID != "" || materialName != "" {
			qty, err := parseNumber(row, 4)
			if err != nil {
				s.skip("recipe", row, err)
				continue
			}
			line = &models.MaterialRequirement{MaterialID: materialID, MaterialName: materialName, QuantityNeeded: qty}
		}

		i, ok := index[id]
		if !ok {
			i = len(recipes)
			index[id] = i
			recipes = append(recipes, models.Recipe{ID: id, ProductName: product})
		}
		if parseFlag(row, 5) {
			recipes[i].Archived = true
		}
		if line != nil {
			recipes[i].Materials = append(recipes[i].Materials, *line)
		}
	}

	return recipes
}

func (s *SnapshotSource) parseStock(rows [][]interface{}) []models.StockRecord {
	var out []models.StockRecord
	for _, row := range rows {
		itemType, ok := models.ParseItemType(cell(row, 2))
		if !ok {
			s.skip("stock", row, fmt.Errorf("unknown item type %q", cell(row, 2)))
			continue
		}
		unitCost, err := parseNumber(row, 3)
		if err != nil {
			s.skip("stock", row, err)
			continue
		}
		qty, err := parseOptionalNumber(row, 4)
		if err != nil {
			s.skip("stock", row, err)
			continue
		}
		out = append(out, models.StockRecord{
			ItemID:   cell(row, 0),
			ItemName: cell(row, 1),
			ItemType: itemType,
			UnitCost: unitCost,
			Quantity: qty,
		})
	}
	return out
}

type productionIndex struct {
	order []string
	byID  map[string]*models.ProductionEntry
}

func (p productionIndex) entries() []models.ProductionEntry {
	out := make([]models.ProductionEntry, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, *p.byID[id])
	}
	return out
}

func (s *SnapshotSource) parseProduction(rows [][]interface{}) productionIndex {
	idx := productionIndex{byID: make(map[string]*models.ProductionEntry)}
	for _, row := range rows {
		id := cell(row, 0)
		if id == "" {
			s.skip("production", row, fmt.Errorf("missing entry id"))
			continue
		}
		date, err := parseDate(row, 2)
		if err != nil {
			s.skip("production", row, err)
			continue
		}
		produced, err := parseNumber(row, 3)
		if err != nil {
			s.skip("production", row, err)
			continue
		}
		loss, err := parseOptionalNumber(row, 4)
		if err != nil {
			s.skip("production", row, err)
			continue
		}
		if _, dup := idx.byID[id]; dup {
			s.skip("production", row, fmt.Errorf("duplicate entry id %s", id))
			continue
		}
		idx.order = append(idx.order, id)
		idx.byID[id] = &models.ProductionEntry{
			ID:               id,
			ProductName:      cell(row, 1),
			ProductionDate:   date,
			QuantityProduced: produced,
			ProductionLoss:   loss,
		}
	}
	return idx
}

func (s *SnapshotSource) attachConsumption(idx productionIndex, rows [][]interface{}) {
	for _, row := range rows {
		entry, ok := idx.byID[cell(row, 0)]
		if !ok {
			s.skip("consumption", row, fmt.Errorf("unknown entry id"))
			continue
		}
		qty, err := parseNumber(row, 3)
		if err != nil {
			s.skip("consumption", row, err)
			continue
		}
		entry.MaterialsConsumed = append(entry.MaterialsConsumed, models.MaterialConsumption{
			MaterialID:       cell(row, 1),
			MaterialName:     cell(row, 2),
			QuantityConsumed: qty,
		})
	}
}

func (s *SnapshotSource) attachMaterialLoss(idx productionIndex, rows [][]interface{}) {
	for _, row := range rows {
		entry, ok := idx.byID[cell(row, 0)]
		if !ok {
			s.skip("material_loss", row, fmt.Errorf("unknown entry id"))
			continue
		}
		qty, err := parseNumber(row, 3)
		if err != nil {
			s.skip("material_loss", row, err)
			continue
		}
		entry.MaterialLoss = append(entry.MaterialLoss, models.MaterialLoss{
			MaterialID:   cell(row, 1),
			MaterialName: cell(row, 2),
			QuantityLost: qty,
		})
	}
}

func (s *SnapshotSource) parseDefectiveSales(rows [][]interface{}) []models.DefectiveSaleRecord {
	var out []models.DefectiveSaleRecord
	for _, row := range rows {
		qty, err := parseNumber(row, 1)
		if err != nil {
			s.skip("defective_sale", row, err)
			continue
		}
		value, err := parseNumber(row, 2)
		if err != nil {
			s.skip("defective_sale", row, err)
			continue
		}
		date, _ := parseDate(row, 3)
		out = append(out, models.DefectiveSaleRecord{TireName: cell(row, 0), Quantity: qty, SaleValue: value, SaleDate: date})
	}
	return out
}

func (s *SnapshotSource) parseWarranties(rows [][]interface{}) []models.WarrantyRecord {
	var out []models.WarrantyRecord
	for _, row := range rows {
		qty, err := parseNumber(row, 1)
		if err != nil {
			s.skip("warranty", row, err)
			continue
		}
		date, _ := parseDate(row, 2)
		out = append(out, models.WarrantyRecord{
			ProductName:     cell(row, 0),
			Quantity:        qty,
			WarrantyDate:    date,
			CustomerName:    cell(row, 3),
			SalespersonName: cell(row, 4),
		})
	}
	return out
}

func (s *SnapshotSource) parseCashFlow(rows [][]interface{}) []models.SaleRecord {
	var out []models.SaleRecord
	for _, row := range rows {
		kind, ok := models.ParseSaleKind(cell(row, 1))
		if !ok {
			s.skip("cash_flow", row, fmt.Errorf("unknown kind %q", cell(row, 1)))
			continue
		}
		amount, err := parseNumber(row, 3)
		if err != nil {
			s.skip("cash_flow", row, err)
			continue
		}
		date, err := parseDate(row, 4)
		if err != nil {
			s.skip("cash_flow", row, err)
			continue
		}
		out = append(out, models.SaleRecord{
			ID:              cell(row, 0),
			Kind:            kind,
			Category:        cell(row, 2),
			Amount:          amount,
			TransactionDate: date,
			Description:     cell(row, 5),
		})
	}
	return out
}

func (s *SnapshotSource) parseEmployees(rows [][]interface{}) []models.Employee {
	var out []models.Employee
	for _, row := range rows {
		salary, err := parseNumber(row, 2)
		if err != nil {
			s.skip("employee", row, err)
			continue
		}
		out = append(out, models.Employee{
			ID:       cell(row, 0),
			Name:     cell(row, 1),
			Salary:   salary,
			Archived: parseFlag(row, 3),
		})
	}
	return out
}
