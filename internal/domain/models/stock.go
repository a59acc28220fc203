package models

import "strings"

// ItemType distinguishes raw materials from finished products in stock.
type ItemType string

const (
	ItemMaterial ItemType = "material"
	ItemProduct  ItemType = "product"
)

// ParseItemType maps the stock sheet labels onto an ItemType.
func ParseItemType(value string) (ItemType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "material", "materia-prima", "matéria-prima", "materia prima", "matéria prima":
		return ItemMaterial, true
	case "product", "produto":
		return ItemProduct, true
	default:
		return "", false
	}
}

// StockRecord captures the current quantity and unit cost of an item.
// ItemID is unique; ItemName is neither unique nor stable.
type StockRecord struct {
	ItemID   string   `json:"item_id"`
	ItemName string   `json:"item_name"`
	ItemType ItemType `json:"item_type"`
	UnitCost float64  `json:"unit_cost"`
	Quantity float64  `json:"quantity"`
}

// Ref returns the record as a resolvable reference.
func (s StockRecord) Ref() Reference {
	return Reference{ID: s.ItemID, Name: s.ItemName}
}

// FilterStock returns the records of the given type, preserving order.
func FilterStock(records []StockRecord, itemType ItemType) []StockRecord {
	out := make([]StockRecord, 0, len(records))
	for _, r := range records {
		if r.ItemType == itemType {
			out = append(out, r)
		}
	}
	return out
}
