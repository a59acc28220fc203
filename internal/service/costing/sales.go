package costing

import (
	"github.com/mamadbah2/tirecost/internal/domain/models"
	"github.com/mamadbah2/tirecost/internal/service/resolver"
)

// SaleLink is a sale description resolved to a product name.
type SaleLink struct {
	Info        models.SaleProductInfo
	ProductName string
	Tier        resolver.Tier
	FreeText    bool
	Err         error
}

// LinkSale extracts the product and quantity of a sale description. The
// key/value grammar is tried first; when it names no product, the product
// names in stock are searched in the raw text. A product named in the
// description is resolved against product stock; the stock name is used
// when it has a valid recipe, otherwise the typed name is kept.
func (c *Calculator) LinkSale(description string) SaleLink {
	info, err := models.ParseSaleDescription(description)
	link := SaleLink{Info: info}

	switch {
	case err == nil:
	case models.IsMissingProduct(err):
		m := c.resolver.ProductInText(description, c.products)
		if !m.Found {
			link.Err = err
			return link
		}
		link.FreeText = true
		link.Tier = m.Tier
		link.ProductName = m.Item.ItemName
		return link
	default:
		link.Err = err
		return link
	}

	m := c.resolver.Product(info.Ref(), c.products)
	link.Tier = m.Tier

	switch {
	case m.Found && (c.HasRecipe(m.Item.ItemName) || info.ProductName == ""):
		link.ProductName = m.Item.ItemName
	case info.ProductName != "":
		link.ProductName = info.ProductName
	default:
		link.Err = &models.ParseError{Field: models.KeyProductName, Value: info.ProductID, Err: models.ErrMissingField}
	}

	return link
}
