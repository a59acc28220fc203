package costing

import (
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/tirecost/internal/domain/models"
	"github.com/mamadbah2/tirecost/internal/service/resolver"
)

// MaterialLine is one costed recipe line.
type MaterialLine struct {
	MaterialID     string        `json:"material_id"`
	MaterialName   string        `json:"material_name"`
	QuantityNeeded float64       `json:"quantity_needed"`
	UnitCost       float64       `json:"unit_cost"`
	LineCost       float64       `json:"line_cost"`
	Resolved       bool          `json:"resolved"`
	Tier           resolver.Tier `json:"match"`
	StockItemID    string        `json:"stock_item_id,omitempty"`
}

// RecipeCost is the material cost of one unit of a product.
type RecipeCost struct {
	ProductName string         `json:"product_name"`
	RecipeID    string         `json:"recipe_id,omitempty"`
	HasRecipe   bool           `json:"has_recipe"`
	Cost        float64        `json:"cost"`
	Lines       []MaterialLine `json:"lines"`
	Unresolved  int            `json:"unresolved"`
}

// FindRecipe returns the first valid recipe whose product name matches
// exactly, ignoring case and surrounding spaces.
func (c *Calculator) FindRecipe(productName string) (models.Recipe, bool) {
	if strings.TrimSpace(productName) == "" {
		return models.Recipe{}, false
	}
	for _, r := range c.snap.Recipes {
		if r.IsValid() && models.SameName(r.ProductName, productName) {
			return r, true
		}
	}
	return models.Recipe{}, false
}

// RecipeByID returns the recipe with the given id, valid or not.
func (c *Calculator) RecipeByID(id string) (models.Recipe, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Recipe{}, false
	}
	for _, r := range c.snap.Recipes {
		if strings.TrimSpace(r.ID) == id {
			return r, true
		}
	}
	return models.Recipe{}, false
}

// HasRecipe reports whether a product has a valid recipe.
func (c *Calculator) HasRecipe(productName string) bool {
	_, ok := c.FindRecipe(productName)
	return ok
}

// RecipeCost computes the material cost of one unit of productName.
func (c *Calculator) RecipeCost(productName string) RecipeCost {
	recipe, ok := c.FindRecipe(productName)
	if !ok {
		c.logger.Debug("no valid recipe for product", zap.String("product", productName))
		return RecipeCost{ProductName: productName, Lines: []MaterialLine{}}
	}
	return c.costRecipe(recipe)
}

// RecipeCostByID computes the material cost of the given recipe, if valid.
func (c *Calculator) RecipeCostByID(recipeID string) (RecipeCost, bool) {
	recipe, ok := c.RecipeByID(recipeID)
	if !ok || !recipe.IsValid() {
		return RecipeCost{Lines: []MaterialLine{}}, false
	}
	return c.costRecipe(recipe), true
}

func (c *Calculator) costRecipe(recipe models.Recipe) RecipeCost {
	out := RecipeCost{
		ProductName: recipe.ProductName,
		RecipeID:    recipe.ID,
		HasRecipe:   true,
		Lines:       make([]MaterialLine, 0, len(recipe.Materials)),
	}

	for _, req := range recipe.Materials {
		match, unitCost := c.materialUnitCost(req.Ref())
		line := MaterialLine{
			MaterialID:     req.MaterialID,
			MaterialName:   req.MaterialName,
			QuantityNeeded: req.QuantityNeeded,
			UnitCost:       unitCost,
			LineCost:       unitCost * req.QuantityNeeded,
			Resolved:       match.Found,
			Tier:           match.Tier,
		}
		if match.Found {
			line.StockItemID = match.Item.ItemID
		} else {
			out.Unresolved++
		}
		out.Cost += line.LineCost
		out.Lines = append(out.Lines, line)
	}

	return out
}
