package costing

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/tirecost/internal/domain/models"
)

// SimulationItem asks for a batch of quantity units of a recipe.
type SimulationItem struct {
	RecipeID string  `json:"recipe_id"`
	Quantity float64 `json:"quantity"`
}

// SimulationInput is a multi-recipe batch. Options and Pools apply to every
// item alike.
type SimulationInput struct {
	Items   []SimulationItem   `json:"items"`
	Options models.CostOptions `json:"options"`
	Pools   CostPools          `json:"pools"`
}

// SimulationError explains why an item was left out of the aggregate.
type SimulationError struct {
	RecipeID string `json:"recipe_id"`
	Reason   string `json:"reason"`
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation item %q: %s", e.RecipeID, e.Reason)
}

// SimulationLine is the costing of one item.
type SimulationLine struct {
	RecipeID    string               `json:"recipe_id"`
	ProductName string               `json:"product_name,omitempty"`
	Quantity    float64              `json:"quantity"`
	Valid       bool                 `json:"valid"`
	Error       *SimulationError     `json:"error,omitempty"`
	CostPerUnit float64              `json:"cost_per_unit"`
	TotalCost   float64              `json:"total_cost"`
	Breakdown   models.CostBreakdown `json:"breakdown"`
	Recipe      *RecipeCost          `json:"recipe,omitempty"`
}

// SimulationResult aggregates the valid lines weighted by quantity.
type SimulationResult struct {
	Lines              []SimulationLine     `json:"lines"`
	TotalQuantity      float64              `json:"total_quantity"`
	TotalCost          float64              `json:"total_cost"`
	AverageCostPerUnit float64              `json:"average_cost_per_unit"`
	WeightedBreakdown  models.CostBreakdown `json:"weighted_breakdown"`
	ValidCount         int                  `json:"valid_count"`
	InvalidCount       int                  `json:"invalid_count"`
}

// Simulation failure reasons.
const (
	ReasonMissingRecipeID = "recipe id is required"
	ReasonRecipeNotFound  = "recipe not found"
	ReasonRecipeInvalid   = "recipe is archived or has no materials"
	ReasonInvalidQuantity = "quantity must be positive"
)

// Simulate costs a batch spanning several recipes. Each item is composed with
// its own quantity as denominator. Invalid items are reported with a reason
// and excluded from the aggregate.
func (c *Calculator) Simulate(in SimulationInput) SimulationResult {
	out := SimulationResult{Lines: make([]SimulationLine, 0, len(in.Items))}
	var weighted models.CostBreakdown

	for _, item := range in.Items {
		line := c.simulateItem(item, in.Options, in.Pools)
		out.Lines = append(out.Lines, line)

		if !line.Valid {
			out.InvalidCount++
			c.logger.Debug("simulation item rejected",
				zap.String("recipe_id", item.RecipeID),
				zap.String("reason", line.Error.Reason))
			continue
		}

		out.ValidCount++
		out.TotalQuantity += line.Quantity
		out.TotalCost += line.TotalCost
		weighted = weighted.Add(line.Breakdown.Scale(line.Quantity))
	}

	if out.TotalQuantity > 0 {
		out.AverageCostPerUnit = out.TotalCost / out.TotalQuantity
		out.WeightedBreakdown = weighted.Scale(1 / out.TotalQuantity)
	}

	return out
}

func (c *Calculator) simulateItem(item SimulationItem, opts models.CostOptions, pools CostPools) SimulationLine {
	line := SimulationLine{RecipeID: item.RecipeID, Quantity: item.Quantity}

	fail := func(reason string) SimulationLine {
		line.Error = &SimulationError{RecipeID: item.RecipeID, Reason: reason}
		return line
	}

	if item.RecipeID == "" {
		return fail(ReasonMissingRecipeID)
	}
	recipe, ok := c.RecipeByID(item.RecipeID)
	if !ok {
		return fail(ReasonRecipeNotFound)
	}
	line.ProductName = recipe.ProductName
	if !recipe.IsValid() {
		return fail(ReasonRecipeInvalid)
	}
	if item.Quantity <= 0 {
		return fail(ReasonInvalidQuantity)
	}

	cost := c.costRecipe(recipe)
	comp := Compose(ComposeInput{
		MaterialCost: cost.Cost,
		Produced:     item.Quantity,
		Pools:        pools,
		Options:      opts,
	})

	line.Valid = true
	line.Recipe = &cost
	line.Breakdown = comp.Breakdown
	line.CostPerUnit = comp.Breakdown.Total
	line.TotalCost = comp.Breakdown.Total * item.Quantity
	return line
}
