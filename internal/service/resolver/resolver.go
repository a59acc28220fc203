// Package resolver links loosely identified references (a material name in a
// recipe, a product named in a sale description) to canonical stock records.
package resolver

import (
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/tirecost/internal/domain/models"
)

// Tier identifies which rule of the fallback chain produced a match.
type Tier int

const (
	TierNone Tier = iota
	TierID
	TierExactName
	TierContains
)

func (t Tier) String() string {
	switch t {
	case TierID:
		return "id"
	case TierExactName:
		return "exact_name"
	case TierContains:
		return "contains"
	default:
		return "none"
	}
}

// MarshalText renders the tier by name in JSON payloads.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a tier name. Unknown names decode to TierNone.
func (t *Tier) UnmarshalText(text []byte) error {
	switch string(text) {
	case "id":
		*t = TierID
	case "exact_name":
		*t = TierExactName
	case "contains":
		*t = TierContains
	default:
		*t = TierNone
	}
	return nil
}

// KeyFunc exposes the id and name of a pool candidate.
type KeyFunc[T any] func(T) models.Reference

// Match is the outcome of a resolution. Index is -1 when nothing matched.
type Match[T any] struct {
	Item  T
	Index int
	Tier  Tier
	Found bool
}

func miss[T any]() Match[T] {
	return Match[T]{Index: -1, Tier: TierNone}
}

// Resolve walks the tiers id, exact name, substring containment and stops at
// the first tier with a hit. Within a tier the first candidate in pool order
// wins. Empty ids and names never match.
func Resolve[T any](ref models.Reference, pool []T, key KeyFunc[T]) Match[T] {
	id := strings.TrimSpace(ref.ID)
	name := models.NormalizeName(ref.Name)

	if id != "" {
		for i, candidate := range pool {
			if strings.TrimSpace(key(candidate).ID) == id {
				return Match[T]{Item: candidate, Index: i, Tier: TierID, Found: true}
			}
		}
	}

	if name == "" {
		return miss[T]()
	}

	for i, candidate := range pool {
		if models.NormalizeName(key(candidate).Name) == name {
			return Match[T]{Item: candidate, Index: i, Tier: TierExactName, Found: true}
		}
	}

	for i, candidate := range pool {
		candidateName := models.NormalizeName(key(candidate).Name)
		if candidateName == "" {
			continue
		}
		if strings.Contains(candidateName, name) || strings.Contains(name, candidateName) {
			return Match[T]{Item: candidate, Index: i, Tier: TierContains, Found: true}
		}
	}

	return miss[T]()
}

// ResolveInText finds the first candidate whose name appears inside free
// text. It backs sale descriptions that never used the key/value grammar.
func ResolveInText[T any](text string, pool []T, key KeyFunc[T]) Match[T] {
	haystack := models.NormalizeName(text)
	if haystack == "" {
		return miss[T]()
	}

	for i, candidate := range pool {
		candidateName := models.NormalizeName(key(candidate).Name)
		if candidateName == "" {
			continue
		}
		if strings.Contains(haystack, candidateName) {
			return Match[T]{Item: candidate, Index: i, Tier: TierContains, Found: true}
		}
	}

	return miss[T]()
}

func stockKey(s models.StockRecord) models.Reference { return s.Ref() }

// Resolver applies the fallback chain to stock records and logs every
// non-id resolution and every miss so data drift shows up in the logs.
type Resolver struct {
	logger *zap.Logger
}

// New wires a Resolver.
func New(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger}
}

// Material resolves a material reference against material stock records.
func (r *Resolver) Material(ref models.Reference, materials []models.StockRecord) Match[models.StockRecord] {
	m := Resolve(ref, materials, stockKey)
	r.observe("material", ref, m)
	return m
}

// Product resolves a product reference against product stock records.
func (r *Resolver) Product(ref models.Reference, products []models.StockRecord) Match[models.StockRecord] {
	m := Resolve(ref, products, stockKey)
	r.observe("product", ref, m)
	return m
}

// ProductInText looks for a product name inside a free-text description.
func (r *Resolver) ProductInText(text string, products []models.StockRecord) Match[models.StockRecord] {
	m := ResolveInText(text, products, stockKey)
	r.observe("product_text", models.Reference{Name: text}, m)
	return m
}

func (r *Resolver) observe(kind string, ref models.Reference, m Match[models.StockRecord]) {
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("ref_id", ref.ID),
		zap.String("ref_name", ref.Name),
	}

	switch m.Tier {
	case TierID:
		return
	case TierExactName:
		r.logger.Debug("resolved by name", append(fields, zap.String("item_id", m.Item.ItemID))...)
	case TierContains:
		r.logger.Info("resolved by partial name", append(fields, zap.String("item_id", m.Item.ItemID), zap.String("item_name", m.Item.ItemName))...)
	default:
		r.logger.Warn("reference not resolved", fields...)
	}
}
