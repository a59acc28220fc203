package models

import (
	"errors"
	"fmt"
	"strings"
)

// Keys of the structured sale description.
const (
	KeyProductID   = "ID_Produto"
	KeyQuantity    = "Qtd"
	KeyProductName = "Produto"
	KeyUnitPrice   = "Preço Unit"
	KeyProductType = "TIPO_PRODUTO"
)

// ProductClass tags a sale as a sale of manufactured or resold goods.
type ProductClass string

const (
	ClassFinal    ProductClass = "final"
	ClassResale   ProductClass = "revenda"
	ClassUntagged ProductClass = ""
	ClassUnknown  ProductClass = "unknown"
)

// CountsAsManufactured reports whether the class belongs to the
// manufactured-goods profit analysis. Untagged sales predate the tag.
func (c ProductClass) CountsAsManufactured() bool {
	return c == ClassFinal || c == ClassUntagged
}

var (
	// ErrEmptyDescription is returned for blank descriptions.
	ErrEmptyDescription = errors.New("empty sale description")
	// ErrMissingField is returned when a required key is absent.
	ErrMissingField = errors.New("missing field")
	// ErrInvalidField is returned when a key holds an unparsable value.
	ErrInvalidField = errors.New("invalid field")
)

// ParseError describes why a sale description could not be parsed.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("sale description: %s %s: %q", e.Err, e.Field, e.Value)
	}
	if e.Field != "" {
		return fmt.Sprintf("sale description: %s %s", e.Err, e.Field)
	}
	return fmt.Sprintf("sale description: %s", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SaleProductInfo is the product link extracted from a sale description.
type SaleProductInfo struct {
	ProductID    string       `json:"product_id,omitempty"`
	ProductName  string       `json:"product_name,omitempty"`
	Quantity     float64      `json:"quantity"`
	UnitPrice    float64      `json:"unit_price,omitempty"`
	HasUnitPrice bool         `json:"has_unit_price"`
	Class        ProductClass `json:"class"`
}

// Ref returns the product link as a resolvable reference.
func (i SaleProductInfo) Ref() Reference {
	return Reference{ID: i.ProductID, Name: i.ProductName}
}

// HasProduct reports whether the description named a product by id or name.
func (i SaleProductInfo) HasProduct() bool {
	return !i.Ref().IsZero()
}

// SplitDescription breaks a description into its key/value tokens. Tokens
// without a colon are ignored; the first occurrence of a key wins.
func SplitDescription(description string) map[string]string {
	fields := make(map[string]string)
	for _, token := range strings.Split(description, "|") {
		key, value, ok := strings.Cut(token, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, seen := fields[key]; seen {
			continue
		}
		fields[key] = strings.TrimSpace(value)
	}
	return fields
}

// ParseProductClass maps the TIPO_PRODUTO value onto a ProductClass.
func ParseProductClass(value string) ProductClass {
	switch NormalizeName(value) {
	case "":
		return ClassUntagged
	case "final":
		return ClassFinal
	case "revenda":
		return ClassResale
	default:
		return ClassUnknown
	}
}

// ParseSaleDescription extracts the product link of a sale. A positive Qtd
// is required. The product must be named by ID_Produto or Produto; when
// neither is present the partially filled info is returned together with an
// ErrMissingField error so callers can try a free-text fallback.
func ParseSaleDescription(description string) (SaleProductInfo, error) {
	if strings.TrimSpace(description) == "" {
		return SaleProductInfo{}, &ParseError{Err: ErrEmptyDescription}
	}

	fields := SplitDescription(description)
	info := SaleProductInfo{
		ProductID:   fields[KeyProductID],
		ProductName: fields[KeyProductName],
		Class:       ParseProductClass(fields[KeyProductType]),
	}

	rawQty, ok := fields[KeyQuantity]
	if !ok || rawQty == "" {
		return info, &ParseError{Field: KeyQuantity, Err: ErrMissingField}
	}
	qty, err := ParseLocalizedAmount(rawQty)
	if err != nil || qty <= 0 {
		return info, &ParseError{Field: KeyQuantity, Value: rawQty, Err: ErrInvalidField}
	}
	info.Quantity = qty

	if rawPrice, ok := fields[KeyUnitPrice]; ok && rawPrice != "" {
		if price, err := ParseLocalizedAmount(rawPrice); err == nil {
			info.UnitPrice = price
			info.HasUnitPrice = true
		}
	}

	if !info.HasProduct() {
		return info, &ParseError{Field: KeyProductID, Err: ErrMissingField}
	}

	return info, nil
}

// IsMissingProduct reports whether err only lacks the product identity, so
// the quantity and class in the returned info are usable.
func IsMissingProduct(err error) bool {
	var perr *ParseError
	if !errors.As(err, &perr) {
		return false
	}
	return errors.Is(perr.Err, ErrMissingField) && perr.Field == KeyProductID
}
