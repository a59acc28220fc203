package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrEmptyAmount is returned when an amount cell or token is blank.
var ErrEmptyAmount = errors.New("empty numeric value")

// dotThousands matches a value whose only separator is a dot grouping
// exactly three digits, as in "1.000".
var dotThousands = regexp.MustCompile(`^-?[0-9]{1,3}\.[0-9]{3}$`)

// ParseAmount parses quantities and money values as they are typed in the
// factory sheets: "1.234,56", "1234.56", "1,5" and "R$ 12,50" are all
// accepted. When both separators appear, the last one is the decimal mark.
func ParseAmount(raw string) (float64, error) {
	value := normalizeAmount(raw)
	if value == "" {
		return 0, ErrEmptyAmount
	}

	lastComma := strings.LastIndex(value, ",")
	lastDot := strings.LastIndex(value, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			value = strings.ReplaceAll(value, ".", "")
			value = strings.Replace(value, ",", ".", 1)
		} else {
			value = strings.ReplaceAll(value, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(value, ",") > 1 {
			value = strings.ReplaceAll(value, ",", "")
		} else {
			value = strings.Replace(value, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(value, ".") > 1 {
			value = strings.ReplaceAll(value, ".", "")
		}
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return d.InexactFloat64(), nil
}

// ParseLocalizedAmount is ParseAmount for free text typed in pt-BR, where a
// lone dot followed by three digits groups thousands: "1.500" is 1500.
func ParseLocalizedAmount(raw string) (float64, error) {
	value := normalizeAmount(raw)
	if dotThousands.MatchString(value) {
		return ParseAmount(strings.Replace(value, ".", "", 1))
	}
	return ParseAmount(raw)
}

func normalizeAmount(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "R$")
	value = strings.ReplaceAll(value, " ", "")
	return strings.ReplaceAll(value, "\u00a0", "")
}
