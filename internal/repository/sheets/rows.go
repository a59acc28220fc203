package sheets

import (
	"fmt"
	"strings"
	"time"

	"github.com/mamadbah2/tirecost/internal/domain/models"
)

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2006-01-02 15:04:05", "02/01/2006 15:04:05"}

func cell(row []interface{}, idx int) string {
	if idx >= len(row) || row[idx] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}

func parseNumber(row []interface{}, idx int) (float64, error) {
	if idx >= len(row) {
		return 0, models.ErrEmptyAmount
	}
	switch v := row[idx].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return models.ParseAmount(cell(row, idx))
}

// parseOptionalNumber treats a blank cell as 0.
func parseOptionalNumber(row []interface{}, idx int) (float64, error) {
	if cell(row, idx) == "" {
		return 0, nil
	}
	return parseNumber(row, idx)
}

func parseDate(row []interface{}, idx int) (time.Time, error) {
	str := cell(row, idx)
	if str == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			return t, nil
		}
	}
	if len(str) > 10 {
		return time.Parse(dateLayouts[0], str[:10])
	}
	return time.Time{}, fmt.Errorf("unsupported date %q", str)
}

func parseFlag(row []interface{}, idx int) bool {
	if idx < len(row) {
		if b, ok := row[idx].(bool); ok {
			return b
		}
	}
	switch strings.ToLower(cell(row, idx)) {
	case "true", "1", "sim", "s", "yes", "x", "arquivado", "archived":
		return true
	default:
		return false
	}
}
