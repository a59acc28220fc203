package sheets

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/tirecost/internal/config"
)

// ErrEmptyRange is returned when a read is asked for a blank range.
var ErrEmptyRange = errors.New("sheet range must not be empty")

// Repository defines the read operations the snapshot loader needs.
type Repository interface {
	ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error)
	BatchReadRanges(ctx context.Context, sheetRanges []string) (map[string][][]interface{}, error)
}

// GoogleSheetRepository implements the Repository interface using the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a read-only Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// ReadRange fetches a rectangular data range from the spreadsheet.
func (r *GoogleSheetRepository) ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	if sheetRange == "" {
		return nil, ErrEmptyRange
	}

	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, sheetRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", sheetRange, err)
	}

	return resp.Values, nil
}

// BatchReadRanges fetches several ranges in one API call, keyed by the
// requested range.
func (r *GoogleSheetRepository) BatchReadRanges(ctx context.Context, sheetRanges []string) (map[string][][]interface{}, error) {
	if len(sheetRanges) == 0 {
		return map[string][][]interface{}{}, nil
	}

	resp, err := r.service.Spreadsheets.Values.BatchGet(r.spreadsheetID).
		Ranges(sheetRanges...).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("batch read %d ranges: %w", len(sheetRanges), err)
	}

	// The API answers in request order with normalized range names.
	out := make(map[string][][]interface{}, len(sheetRanges))
	for i, vr := range resp.ValueRanges {
		if i >= len(sheetRanges) {
			break
		}
		out[sheetRanges[i]] = vr.Values
	}

	r.logger.Debug("ranges fetched", zap.Int("ranges", len(out)))
	return out, nil
}
