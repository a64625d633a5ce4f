package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetStore implements TableStore against one worksheet of a Google
// spreadsheet, authenticated with a service-account credentials file.
type SheetStore struct {
	svc           *sheets.Service
	spreadsheetID string
	worksheet     string
}

// NewSheetStore connects to the Sheets API.
func NewSheetStore(ctx context.Context, credentialsFile, spreadsheetID, worksheet string) (*SheetStore, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return &SheetStore{svc: svc, spreadsheetID: spreadsheetID, worksheet: worksheet}, nil
}

// ReadAll fetches the whole worksheet. The first row is the header; a
// completely empty sheet yields a nil header and no rows.
func (s *SheetStore) ReadAll() ([]string, [][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.worksheet).Do()
	if err != nil {
		return nil, nil, wrapSheetsErr("read", err)
	}
	if len(resp.Values) == 0 {
		return nil, nil, nil
	}
	all := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, 0, len(row))
		for _, v := range row {
			cells = append(cells, fmt.Sprint(v))
		}
		all = append(all, cells)
	}
	return all[0], all[1:], nil
}

// AppendRows appends rows below the last non-empty row of the worksheet.
func (s *SheetStore) AppendRows(rows [][]string) error {
	vr := &sheets.ValueRange{Values: toInterfaceRows(rows)}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.worksheet, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Do()
	if err != nil {
		return wrapSheetsErr("append", err)
	}
	return nil
}

// WriteRanges patches several ranges in one batch call.
func (s *SheetStore) WriteRanges(updates []RangeUpdate) error {
	data := make([]*sheets.ValueRange, 0, len(updates))
	for _, u := range updates {
		data = append(data, &sheets.ValueRange{
			Range:  s.worksheet + "!" + u.Range,
			Values: toInterfaceRows(u.Rows),
		})
	}
	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}
	_, err := s.svc.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Do()
	if err != nil {
		return wrapSheetsErr("batch update", err)
	}
	return nil
}

// wrapSheetsErr translates API quota errors into ErrRateLimited so the
// retry policy can recognize them.
func wrapSheetsErr(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 ||
			(apiErr.Code == 403 && strings.Contains(strings.ToLower(apiErr.Message), "quota")) {
			return fmt.Errorf("sheets: %s: %w: %v", op, ErrRateLimited, err)
		}
	}
	return fmt.Errorf("sheets: %s: %w", op, err)
}

func toInterfaceRows(rows [][]string) [][]interface{} {
	out := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		cells := make([]interface{}, 0, len(row))
		for _, c := range row {
			cells = append(cells, c)
		}
		out = append(out, cells)
	}
	return out
}
