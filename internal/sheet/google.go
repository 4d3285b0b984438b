package sheet

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleConfig locates a worksheet and the service account that may edit it.
type GoogleConfig struct {
	// Spreadsheet is either the sheet URL or its bare ID.
	Spreadsheet string
	// Worksheet defaults to the first worksheet when empty.
	Worksheet       string
	CredentialsFile string
	CredentialsJSON []byte
}

// GoogleTable is a Table backed by one worksheet of a Google spreadsheet.
// Cells are written RAW so TRUE/FALSE stay text.
type GoogleTable struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	worksheet     string
}

var spreadsheetURLPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// NewGoogleTable authorizes once and resolves the worksheet to use. The
// returned table is meant to live for the whole process.
func NewGoogleTable(ctx context.Context, cfg GoogleConfig) (*GoogleTable, error) {
	id, err := SpreadsheetID(cfg.Spreadsheet)
	if err != nil {
		return nil, err
	}

	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	switch {
	case len(cfg.CredentialsJSON) > 0:
		opts = append(opts, option.WithCredentialsJSON(cfg.CredentialsJSON))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newGoogleTable(ctx, svc, id, cfg.Worksheet)
}

func newGoogleTable(ctx context.Context, svc *sheets.Service, id, worksheet string) (*GoogleTable, error) {
	if worksheet == "" {
		doc, err := svc.Spreadsheets.Get(id).Fields("sheets.properties.title").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("open spreadsheet: %w", err)
		}
		if len(doc.Sheets) == 0 || doc.Sheets[0].Properties == nil {
			return nil, fmt.Errorf("open spreadsheet: %s has no worksheets", id)
		}
		worksheet = doc.Sheets[0].Properties.Title
	}

	return &GoogleTable{
		values:        svc.Spreadsheets.Values,
		spreadsheetID: id,
		worksheet:     worksheet,
	}, nil
}

// Worksheet returns the title of the worksheet in use.
func (t *GoogleTable) Worksheet() string {
	return t.worksheet
}

func (t *GoogleTable) ReadAllRows(ctx context.Context) ([]Row, error) {
	resp, err := t.values.Get(t.spreadsheetID, quoteSheet(t.worksheet)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return Records(stringValues(resp.Values)), nil
}

func (t *GoogleTable) ReadHeaderRow(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!%d:%d", quoteSheet(t.worksheet), HeaderRow, HeaderRow)
	resp, err := t.values.Get(t.spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	values := stringValues(resp.Values)
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

func (t *GoogleTable) AppendRow(ctx context.Context, values []string) error {
	body := &sheets.ValueRange{Values: [][]interface{}{interfaceValues(values)}}
	_, err := t.values.Append(t.spreadsheetID, quoteSheet(t.worksheet)+"!A1", body).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

func (t *GoogleTable) WriteCell(ctx context.Context, row, col int, value string) error {
	rng, err := cellRange(t.worksheet, row, col)
	if err != nil {
		return err
	}
	body := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err = t.values.Update(t.spreadsheetID, rng, body).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write cell %s: %w", rng, err)
	}
	return nil
}

// SpreadsheetID extracts the document ID from a sheet URL. Anything without
// a slash is taken to be an ID already.
func SpreadsheetID(urlOrID string) (string, error) {
	value := strings.TrimSpace(urlOrID)
	if value == "" {
		return "", errors.New("spreadsheet URL or ID is required")
	}
	if !strings.Contains(value, "/") {
		return value, nil
	}
	match := spreadsheetURLPattern.FindStringSubmatch(value)
	if match == nil {
		return "", fmt.Errorf("no spreadsheet ID in %q", value)
	}
	return match[1], nil
}

// ColumnLetters converts a 1-based column index to A1 letters (1 → A, 27 → AA).
func ColumnLetters(col int) string {
	var letters []byte
	for col > 0 {
		col--
		letters = append([]byte{byte('A' + col%26)}, letters...)
		col /= 26
	}
	return string(letters)
}

func cellRange(worksheet string, row, col int) (string, error) {
	if row < 1 || col < 1 {
		return "", fmt.Errorf("cell (%d,%d) out of range", row, col)
	}
	return quoteSheet(worksheet) + "!" + ColumnLetters(col) + strconv.Itoa(row), nil
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func stringValues(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, raw := range values {
		row := make([]string, len(raw))
		for j, v := range raw {
			if v != nil {
				row[j] = fmt.Sprint(v)
			}
		}
		out[i] = row
	}
	return out
}

func interfaceValues(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
