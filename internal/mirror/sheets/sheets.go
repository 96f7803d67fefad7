package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ledger/internal/core"
	"ledger/internal/mirror"

	gsheet "google.golang.org/api/sheets/v4"
)

const defaultRowCacheTTL = 5 * time.Minute

// Mirror copies the ledger into one Google Sheets tab, one row per
// transaction keyed by the id in column A.
type Mirror struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	mu                 sync.Mutex
	sheetID            *int64
	rowIndex           map[int64]int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

var (
	_ mirror.Mirror = (*Mirror)(nil)
	_ mirror.Pinger = (*Mirror)(nil)
)

// New creates a Sheets mirror authenticated with a service account.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheetName string) (*Mirror, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = "Ledger"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Mirror{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetName:          sheetName,
		cacheValidDuration: defaultRowCacheTTL,
	}, nil
}

func (m *Mirror) Name() string { return "sheets" }

// Ping reads the spreadsheet metadata.
func (m *Mirror) Ping(ctx context.Context) error {
	if m.svc == nil {
		return errors.New("sheets service not initialized")
	}
	_, err := m.svc.Spreadsheets.Get(m.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	return err
}

func (m *Mirror) Upsert(ctx context.Context, tx core.Transaction) error {
	if m.svc == nil {
		return errors.New("sheets service not initialized")
	}
	row, found, err := m.findRow(ctx, tx.ID)
	if err != nil {
		return err
	}

	vr := &gsheet.ValueRange{Values: [][]interface{}{encodeRow(tx)}}
	if found {
		rng := fmt.Sprintf("%s!A%d:%s%d", m.sheetName, row, lastColumn, row)
		_, err = m.svc.Spreadsheets.Values.Update(m.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update row %d in %s: %w", row, m.sheetName, err)
		}
		return nil
	}

	rng := fmt.Sprintf("%s!A:%s", m.sheetName, lastColumn)
	_, err = m.svc.Spreadsheets.Values.Append(m.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	m.invalidateRowCache()
	if err != nil {
		return fmt.Errorf("append to %s: %w", m.sheetName, err)
	}
	return nil
}

func (m *Mirror) Delete(ctx context.Context, id int64) error {
	if m.svc == nil {
		return errors.New("sheets service not initialized")
	}
	row, found, err := m.findRow(ctx, id)
	if err != nil || !found {
		return err
	}
	sheetID, err := m.tabID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	_, err = m.svc.Spreadsheets.BatchUpdate(m.spreadsheetID, req).Context(ctx).Do()
	m.invalidateRowCache()
	if err != nil {
		return fmt.Errorf("delete row %d in %s: %w", row, m.sheetName, err)
	}
	return nil
}

// Replace clears the tab and rewrites the header and every row.
func (m *Mirror) Replace(ctx context.Context, txs []core.Transaction) error {
	if m.svc == nil {
		return errors.New("sheets service not initialized")
	}
	defer m.invalidateRowCache()

	rng := fmt.Sprintf("%s!A:%s", m.sheetName, lastColumn)
	if _, err := m.svc.Spreadsheets.Values.Clear(m.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	values := make([][]interface{}, 0, len(txs)+1)
	values = append(values, header)
	for _, tx := range txs {
		values = append(values, encodeRow(tx))
	}
	_, err := m.svc.Spreadsheets.Values.Update(m.spreadsheetID, m.sheetName+"!A1", &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", m.sheetName, err)
	}
	return nil
}

// List reads every mirrored row back.
func (m *Mirror) List(ctx context.Context) ([]core.Transaction, error) {
	if m.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:%s", m.sheetName, lastColumn)
	resp, err := m.svc.Spreadsheets.Values.Get(m.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	var out []core.Transaction
	for i, row := range resp.Values {
		tx, err := decodeRow(row)
		if err != nil {
			if i > 0 {
				slog.WarnContext(ctx, "Skipping unreadable sheet row", "row", i+1, "error", err)
			}
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

// findRow returns the sheet row holding id, reading column A when the
// cached index has expired.
func (m *Mirror) findRow(ctx context.Context, id int64) (int, bool, error) {
	m.mu.Lock()
	if m.rowIndex != nil && time.Now().Before(m.cacheExpiresAt) {
		row, ok := m.rowIndex[id]
		m.mu.Unlock()
		return row, ok, nil
	}
	m.mu.Unlock()

	rng := fmt.Sprintf("%s!A:A", m.sheetName)
	resp, err := m.svc.Spreadsheets.Values.Get(m.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("read ids from %s: %w", m.sheetName, err)
	}
	index := indexRows(resp.Values)

	m.mu.Lock()
	m.rowIndex = index
	m.cacheExpiresAt = time.Now().Add(m.cacheValidDuration)
	m.mu.Unlock()

	row, ok := index[id]
	return row, ok, nil
}

func (m *Mirror) invalidateRowCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rowIndex = nil
	m.cacheExpiresAt = time.Time{}
}

// tabID resolves the numeric sheet id of the tab, needed for row deletion.
func (m *Mirror) tabID(ctx context.Context) (int64, error) {
	m.mu.Lock()
	if m.sheetID != nil {
		id := *m.sheetID
		m.mu.Unlock()
		return id, nil
	}
	m.mu.Unlock()

	ss, err := m.svc.Spreadsheets.Get(m.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == m.sheetName {
			id := s.Properties.SheetId
			m.mu.Lock()
			m.sheetID = &id
			m.mu.Unlock()
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", m.sheetName)
}
