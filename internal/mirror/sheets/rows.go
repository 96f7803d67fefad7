package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// Column layout of the mirror sheet, A through G.
var header = []interface{}{"id", "date", "type", "category", "amount", "description", "created_at"}

const lastColumn = "G"

// encodeRow converts tx into sheet cells. The amount is written as a number
// so the sheet can total it.
func encodeRow(tx core.Transaction) []interface{} {
	return []interface{}{
		tx.ID,
		tx.Date.String(),
		tx.Type.String(),
		tx.Category,
		tx.Amount.Decimal().InexactFloat64(),
		tx.Description,
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// decodeRow is the inverse of encodeRow for values read back from the API.
func decodeRow(row []interface{}) (core.Transaction, error) {
	cols := toStrings(row)
	if len(cols) < 5 {
		return core.Transaction{}, fmt.Errorf("short row: %d columns", len(cols))
	}
	id, err := strconv.ParseInt(cols[0], 10, 64)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row id %q: %w", cols[0], err)
	}
	date, err := core.ParseDate(cols[1])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %d date: %w", id, err)
	}
	amount, err := cellMoney(row[4])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %d amount: %w", id, err)
	}
	tx := core.Transaction{
		ID:       id,
		Type:     core.Type(cols[2]),
		Amount:   amount,
		Category: cols[3],
		Date:     date,
	}
	if len(cols) > 5 {
		tx.Description = cols[5]
	}
	if len(cols) > 6 && cols[6] != "" {
		if ts, err := time.Parse(time.RFC3339Nano, cols[6]); err == nil {
			tx.CreatedAt = ts
		}
	}
	return tx, nil
}

func cellMoney(v interface{}) (core.Money, error) {
	switch x := v.(type) {
	case float64:
		return core.MoneyFromDecimal(decimal.NewFromFloat(x)), nil
	default:
		return core.ParseMoney(fmt.Sprint(v))
	}
}

// indexRows maps ids found in column A to 1-based sheet row numbers.
// Rows whose first cell is not an id (header, blanks) are skipped.
func indexRows(values [][]interface{}) map[int64]int {
	out := make(map[int64]int, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(row[0])), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		out[id] = i + 1
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
