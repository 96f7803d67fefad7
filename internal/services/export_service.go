package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"mime"
	"strconv"
	"strings"

	"ledger/internal/core"
	"ledger/internal/log"
)

const utf8BOM = "\ufeff"

// Locale controls the labels and filenames of an export.
type Locale struct {
	Code         string
	Header       []string
	IncomeLabel  string
	ExpenseLabel string
	AllName      string
	// MonthName formats the filename of a scoped export.
	MonthName func(year, month int) string
}

var locales = map[string]Locale{
	"en": {
		Code:         "en",
		Header:       []string{"date", "type", "category", "amount", "description"},
		IncomeLabel:  "Income",
		ExpenseLabel: "Expense",
		AllName:      "ledger_all.csv",
		MonthName: func(year, month int) string {
			return fmt.Sprintf("ledger_%04d-%02d.csv", year, month)
		},
	},
	"ko": {
		Code:         "ko",
		Header:       []string{"날짜", "유형", "카테고리", "금액", "내용"},
		IncomeLabel:  "수입",
		ExpenseLabel: "지출",
		AllName:      "가계부_내역_전체.csv",
		MonthName: func(year, month int) string {
			return fmt.Sprintf("가계부_내역_%d년%d월.csv", year, month)
		},
	},
}

// LookupLocale returns the export locale for code ("en" when empty).
func LookupLocale(code string) (Locale, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		code = "en"
	}
	l, ok := locales[code]
	return l, ok
}

func (l Locale) typeLabel(t core.Type) string {
	if t == core.Income {
		return l.IncomeLabel
	}
	return l.ExpenseLabel
}

// ExportScope restricts an export to one calendar month. The zero value
// means every record.
type ExportScope struct {
	Year  int
	Month int
}

func (s ExportScope) All() bool {
	return s.Year == 0 && s.Month == 0
}

// ParseExportScope reads the year/month query pair. Both or neither must be set.
func ParseExportScope(year, month string) (ExportScope, error) {
	year, month = strings.TrimSpace(year), strings.TrimSpace(month)
	if year == "" && month == "" {
		return ExportScope{}, nil
	}
	if year == "" || month == "" {
		return ExportScope{}, core.Invalid("scope", core.ErrIncompleteScope)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return ExportScope{}, core.Invalid("year", core.ErrInvalidYear)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return ExportScope{}, core.Invalid("month", core.ErrInvalidMonth)
	}
	if err := core.ValidateYearMonth(y, m); err != nil {
		return ExportScope{}, err
	}
	return ExportScope{Year: y, Month: m}, nil
}

// Document is a rendered export.
type Document struct {
	Filename string
	Body     []byte
	Rows     int
}

// ContentDisposition formats an attachment header; non-ASCII names are
// encoded as RFC 2231 extended parameters.
func (d Document) ContentDisposition() string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": d.Filename})
}

type ExportOptions struct {
	Locale string
	BOM    bool
}

// ExportService renders query results as CSV.
type ExportService struct {
	queries *QueryService
	locale  Locale
	bom     bool
}

func NewExportService(queries *QueryService, opts ExportOptions) (*ExportService, error) {
	l, ok := LookupLocale(opts.Locale)
	if !ok {
		return nil, fmt.Errorf("unknown export locale %q", opts.Locale)
	}
	return &ExportService{queries: queries, locale: l, bom: opts.BOM}, nil
}

func (s *ExportService) Filename(scope ExportScope) string {
	if scope.All() {
		return s.locale.AllName
	}
	return s.locale.MonthName(scope.Year, scope.Month)
}

// Export runs q, narrowed to scope, and renders one row per record in
// query order beneath a header row.
func (s *ExportService) Export(ctx context.Context, q core.Query, scope ExportScope) (*Document, error) {
	if !scope.All() {
		if err := core.ValidateYearMonth(scope.Year, scope.Month); err != nil {
			return nil, err
		}
		q = q.WithinMonth(scope.Year, scope.Month)
	}

	txs, err := s.queries.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	var buf bytes.Buffer
	if s.bom {
		buf.WriteString(utf8BOM)
	}
	if err := s.write(&buf, txs); err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}

	fields := log.NewFields().WithComponent(log.ComponentExport).WithOperation(log.OpExport)
	if !scope.All() {
		fields[log.FieldYear] = scope.Year
		fields[log.FieldMonth] = scope.Month
	}
	slog.DebugContext(ctx, "Export rendered", append(fields.ToSlice(), "rows", len(txs), "bytes", buf.Len())...)

	return &Document{
		Filename: s.Filename(scope),
		Body:     buf.Bytes(),
		Rows:     len(txs),
	}, nil
}

func (s *ExportService) write(buf *bytes.Buffer, txs []core.Transaction) error {
	w := csv.NewWriter(buf)
	if err := w.Write(s.locale.Header); err != nil {
		return err
	}
	for _, tx := range txs {
		record := []string{
			tx.Date.String(),
			s.locale.typeLabel(tx.Type),
			tx.Category,
			tx.Amount.String(),
			tx.Description,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
