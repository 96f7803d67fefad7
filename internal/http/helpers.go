package http

import (
	"net/http"
	"strconv"
	"strings"

	"ledger/internal/core"
)

// pathID reads the {id} segment as a positive integer.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Invalid("id", core.ErrInvalidID)
	}
	return id, nil
}

// pathYearMonth reads the {year} and {month} segments and range-checks them.
func pathYearMonth(r *http.Request) (year, month int, err error) {
	year, err = strconv.Atoi(r.PathValue("year"))
	if err != nil {
		return 0, 0, core.Invalid("year", core.ErrInvalidYear)
	}
	month, err = strconv.Atoi(r.PathValue("month"))
	if err != nil {
		return 0, 0, core.Invalid("month", core.ErrInvalidMonth)
	}
	if err := core.ValidateYearMonth(year, month); err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
