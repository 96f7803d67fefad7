package core

import (
	"net/url"
	"sort"
	"strings"
)

const (
	SortDefault  SortField = ""
	SortByDate   SortField = "date"
	SortByAmount SortField = "amount"

	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"

	// FilterAll is the sentinel the UI sends for "no constraint".
	FilterAll = "all"
)

type (
	SortField string
	SortOrder string

	// Query narrows and orders the ledger. Zero values mean "no constraint"
	// and the default ordering (date desc, createdAt desc).
	Query struct {
		Type      Type
		Category  string
		Start     Date
		End       Date
		SortBy    SortField
		SortOrder SortOrder
	}
)

// ParseQuery builds a Query from list parameters:
// type, category, startDate, endDate, sortBy, sortOrder.
// Unknown sortBy values select the default ordering.
func ParseQuery(v url.Values) (Query, error) {
	var q Query

	if s := strings.TrimSpace(v.Get("type")); s != "" && s != FilterAll {
		t, err := ParseType(s)
		if err != nil {
			return Query{}, Invalid("type", err)
		}
		q.Type = t
	}
	if s := strings.TrimSpace(v.Get("category")); s != FilterAll {
		q.Category = s
	}
	if s := strings.TrimSpace(v.Get("startDate")); s != "" {
		d, err := ParseDate(s)
		if err != nil {
			return Query{}, Invalid("startDate", err)
		}
		q.Start = d
	}
	if s := strings.TrimSpace(v.Get("endDate")); s != "" {
		d, err := ParseDate(s)
		if err != nil {
			return Query{}, Invalid("endDate", err)
		}
		q.End = d
	}

	switch SortField(strings.TrimSpace(v.Get("sortBy"))) {
	case SortByDate:
		q.SortBy = SortByDate
	case SortByAmount:
		q.SortBy = SortByAmount
	}
	if q.SortBy != SortDefault {
		switch order := SortOrder(strings.ToLower(strings.TrimSpace(v.Get("sortOrder")))); order {
		case Asc, Desc:
			q.SortOrder = order
		case "":
			q.SortOrder = Desc
		default:
			return Query{}, Invalid("sortOrder", ErrInvalidSortOrder)
		}
	}
	return q, nil
}

// Values is the inverse of ParseQuery.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Type != "" {
		v.Set("type", q.Type.String())
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if !q.Start.IsZero() {
		v.Set("startDate", q.Start.String())
	}
	if !q.End.IsZero() {
		v.Set("endDate", q.End.String())
	}
	if q.SortBy != SortDefault {
		v.Set("sortBy", string(q.SortBy))
		v.Set("sortOrder", string(q.SortOrder))
	}
	return v
}

// WithinMonth narrows the date bounds to the given month, keeping any
// tighter bound already present.
func (q Query) WithinMonth(year, month int) Query {
	first, last := MonthRange(year, month)
	if q.Start.IsZero() || q.Start.Before(first.Time) {
		q.Start = first
	}
	if q.End.IsZero() || q.End.After(last.Time) {
		q.End = last
	}
	return q
}

// Matches reports whether tx satisfies every filter of q.
func (q Query) Matches(tx Transaction) bool {
	if q.Type != "" && tx.Type != q.Type {
		return false
	}
	if q.Category != "" && tx.Category != q.Category {
		return false
	}
	if !q.Start.IsZero() && tx.Date.Before(q.Start.Time) {
		return false
	}
	if !q.End.IsZero() && tx.Date.After(q.End.Time) {
		return false
	}
	return true
}

// Apply filters txs and orders the survivors. The input slice is not modified.
func (q Query) Apply(txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if q.Matches(tx) {
			out = append(out, tx)
		}
	}
	q.Sort(out)
	return out
}

// Sort orders txs in place. An explicit sort compares only its own key;
// entries that tie keep their relative order and nothing more is promised.
func (q Query) Sort(txs []Transaction) {
	asc := q.SortOrder == Asc
	switch q.SortBy {
	case SortByDate:
		sort.SliceStable(txs, func(i, j int) bool {
			if asc {
				return txs[i].Date.Before(txs[j].Date.Time)
			}
			return txs[i].Date.After(txs[j].Date.Time)
		})
	case SortByAmount:
		sort.SliceStable(txs, func(i, j int) bool {
			if asc {
				return txs[i].Amount.Cents < txs[j].Amount.Cents
			}
			return txs[i].Amount.Cents > txs[j].Amount.Cents
		})
	default:
		sort.SliceStable(txs, func(i, j int) bool {
			a, b := txs[i], txs[j]
			if !a.Date.Equal(b.Date.Time) {
				return a.Date.After(b.Date.Time)
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		})
	}
}
