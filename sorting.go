package pdfrag

import (
	"fmt"
	"slices"
	"strings"
)

type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// SortParams are rendered straight into SQL, so stores must check them
// with Valid against their own list of sortable columns first.
type SortParams struct {
	Limit int
	By    string
	Order SortOrder
}

func (p SortParams) Empty() bool {
	return p.Limit == 0 && p.By == "" && p.Order == ""
}

func (p SortParams) Valid(sortableBy []string) bool {
	if p.Limit < 0 {
		return false
	}

	if p.By != "" && !slices.Contains(sortableBy, p.By) {
		return false
	}

	switch p.Order {
	case "", SortOrderAsc, SortOrderDesc:
	default:
		return false
	}

	return true
}

func (p SortParams) SQL() string {
	var b strings.Builder

	if p.By != "" {
		fmt.Fprintf(&b, " order by %s", p.By)
		if p.Order != "" {
			fmt.Fprintf(&b, " %s", strings.ToLower(string(p.Order)))
		}
	}

	if p.Limit > 0 {
		fmt.Fprintf(&b, " limit %d", p.Limit)
	}

	return b.String()
}
