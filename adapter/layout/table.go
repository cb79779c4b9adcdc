package layout

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

type Table struct {
	Title string
	Rows  []Row
}

type Row []string

func parseTables(logger *zap.Logger, html string) ([]Table, error) {
	unescaped := strings.ReplaceAll(html, `\"`, `"`)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(unescaped))
	if err != nil {
		return nil, err
	}

	var (
		tables              = []Table{}
		rowSpan, rowSpanIdx int
		rowSpanCell         string
	)

	doc.Find("table").Each(func(i int, tableSel *goquery.Selection) {
		aTable := Table{}
		tableSel.Find("tr").Each(func(index int, rowSel *goquery.Selection) {
			aRow := Row{}
			idx := 0
			rowSel.Find("td, th").Each(func(index int, cellSel *goquery.Selection) {
				cellSpanStr, cellSpanExists := cellSel.Attr("rowspan")
				if cellSpanExists {
					span, err := strconv.Atoi(cellSpanStr)
					if err != nil {
						logger.Sugar().With("error", err).Warn("failed to parse rowspan attribute")
					} else {
						rowSpan = span - 1
						rowSpanIdx = idx
						rowSpanCell = cellText(cellSel)
					}
				} else if rowSpan > 0 && rowSpanIdx == idx {
					// Repeat the spanning cell in the rows it covers.
					aRow = append(aRow, rowSpanCell)
					rowSpan -= 1
					idx += 1
				}
				aRow = append(aRow, cellText(cellSel))
				idx += 1
			})
			if emptyRow(aRow) {
				return
			}
			aTable.Rows = append(aTable.Rows, aRow)
		})
		if caption := strings.TrimSpace(tableSel.Find("caption").First().Text()); caption != "" {
			aTable.Title = caption
		}
		tables = append(tables, aTable)
	})

	for i, aTable := range tables {
		if aTable.Title == "" && len(aTable.Rows) > 1 && len(aTable.Rows[0]) < len(aTable.Rows[1]) {
			// A leading row narrower than the next one is a title, not a header.
			tables[i].Title = strings.Join(aTable.Rows[0], " ")
			tables[i].Rows = aTable.Rows[1:]
		}
	}

	return tables, nil
}

// Text renders the table one row per line, cells separated by pipes.
func (t Table) Text() string {
	lines := make([]string, 0, len(t.Rows)+1)
	if t.Title != "" {
		lines = append(lines, t.Title)
	}
	for _, aRow := range t.Rows {
		lines = append(lines, strings.Join(aRow, " | "))
	}
	return strings.Join(lines, "\n")
}

func tableText(logger *zap.Logger, html string) (string, error) {
	tables, err := parseTables(logger, html)
	if err != nil {
		return "", err
	}
	texts := make([]string, 0, len(tables))
	for _, aTable := range tables {
		texts = append(texts, aTable.Text())
	}
	return strings.Join(texts, "\n\n"), nil
}

func cellText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
