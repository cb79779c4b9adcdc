package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testTables = `<table>
  <tr><td colspan="2">Scope 1 and 2 Emissions (MTCO2e)</td></tr>
  <tr><td>Total Scope 1</td><td>77,476</td><td>2022</td></tr>
  <tr><td></td><td></td><td></td></tr>
  <tr><td rowspan="2">Scope 2</td><td>location</td><td>593,495</td></tr>
  <tr><td>market</td><td>4,424</td></tr>
</table>
<table>
  <caption>Offsets</caption>
  <tr><th>Year</th><th>Amount</th></tr>
  <tr><td>2022</td><td>
    82,414
  </td></tr>
</table>`

func TestParseTables(t *testing.T) {
	t.Parallel()

	tables, err := parseTables(zap.NewNop(), testTables)
	require.NoError(t, err)

	expected := []Table{
		{
			Title: "Scope 1 and 2 Emissions (MTCO2e)",
			Rows: []Row{
				{"Total Scope 1", "77,476", "2022"},
				{"Scope 2", "location", "593,495"},
				{"Scope 2", "market", "4,424"},
			},
		},
		{
			Title: "Offsets",
			Rows: []Row{
				{"Year", "Amount"},
				{"2022", "82,414"},
			},
		},
	}
	assert.Equal(t, expected, tables)
}

func TestTable_Text(t *testing.T) {
	t.Parallel()

	t.Run("empty table", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, Table{}.Text())
	})

	t.Run("title and rows", func(t *testing.T) {
		t.Parallel()

		aTable := Table{
			Title: "Offsets",
			Rows: []Row{
				{"Year", "Amount"},
				{"2022", "82,414"},
			},
		}
		assert.Equal(t, "Offsets\nYear | Amount\n2022 | 82,414", aTable.Text())
	})
}
