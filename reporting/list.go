package reporting

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-shunit/types"
)

// ListTests writes the registry as a table of index, name and description
func ListTests(out io.Writer, tests []types.TestMetadata) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	style := table.StyleLight
	style.Format.Footer = text.FormatDefault
	t.SetStyle(style)
	t.AppendHeader(table.Row{"#", "Name", "Description"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Description", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, test := range tests {
		t.AppendRow(table.Row{test.Index, test.Name, test.Description})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d %s", len(tests), Pluralize("test", len(tests))), ""})
	t.Render()
}
