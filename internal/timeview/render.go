package timeview

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Cell marks used by RenderText.
const (
	markEmpty  = "."
	markSingle = "#"
)

// RenderText writes v as a text table: one column per slot, one line per
// reservable. Busy cells show "#", or the reservation count when more
// than one reservation touches the slot.
func RenderText(w io.Writer, v *View) error {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.SetTitle(fmt.Sprintf("%s / %s  %s - %s",
		v.Set, v.Type, v.Start.Format("2006-01-02 15:04"), v.End.Format("2006-01-02 15:04")))

	header := table.Row{""}
	for _, slot := range v.Slots {
		header = append(header, slot.Label)
	}
	tbl.AppendHeader(header)

	for _, row := range v.Rows {
		line := table.Row{row.Name}
		for _, cell := range row.Cells {
			line = append(line, mark(cell))
		}
		tbl.AppendRow(line)
	}

	if _, err := io.WriteString(w, tbl.Render()+"\n"); err != nil {
		return fmt.Errorf("render time view: %w", err)
	}
	return nil
}

func mark(c Cell) string {
	switch c.State {
	case CellSingle:
		return markSingle
	case CellMulti:
		return strconv.Itoa(len(c.Reservations))
	}
	return markEmpty
}
