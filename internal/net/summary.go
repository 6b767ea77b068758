package net

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// Summary prints one line per parameter tensor and the trainable total.
func (m *Model) Summary(w io.Writer) error {
	const rule = "_________________________________________________________________"

	lines := []string{
		"Model: BiLSTM sentiment classifier",
		rule,
		fmt.Sprintf("%-30s %-20s %12s", "Parameter", "Shape", "Param #"),
		"=================================================================",
	}
	for _, p := range m.Parameters() {
		shape := fmt.Sprintf("(%d, %d)", p.Rows, p.Cols)
		lines = append(lines, fmt.Sprintf("%-30s %-20s %12s", p.Name, shape, humanize.Comma(int64(p.Len()))))
	}
	lines = append(lines,
		"=================================================================",
		fmt.Sprintf("The model has %s trainable parameters", humanize.Comma(int64(m.CountParameters()))),
		rule,
	)

	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
