package visual

import (
	"fmt"
	"strings"
)

func (m appModel) View() string {
	if m.quitting {
		return "\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("chancycle"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")

		return b.String()
	}

	if m.stage != stageDone {
		fmt.Fprintf(&b, "%s %s\n", m.spin.View(), m.label)
		b.WriteString(m.prog.View())
		b.WriteString("\n")
	} else {
		b.WriteString(okStyle.Render("generation complete"))
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "blocks: %d   waste: %ds   repeats: %d   entries: %d   seed: %d\n\n",
			len(m.result.Blocks), m.result.TotalWasteS, m.result.RepeatsUsed, len(m.cycle.Entries), m.result.Seed)

		if m.hasTable {
			b.WriteString(m.tbl.View())
			b.WriteString("\n\n")
		}

		if len(m.findings) == 0 {
			b.WriteString(okStyle.Render("verify: no findings"))
		} else {
			b.WriteString(warnStyle.Render(fmt.Sprintf("verify: %d finding(s)", len(m.findings))))
			b.WriteString("\n")

			for _, f := range m.findings {
				fmt.Fprintf(&b, "  %s\n", f.String())
			}
		}

		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("q to quit"))
	b.WriteString("\n")

	return b.String()
}
