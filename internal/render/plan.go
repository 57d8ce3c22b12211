package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/metalagman/costplan/internal/search"
)

// Step is one action of a plan with the costs it added on its path.
type Step struct {
	Action string
	Costs  float64
	Total  float64
}

// Steps returns the steps of the winning plan, oldest first.
func Steps(r search.Result, l *search.Ledger) []Step {
	if !r.Found() {
		return nil
	}
	p, _ := r.Target.MinPath()
	var out []Step
	for {
		pred, ok := l.Predecessor(p)
		if !ok {
			break
		}
		out = append(out, Step{
			Action: l.Last(p).ID,
			Costs:  l.Costs(p) - l.Costs(pred),
			Total:  l.Costs(p),
		})
		p = pred
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Plan renders the result of a search as a summary and a step table.
func Plan(r search.Result, l *search.Ledger) string {
	var b strings.Builder
	switch r.Outcome() {
	case search.OutcomeFound:
		b.WriteString(titleStyle.Render("Plan for target "+r.Target.ID) + "\n")
	case search.OutcomeAborted:
		b.WriteString(titleStyle.Render("Search aborted without a plan") + "\n")
	default:
		b.WriteString(titleStyle.Render("No target is reachable") + "\n")
	}

	if r.Found() && r.Aborted {
		b.WriteString(warningStyle.Render(abortedNote(r.Steps)) + "\n")
	}
	if r.Found() {
		b.WriteString(field("cost", Number(r.Cost)) + "\n")
		b.WriteString(field("cost/benefit", Number(r.CostBenefit)) + "\n")
	}
	b.WriteString(field("steps", strconv.Itoa(r.Steps)) + "  ")
	b.WriteString(field("open", strconv.Itoa(r.Open)) + "  ")
	b.WriteString(field("closed", strconv.Itoa(r.Closed)) + "  ")
	b.WriteString(field("duration", r.Duration.String()) + "\n")

	if steps := Steps(r, l); len(steps) > 0 {
		rows := make([][]string, 0, len(steps))
		for i, s := range steps {
			rows = append(rows, []string{strconv.Itoa(i + 1), s.Action, Number(s.Costs), Number(s.Total)})
		}
		b.WriteString(newTable([]string{"#", "action", "costs", "total"}, rows, 0, 2, 3) + "\n")
	}

	for _, t := range r.Unreachable {
		b.WriteString(warningStyle.Render("unreachable target "+t.ID) + "\n")
	}
	for _, w := range r.Warnings {
		b.WriteString(warningStyle.Render("warning: "+w.String()) + "\n")
	}
	return b.String()
}

func abortedNote(steps int) string {
	return fmt.Sprintf("search aborted after %d steps; plan may be suboptimal", steps)
}

// Number formats costs, using the infinity sign for unbounded values.
func Number(f float64) string {
	switch {
	case math.IsNaN(f):
		return "-"
	case math.IsInf(f, 1):
		return "∞"
	case math.IsInf(f, -1):
		return "-∞"
	}
	return strconv.FormatFloat(f, 'g', 6, 64)
}

func newTable(headers []string, rows [][]string, numeric ...int) string {
	right := make(map[int]bool, len(numeric))
	for _, c := range numeric {
		right[c] = true
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(labelStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case right[col]:
				return numberStyle
			default:
				return cellStyle
			}
		}).
		String()
}

func percent(part, whole int) string {
	if whole == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", 100*float64(part)/float64(whole))
}
