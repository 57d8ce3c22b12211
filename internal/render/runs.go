package render

import (
	"strconv"
	"strings"
	"time"

	"github.com/metalagman/costplan/internal/history"
)

// Runs renders stored runs as a table.
func Runs(records []history.Record) string {
	if len(records) == 0 {
		return labelStyle.Render("no runs recorded") + "\n"
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		target := r.TargetID
		if target == "" {
			target = "-"
		}
		status := r.Status
		if r.Aborted && r.Found() {
			status += " (aborted)"
		}
		rows = append(rows, []string{
			r.ID,
			r.CreatedAt.Local().Format(time.DateTime),
			status,
			target,
			Number(r.CostBenefit),
			strconv.Itoa(r.Steps),
			r.Duration.String(),
		})
	}
	return newTable([]string{"id", "created", "status", "target", "cost/benefit", "steps", "duration"}, rows, 4, 5, 6) + "\n"
}

// Run renders one stored run with its plan.
func Run(r history.Record) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Run "+r.ID) + "\n")
	b.WriteString(field("created", r.CreatedAt.Local().Format(time.DateTime)) + "\n")
	b.WriteString(field("knowledge base", r.KBPath) + "\n")
	b.WriteString(field("heuristic", r.Heuristic) + "\n")
	b.WriteString(field("status", r.Status) + "\n")
	if r.Found() && r.Aborted {
		b.WriteString(warningStyle.Render(abortedNote(r.Steps)) + "\n")
	}
	if r.Found() {
		b.WriteString(field("target", r.TargetID) + "\n")
		b.WriteString(field("cost", Number(r.Cost)) + "\n")
		b.WriteString(field("cost/benefit", Number(r.CostBenefit)) + "\n")
	}
	b.WriteString(field("steps", strconv.Itoa(r.Steps)) + "  ")
	b.WriteString(field("closed", strconv.Itoa(r.Closed)) + " ")
	b.WriteString(labelStyle.Render("("+percent(r.Closed, r.Open+r.Closed)+" of nodes)") + "\n")

	if len(r.Plan) > 0 {
		rows := make([][]string, 0, len(r.Plan))
		for i, id := range r.Plan {
			rows = append(rows, []string{strconv.Itoa(i + 1), id})
		}
		b.WriteString(newTable([]string{"#", "action"}, rows, 0) + "\n")
	}
	for _, w := range r.Warnings {
		b.WriteString(warningStyle.Render("warning: "+w.Kind+" at "+w.Path) + "\n")
	}
	return b.String()
}
