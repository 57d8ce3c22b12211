package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/metalagman/costplan/internal/search"
)

// ExplanationMarkdown describes how the search arrived at r.
func ExplanationMarkdown(a *search.AStar, r search.Result) (string, error) {
	l := a.Model().Ledger
	var b strings.Builder

	b.WriteString("# Search explanation\n\n")
	fmt.Fprintf(&b, "- **Heuristic:** %s\n", a.Heuristic())
	fmt.Fprintf(&b, "- **Predicted cost/benefit at start:** %s\n", Number(a.PredictedCostAtStart()))
	fmt.Fprintf(&b, "- **Expanded nodes:** %d of %d generated, %d still open\n", a.ClosedCount(), a.Generated(), a.OpenCount())
	fmt.Fprintf(&b, "- **Preparation time:** %s\n", a.InitTime())
	if a.Aborted() {
		b.WriteString("- **Aborted** before the frontier was exhausted\n")
	}

	if r.Found() {
		fmt.Fprintf(&b, "\n## Plan for `%s`\n\n", r.Target.ID)
		for i, act := range r.Plan {
			fmt.Fprintf(&b, "%d. `%s`\n", i+1, act.ID)
		}
		fmt.Fprintf(&b, "\nCosts %s for a benefit of %s, cost/benefit %s.\n",
			Number(r.Cost), Number(r.Target.Benefit), Number(r.CostBenefit))
		if err := explainTarget(&b, a, r); err != nil {
			return "", err
		}
	}

	if end, ok := a.BestPathAtEnd(); ok {
		b.WriteString("\n## Frontier\n\n")
		fmt.Fprintf(&b, "The best open path `%s` has f-value %s.\n", l.Format(end.Path), Number(end.F))
	}

	if unreachable := a.Unreachable(); len(unreachable) > 0 {
		b.WriteString("\n## Unreachable targets\n\n")
		for _, t := range unreachable {
			fmt.Fprintf(&b, "- `%s`\n", t.ID)
		}
	}

	if warnings := a.ConsistencyWarnings(); len(warnings) > 0 {
		b.WriteString("\n## Consistency warnings\n\n")
		b.WriteString("The heuristic overestimated, the plan may not be optimal.\n\n")
		for _, w := range warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String(), nil
}

func explainTarget(b *strings.Builder, a *search.AStar, r search.Result) error {
	b.WriteString("\n### Costs to reach each action\n\n")
	b.WriteString("| action | minimal path costs |\n|---|---:|\n")
	for _, act := range r.Plan {
		costs, err := a.MinimalPathCosts(act)
		if err != nil {
			return fmt.Errorf("minimal path costs of %s: %w", act.ID, err)
		}
		fmt.Fprintf(b, "| `%s` | %s |\n", act.ID, Number(costs))
	}

	if len(r.Target.Actions) != 1 {
		return nil
	}
	act := r.Target.Actions[0]
	condition, err := a.TransitiveCondition(act)
	if err != nil {
		return fmt.Errorf("transitive condition of %s: %w", act.ID, err)
	}
	b.WriteString("\n### Transitive precondition\n\n")
	fmt.Fprintf(b, "`%s`\n", condition)
	if open := a.UnfulfilledConditions(search.EmptyPath, condition); len(open) > 0 {
		b.WriteString("\nUnfulfilled at the start:\n\n")
		for _, c := range open {
			fmt.Fprintf(b, "- `%s`\n", c)
		}
	}

	unexpected, err := a.UnexpectedActions()
	if err != nil && !errors.Is(err, search.ErrMultiActionTarget) && !errors.Is(err, search.ErrNoPlan) {
		return fmt.Errorf("unexpected actions: %w", err)
	}
	if len(unexpected) > 0 {
		b.WriteString("\nActions not establishing any part of it:\n\n")
		for _, u := range unexpected {
			fmt.Fprintf(b, "- `%s`\n", u.ID)
		}
	}
	return nil
}

// Markdown renders md for the terminal. An empty style detects the
// terminal background.
func Markdown(md, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
