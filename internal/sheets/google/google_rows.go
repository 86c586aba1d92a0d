package google

import (
	"strings"
	"time"

	"conti/internal/core"
)

// planRows lays out a plan as a values matrix: a title row, the transfers
// table and the balances table, separated by blank rows.
func planRows(plan core.Plan, names map[string]string) [][]any {
	label := func(id string) string {
		if n, ok := names[id]; ok && n != "" {
			return n
		}
		return id
	}

	title := plan.Name
	if title == "" {
		title = plan.Scope
	}
	rows := [][]any{
		{"Settlement plan", title, "Computed at", plan.ComputedAt.UTC().Format(time.RFC3339)},
		{},
		{"From", "To", "Amount"},
	}
	if len(plan.Instructions) == 0 {
		rows = append(rows, []any{"All settled"})
	}
	for _, in := range plan.Instructions {
		rows = append(rows, []any{label(in.From), label(in.To), core.RoundCents(in.Amount)})
	}

	rows = append(rows, []any{}, []any{"Member", "Paid", "Share", "Net"})
	for _, b := range plan.Balances {
		rows = append(rows, []any{
			label(b.MemberID),
			core.RoundCents(b.TotalPaid),
			core.RoundCents(b.FairShare),
			core.RoundCents(b.Net),
		})
	}
	return rows
}

// quoteSheet quotes a tab name for A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
