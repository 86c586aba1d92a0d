// Package settle turns net balances into a short list of transfers.
//
// The matching is greedy: the largest debtor pays the largest creditor until
// one side is cleared. It does not search for a minimum transfer count.
// Debtors and creditors are sorted stably, so members with equal balances
// keep the order of the input slice (roster order when it comes from
// ledger.Ordered).
package settle

import (
	"cmp"
	"math"
	"slices"
	"time"

	"conti/internal/core"
)

// Compute returns the transfers that settle balances. The input slice and its
// elements are not modified. Balances that are NaN or infinite take no part
// in the matching.
func Compute(balances []core.Balance) []core.Instruction {
	working := slices.Clone(balances)

	var debtors, creditors []*core.Balance
	for i := range working {
		b := &working[i]
		if math.IsNaN(b.Net) || math.IsInf(b.Net, 0) {
			continue
		}
		switch {
		case b.Net < -core.Epsilon:
			debtors = append(debtors, b)
		case b.Net > core.Epsilon:
			creditors = append(creditors, b)
		}
	}
	slices.SortStableFunc(debtors, func(a, b *core.Balance) int { return cmp.Compare(a.Net, b.Net) })
	slices.SortStableFunc(creditors, func(a, b *core.Balance) int { return cmp.Compare(b.Net, a.Net) })

	var out []core.Instruction
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor, creditor := debtors[i], creditors[j]

		amount := math.Min(math.Abs(debtor.Net), creditor.Net)
		if amount > core.Epsilon {
			out = append(out, core.Instruction{From: debtor.MemberID, To: creditor.MemberID, Amount: amount})
		}

		debtor.Net += amount
		creditor.Net -= amount

		if math.Abs(debtor.Net) < core.Epsilon {
			i++
		}
		if creditor.Net < core.Epsilon {
			j++
		}
	}
	return out
}

// Apply returns a copy of balances with every instruction applied as a real
// transfer. Instructions naming members outside balances are skipped.
func Apply(balances []core.Balance, instructions []core.Instruction) []core.Balance {
	out := slices.Clone(balances)
	index := make(map[string]int, len(out))
	for i, b := range out {
		if _, dup := index[b.MemberID]; !dup {
			index[b.MemberID] = i
		}
	}
	for _, in := range instructions {
		if i, ok := index[in.From]; ok {
			out[i].Net += in.Amount
		}
		if i, ok := index[in.To]; ok {
			out[i].Net -= in.Amount
		}
	}
	return out
}

// AsTransactions converts instructions into settlement transactions for
// groupID, dated at. IDs are left for the store to assign.
func AsTransactions(groupID string, instructions []core.Instruction, at time.Time) []core.Transaction {
	out := make([]core.Transaction, 0, len(instructions))
	for _, in := range instructions {
		out = append(out, core.Transaction{
			Title:    core.SettlementTitle,
			Amount:   in.Amount,
			PayerID:  in.From,
			SharedBy: []string{in.To},
			Date:     at,
			Kind:     core.KindSettlement,
			GroupID:  groupID,
		})
	}
	return out
}

// Total returns the sum of all instruction amounts.
func Total(instructions []core.Instruction) float64 {
	var sum float64
	for _, in := range instructions {
		sum += in.Amount
	}
	return sum
}
