// Package ledger folds transactions over a roster into per-member balances.
//
// Compute never fails. Payers, sharers or receivers missing from the roster
// are skipped, so history that mentions removed members still computes.
package ledger

import "conti/internal/core"

// Compute returns one balance per roster ID after folding txs in order.
func Compute(roster []string, txs []core.Transaction) map[string]core.Balance {
	summary := make(map[string]*core.Balance, len(roster))
	for _, id := range roster {
		if _, ok := summary[id]; ok {
			continue
		}
		summary[id] = &core.Balance{MemberID: id}
	}

	for _, tx := range txs {
		if tx.IsSettlement() {
			applySettlement(summary, tx)
			continue
		}
		applyExpense(summary, tx)
	}

	out := make(map[string]core.Balance, len(summary))
	for id, b := range summary {
		out[id] = *b
	}
	return out
}

func applyExpense(summary map[string]*core.Balance, tx core.Transaction) {
	if payer, ok := summary[tx.PayerID]; ok {
		payer.TotalPaid += tx.Amount
		payer.Net += tx.Amount
	}

	n := len(tx.SharedBy)
	if n == 0 {
		return
	}
	perShare := tx.Amount / float64(n)
	for _, id := range tx.SharedBy {
		if sharer, ok := summary[id]; ok {
			sharer.FairShare += perShare
			sharer.Net -= perShare
		}
	}
}

// Settlements move cash between two members and leave TotalPaid and
// FairShare untouched.
func applySettlement(summary map[string]*core.Balance, tx core.Transaction) {
	if payer, ok := summary[tx.PayerID]; ok {
		payer.Net += tx.Amount
	}
	if receiver, ok := summary[tx.ReceiverID()]; ok {
		receiver.Net -= tx.Amount
	}
}

// Ordered returns the balances of m in roster order. Duplicate roster IDs
// appear once, at their first position.
func Ordered(roster []string, m map[string]core.Balance) []core.Balance {
	out := make([]core.Balance, 0, len(m))
	seen := make(map[string]struct{}, len(roster))
	for _, id := range roster {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if b, ok := m[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

// ComputeOrdered is Compute followed by Ordered.
func ComputeOrdered(roster []string, txs []core.Transaction) []core.Balance {
	return Ordered(roster, Compute(roster, txs))
}

// NetSum adds up the net balances. It stays within core.Epsilon of zero when
// every transaction references only roster members.
func NetSum(balances []core.Balance) float64 {
	var sum float64
	for _, b := range balances {
		sum += b.Net
	}
	return sum
}

// Settled reports whether every balance is within core.Epsilon of zero.
func Settled(balances []core.Balance) bool {
	for _, b := range balances {
		if !core.IsZero(b.Net) {
			return false
		}
	}
	return true
}
