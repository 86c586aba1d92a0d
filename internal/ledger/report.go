package ledger

import (
	"cmp"
	"slices"

	"conti/internal/core"
)

const unknownName = "Unknown"

// BuildReport summarizes expenses for year, or for year/month when month is
// between 1 and 12. Settlements never count as spending. Names are resolved
// from members and groups; unresolved payers show as "Unknown" and
// unresolved groups as the general group.
func BuildReport(year, month int, txs []core.Transaction, members []core.Member, groups []core.Group) core.Report {
	report := core.Report{Year: year, Month: month}

	memberNames := make(map[string]string, len(members))
	for _, m := range members {
		memberNames[m.ID] = m.Name
	}
	groupNames := make(map[string]string, len(groups))
	for _, g := range groups {
		groupNames[g.ID] = g.Name
	}

	var byGroup, byPayer []core.NamedAmount
	groupIdx := map[string]int{}
	payerIdx := map[string]int{}
	add := func(list *[]core.NamedAmount, idx map[string]int, name string, amount float64) {
		if i, ok := idx[name]; ok {
			(*list)[i].Amount += amount
			return
		}
		idx[name] = len(*list)
		*list = append(*list, core.NamedAmount{Name: name, Amount: amount})
	}

	for _, tx := range txs {
		if tx.IsSettlement() || !inPeriod(tx, year, month) {
			continue
		}
		report.Transactions = append(report.Transactions, tx)
		report.Total += tx.Amount

		gName, ok := groupNames[tx.GroupID]
		if !ok {
			gName = core.GeneralGroupName
		}
		add(&byGroup, groupIdx, gName, tx.Amount)

		pName, ok := memberNames[tx.PayerID]
		if !ok {
			pName = unknownName
		}
		add(&byPayer, payerIdx, pName, tx.Amount)
	}

	slices.SortStableFunc(report.Transactions, func(a, b core.Transaction) int {
		return b.Date.Compare(a.Date)
	})
	report.ByGroup = sortDesc(byGroup)
	report.ByPayer = sortDesc(byPayer)
	if len(report.ByGroup) > 0 {
		top := report.ByGroup[0]
		report.TopGroup = &top
	}
	if len(report.ByPayer) > 0 {
		top := report.ByPayer[0]
		report.TopPayer = &top
	}
	return report
}

func inPeriod(tx core.Transaction, year, month int) bool {
	if tx.Date.Year() != year {
		return false
	}
	return month < 1 || month > 12 || int(tx.Date.Month()) == month
}

func sortDesc(in []core.NamedAmount) []core.NamedAmount {
	slices.SortStableFunc(in, func(a, b core.NamedAmount) int {
		return cmp.Compare(b.Amount, a.Amount)
	})
	return in
}
