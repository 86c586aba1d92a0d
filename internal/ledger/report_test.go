package ledger

import (
	"testing"
	"time"

	"conti/internal/core"
)

func TestBuildReport(t *testing.T) {
	members := []core.Member{{ID: "a", Name: "Alice"}, {ID: "b", Name: "Bob"}}
	groups := []core.Group{{ID: core.GeneralGroupID, Name: core.GeneralGroupName}, {ID: "trip", Name: "Trip"}}
	day := func(m time.Month, d int) time.Time { return time.Date(2025, m, d, 10, 0, 0, 0, time.UTC) }

	txs := []core.Transaction{
		{ID: "1", Amount: 30, PayerID: "a", SharedBy: []string{"a", "b"}, Date: day(3, 1), GroupID: "trip"},
		{ID: "2", Amount: 50, PayerID: "b", SharedBy: []string{"a", "b"}, Date: day(3, 5), GroupID: "trip"},
		{ID: "3", Amount: 20, PayerID: "a", SharedBy: []string{"a", "b"}, Date: day(3, 3)},
		{ID: "4", Amount: 40, PayerID: "b", SharedBy: []string{"a"}, Date: day(3, 9), Kind: core.KindSettlement},
		{ID: "5", Amount: 70, PayerID: "ghost", SharedBy: []string{"a"}, Date: day(4, 2)},
		{ID: "6", Amount: 99, PayerID: "a", SharedBy: []string{"a"}, Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
	}

	monthly := BuildReport(2025, 3, txs, members, groups)
	if !core.NearlyEqual(monthly.Total, 100) {
		t.Fatalf("monthly total: want 100 got %v", monthly.Total)
	}
	if len(monthly.Transactions) != 3 || monthly.Transactions[0].ID != "2" || monthly.Transactions[2].ID != "1" {
		t.Fatalf("expected newest first, got %+v", monthly.Transactions)
	}
	if monthly.TopGroup == nil || monthly.TopGroup.Name != "Trip" || !core.NearlyEqual(monthly.TopGroup.Amount, 80) {
		t.Fatalf("unexpected top group %+v", monthly.TopGroup)
	}
	if monthly.TopPayer == nil || monthly.TopPayer.Name != "Alice" && monthly.TopPayer.Name != "Bob" {
		t.Fatalf("unexpected top payer %+v", monthly.TopPayer)
	}
	if len(monthly.ByGroup) != 2 || monthly.ByGroup[1].Name != core.GeneralGroupName {
		t.Fatalf("unexpected group breakdown %+v", monthly.ByGroup)
	}

	annual := BuildReport(2025, 0, txs, members, groups)
	if !core.NearlyEqual(annual.Total, 170) {
		t.Fatalf("annual total: want 170 got %v", annual.Total)
	}
	if annual.TopPayer.Name != unknownName {
		t.Fatalf("expected unknown payer on top, got %+v", annual.TopPayer)
	}

	empty := BuildReport(2030, 1, txs, members, groups)
	if empty.Total != 0 || empty.TopGroup != nil || empty.TopPayer != nil {
		t.Fatalf("expected empty report, got %+v", empty)
	}
}
