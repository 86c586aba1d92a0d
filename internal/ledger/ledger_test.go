package ledger

import (
	"math"
	"math/rand"
	"testing"

	"conti/internal/core"
)

func expense(payer string, amount float64, sharedBy ...string) core.Transaction {
	return core.Transaction{Title: "e", Amount: amount, PayerID: payer, SharedBy: sharedBy, Kind: core.KindExpense}
}

func settlement(payer, receiver string, amount float64) core.Transaction {
	return core.Transaction{Title: core.SettlementTitle, Amount: amount, PayerID: payer, SharedBy: []string{receiver}, Kind: core.KindSettlement}
}

func assertBalance(t *testing.T, b core.Balance, paid, share, net float64) {
	t.Helper()
	if !core.NearlyEqual(b.TotalPaid, paid) || !core.NearlyEqual(b.FairShare, share) || !core.NearlyEqual(b.Net, net) {
		t.Fatalf("%s: got paid=%v share=%v net=%v, want %v %v %v", b.MemberID, b.TotalPaid, b.FairShare, b.Net, paid, share, net)
	}
}

func TestComputeEmpty(t *testing.T) {
	got := Compute(nil, nil)
	if len(got) != 0 {
		t.Fatalf("expected empty mapping, got %v", got)
	}
}

func TestComputeThreeWaySplit(t *testing.T) {
	roster := []string{"alice", "bob", "carol"}
	got := Compute(roster, []core.Transaction{expense("alice", 90, "alice", "bob", "carol")})

	assertBalance(t, got["alice"], 90, 30, 60)
	assertBalance(t, got["bob"], 0, 30, -30)
	assertBalance(t, got["carol"], 0, 30, -30)
}

func TestComputeSettlementOnlyMovesNet(t *testing.T) {
	roster := []string{"alice", "bob"}
	txs := []core.Transaction{
		expense("alice", 50, "alice", "bob"),
		settlement("bob", "alice", 25),
	}
	got := Compute(roster, txs)

	assertBalance(t, got["alice"], 50, 25, 0)
	assertBalance(t, got["bob"], 0, 25, 0)
}

func TestComputeMissingKindIsExpense(t *testing.T) {
	tx := expense("alice", 20, "alice", "bob")
	tx.Kind = ""
	got := Compute([]string{"alice", "bob"}, []core.Transaction{tx})
	assertBalance(t, got["bob"], 0, 10, -10)
}

func TestComputeUnknownParticipantsIgnored(t *testing.T) {
	roster := []string{"alice", "bob"}
	txs := []core.Transaction{
		expense("ghost", 40, "alice", "bob"),
		expense("alice", 30, "alice", "bob", "ghost"),
		settlement("ghost", "bob", 5),
		settlement("alice", "ghost", 7),
	}
	got := Compute(roster, txs)

	if _, ok := got["ghost"]; ok {
		t.Fatalf("unknown member must not get a record")
	}
	// ghost's payment is dropped, sharers still owe their share
	assertBalance(t, got["alice"], 30, 30, 30-30+7)
	assertBalance(t, got["bob"], 0, 30, -30-5)
}

func TestComputeZeroSharersOnlyCreditsPayer(t *testing.T) {
	got := Compute([]string{"alice", "bob"}, []core.Transaction{expense("alice", 12)})
	assertBalance(t, got["alice"], 12, 0, 12)
	assertBalance(t, got["bob"], 0, 0, 0)
}

func TestComputeIgnoresDuplicateRosterIDs(t *testing.T) {
	got := Compute([]string{"a", "a", "b"}, []core.Transaction{expense("a", 10, "a", "b")})
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	assertBalance(t, got["a"], 10, 5, 5)
}

func TestOrderedFollowsRoster(t *testing.T) {
	roster := []string{"carol", "alice", "bob", "alice"}
	got := ComputeOrdered(roster, []core.Transaction{expense("alice", 9, "alice", "bob", "carol")})
	if len(got) != 3 {
		t.Fatalf("expected 3 balances, got %d", len(got))
	}
	want := []string{"carol", "alice", "bob"}
	for i, id := range want {
		if got[i].MemberID != id {
			t.Fatalf("position %d: want %s got %s", i, id, got[i].MemberID)
		}
	}
}

func TestZeroSumProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	roster := []string{"a", "b", "c", "d", "e", "f", "g"}

	for round := 0; round < 200; round++ {
		var txs []core.Transaction
		for i := 0; i < 1+rng.Intn(30); i++ {
			payer := roster[rng.Intn(len(roster))]
			amount := float64(1+rng.Intn(100000)) / 100
			if rng.Intn(4) == 0 {
				receiver := roster[rng.Intn(len(roster))]
				txs = append(txs, settlement(payer, receiver, amount))
				continue
			}
			perm := rng.Perm(len(roster))[:1+rng.Intn(len(roster))]
			sharers := make([]string, len(perm))
			for j, p := range perm {
				sharers[j] = roster[p]
			}
			txs = append(txs, expense(payer, amount, sharers...))
		}

		sum := NetSum(ComputeOrdered(roster, txs))
		if math.Abs(sum) >= core.Epsilon {
			t.Fatalf("round %d: net sum %v not within epsilon", round, sum)
		}
	}
}

func TestSettled(t *testing.T) {
	if !Settled(nil) {
		t.Fatalf("empty balances are settled")
	}
	if !Settled([]core.Balance{{Net: 0.004}, {Net: -0.004}}) {
		t.Fatalf("balances within epsilon are settled")
	}
	if Settled([]core.Balance{{Net: 1}, {Net: -1}}) {
		t.Fatalf("non-zero balances are not settled")
	}
}

func TestComputeDoesNotDependOnOrderForTotals(t *testing.T) {
	roster := []string{"a", "b", "c"}
	txs := []core.Transaction{
		expense("a", 100, "a", "b", "c"),
		expense("b", 45.5, "b", "c"),
		settlement("c", "a", 10),
	}
	reversed := []core.Transaction{txs[2], txs[1], txs[0]}
	x := Compute(roster, txs)
	y := Compute(roster, reversed)
	for _, id := range roster {
		if !core.NearlyEqual(x[id].Net, y[id].Net) {
			t.Fatalf("%s differs: %v vs %v", id, x[id].Net, y[id].Net)
		}
	}
}
