package settle

import (
	"math"
	"math/rand"
	"slices"
	"testing"
	"time"

	"conti/internal/core"
	"conti/internal/ledger"
)

func expense(payer string, amount float64, sharedBy ...string) core.Transaction {
	return core.Transaction{Title: "e", Amount: amount, PayerID: payer, SharedBy: sharedBy}
}

func TestComputeEmpty(t *testing.T) {
	if got := Compute(nil); len(got) != 0 {
		t.Fatalf("expected no instructions, got %v", got)
	}
	if got := Compute([]core.Balance{}); len(got) != 0 {
		t.Fatalf("expected no instructions, got %v", got)
	}
}

func TestComputeAlreadySettled(t *testing.T) {
	balances := []core.Balance{
		{MemberID: "a", Net: 0.004},
		{MemberID: "b", Net: -0.009},
		{MemberID: "c", Net: 0.005},
	}
	if got := Compute(balances); len(got) != 0 {
		t.Fatalf("expected no instructions for settled state, got %v", got)
	}
}

func TestComputeNonFinite(t *testing.T) {
	overflow := ledger.ComputeOrdered([]string{"alice", "bob"}, []core.Transaction{
		expense("alice", 1.7e308, "alice", "bob"),
		expense("alice", 1.7e308, "alice", "bob"),
		expense("alice", 1.7e308, "alice", "bob"),
	})

	tests := []struct {
		name     string
		balances []core.Balance
		want     []core.Instruction
	}{
		{
			name:     "ledger overflow",
			balances: overflow,
		},
		{
			name: "infinite and nan skipped",
			balances: []core.Balance{
				{MemberID: "a", Net: math.Inf(1)},
				{MemberID: "b", Net: math.Inf(-1)},
				{MemberID: "c", Net: 30},
				{MemberID: "d", Net: math.NaN()},
				{MemberID: "e", Net: -30},
			},
			want: []core.Instruction{{From: "e", To: "c", Amount: 30}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done := make(chan []core.Instruction, 1)
			go func() { done <- Compute(tt.balances) }()

			select {
			case got := <-done:
				if len(got) != len(tt.want) {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
				for i := range got {
					if got[i].From != tt.want[i].From || got[i].To != tt.want[i].To || !core.NearlyEqual(got[i].Amount, tt.want[i].Amount) {
						t.Fatalf("instruction %d: expected %+v, got %+v", i, tt.want[i], got[i])
					}
				}
			case <-time.After(2 * time.Second):
				t.Fatal("Compute did not return")
			}
		})
	}
}

func TestComputeThreeWaySplit(t *testing.T) {
	roster := []string{"alice", "bob", "carol"}
	balances := ledger.ComputeOrdered(roster, []core.Transaction{expense("alice", 90, "alice", "bob", "carol")})

	got := Compute(balances)
	want := []core.Instruction{
		{From: "bob", To: "alice", Amount: 30},
		{From: "carol", To: "alice", Amount: 30},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d instructions, got %v", len(want), got)
	}
	for i := range want {
		if got[i].From != want[i].From || got[i].To != want[i].To || !core.NearlyEqual(got[i].Amount, want[i].Amount) {
			t.Fatalf("instruction %d: want %+v got %+v", i, want[i], got[i])
		}
	}
}

func TestComputeTieBreakFollowsInputOrder(t *testing.T) {
	// carol is listed before bob so she pays first
	balances := []core.Balance{
		{MemberID: "carol", Net: -30},
		{MemberID: "alice", Net: 60},
		{MemberID: "bob", Net: -30},
	}
	got := Compute(balances)
	if len(got) != 2 || got[0].From != "carol" || got[1].From != "bob" {
		t.Fatalf("expected carol then bob, got %v", got)
	}

	creditors := []core.Balance{
		{MemberID: "x", Net: -20},
		{MemberID: "p", Net: 10},
		{MemberID: "q", Net: 10},
	}
	got = Compute(creditors)
	if len(got) != 2 || got[0].To != "p" || got[1].To != "q" {
		t.Fatalf("expected p then q, got %v", got)
	}
}

func TestComputeLargestFirst(t *testing.T) {
	balances := []core.Balance{
		{MemberID: "a", Net: -10},
		{MemberID: "b", Net: -50},
		{MemberID: "c", Net: 15},
		{MemberID: "d", Net: 45},
	}
	got := Compute(balances)
	want := []core.Instruction{
		{From: "b", To: "d", Amount: 45},
		{From: "b", To: "c", Amount: 5},
		{From: "a", To: "c", Amount: 10},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i].From != want[i].From || got[i].To != want[i].To || !core.NearlyEqual(got[i].Amount, want[i].Amount) {
			t.Fatalf("instruction %d: want %+v got %+v", i, want[i], got[i])
		}
	}
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	balances := []core.Balance{
		{MemberID: "a", TotalPaid: 90, FairShare: 30, Net: 60},
		{MemberID: "b", FairShare: 30, Net: -30},
		{MemberID: "c", FairShare: 30, Net: -30},
	}
	snapshot := slices.Clone(balances)

	Compute(balances)

	if !slices.Equal(balances, snapshot) {
		t.Fatalf("input mutated: %v", balances)
	}
}

func TestSettleThenRecompute(t *testing.T) {
	roster := []string{"alice", "bob"}
	txs := []core.Transaction{expense("alice", 50, "alice", "bob")}

	plan := Compute(ledger.ComputeOrdered(roster, txs))
	if len(plan) != 1 || plan[0].From != "bob" || plan[0].To != "alice" || !core.NearlyEqual(plan[0].Amount, 25) {
		t.Fatalf("expected bob->alice 25, got %v", plan)
	}

	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	settled := AsTransactions("general", plan, at)
	if len(settled) != 1 || !settled[0].IsSettlement() || settled[0].ReceiverID() != "alice" || !settled[0].Date.Equal(at) {
		t.Fatalf("unexpected settlement transactions: %+v", settled)
	}
	if err := settled[0].Validate(); err != nil {
		t.Fatalf("settlement transaction should validate: %v", err)
	}

	after := ledger.ComputeOrdered(roster, append(txs, settled...))
	if !ledger.Settled(after) {
		t.Fatalf("expected settled balances, got %v", after)
	}
	if got := Compute(after); len(got) != 0 {
		t.Fatalf("expected no further instructions, got %v", got)
	}
}

func TestClosureProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	roster := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	for round := 0; round < 300; round++ {
		var txs []core.Transaction
		for i := 0; i < 1+rng.Intn(25); i++ {
			payer := roster[rng.Intn(len(roster))]
			perm := rng.Perm(len(roster))[:1+rng.Intn(len(roster))]
			sharers := make([]string, len(perm))
			for j, p := range perm {
				sharers[j] = roster[p]
			}
			txs = append(txs, expense(payer, float64(1+rng.Intn(50000))/100, sharers...))
		}
		balances := ledger.ComputeOrdered(roster, txs)
		plan := Compute(balances)

		if len(plan) > len(roster)-1 {
			t.Fatalf("round %d: %d transfers for %d members", round, len(plan), len(roster))
		}
		for _, in := range plan {
			if in.Amount <= core.Epsilon || in.From == in.To {
				t.Fatalf("round %d: bad instruction %+v", round, in)
			}
		}
		if after := Apply(balances, plan); !ledger.Settled(after) {
			t.Fatalf("round %d: balances not settled after plan: %v", round, after)
		}
	}
}

func TestApplySkipsUnknownMembers(t *testing.T) {
	balances := []core.Balance{{MemberID: "a", Net: -5}, {MemberID: "b", Net: 5}}
	got := Apply(balances, []core.Instruction{{From: "a", To: "ghost", Amount: 5}})
	if !core.IsZero(got[0].Net) || !core.NearlyEqual(got[1].Net, 5) {
		t.Fatalf("unexpected result %v", got)
	}
	if balances[0].Net != -5 {
		t.Fatalf("Apply mutated input")
	}
}

func TestTotal(t *testing.T) {
	if got := Total([]core.Instruction{{Amount: 1.5}, {Amount: 2.5}}); got != 4 {
		t.Fatalf("expected 4, got %v", got)
	}
}
