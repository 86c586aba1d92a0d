package core

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	good := Transaction{Title: "Dinner", Amount: 90, PayerID: "a", SharedBy: []string{"a", "b"}, Date: now}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	settlement := Transaction{Title: SettlementTitle, Amount: 25, PayerID: "b", SharedBy: []string{"a"}, Kind: KindSettlement}
	if err := settlement.Validate(); err != nil {
		t.Fatalf("expected ok settlement, got %v", err)
	}

	bads := []struct {
		tx   Transaction
		want error
	}{
		{Transaction{Title: "x", Amount: 0, PayerID: "a", SharedBy: []string{"a"}}, ErrInvalidAmount},
		{Transaction{Title: "x", Amount: -1, PayerID: "a", SharedBy: []string{"a"}}, ErrInvalidAmount},
		{Transaction{Title: "x", Amount: math.NaN(), PayerID: "a", SharedBy: []string{"a"}}, ErrInvalidAmount},
		{Transaction{Title: " ", Amount: 1, PayerID: "a", SharedBy: []string{"a"}}, ErrEmptyTitle},
		{Transaction{Title: "x", Amount: 1, PayerID: "", SharedBy: []string{"a"}}, ErrEmptyPayer},
		{Transaction{Title: "x", Amount: 1, PayerID: "a"}, ErrEmptySharers},
		{Transaction{Title: "x", Amount: 1, PayerID: "a", SharedBy: []string{"b", "c"}, Kind: KindSettlement}, ErrBadReceiver},
		{Transaction{Title: "x", Amount: 1, PayerID: "a", SharedBy: []string{"a"}, Kind: KindSettlement}, ErrSelfSettlement},
		{Transaction{Title: "x", Amount: 1, PayerID: "a", SharedBy: []string{"a"}, Kind: "refund"}, ErrInvalidKind},
	}
	for i, tc := range bads {
		if err := tc.tx.Validate(); err != tc.want {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}

	long := good
	long.Title = strings.Repeat("a", 201)
	if err := long.Validate(); err == nil {
		t.Fatalf("expected error for long title")
	}
}

func TestTransactionKindDefaultsToExpense(t *testing.T) {
	tx := Transaction{}
	if tx.EffectiveKind() != KindExpense || tx.IsSettlement() {
		t.Fatalf("missing kind should read as expense")
	}
	if tx.ReceiverID() != "" {
		t.Fatalf("expected empty receiver")
	}
}

func TestInvolves(t *testing.T) {
	tx := Transaction{PayerID: "a", SharedBy: []string{"b", "c"}}
	for _, id := range []string{"a", "b", "c"} {
		if !tx.Involves(id) {
			t.Errorf("expected %s to be involved", id)
		}
	}
	if tx.Involves("d") {
		t.Errorf("d is not involved")
	}
}

func TestFilterScope(t *testing.T) {
	txs := []Transaction{
		{ID: "1", GroupID: "trip"},
		{ID: "2", GroupID: ""},
		{ID: "3", GroupID: GeneralGroupID},
		{ID: "4", GroupID: "trip"},
	}
	if got := FilterScope(txs, ScopeAll); len(got) != 4 {
		t.Fatalf("all scope: expected 4, got %d", len(got))
	}
	trip := FilterScope(txs, "trip")
	if len(trip) != 2 || trip[0].ID != "1" || trip[1].ID != "4" {
		t.Fatalf("trip scope: unexpected %v", trip)
	}
	general := FilterScope(txs, GeneralGroupID)
	if len(general) != 2 || general[0].ID != "2" {
		t.Fatalf("general scope should include ungrouped: %v", general)
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName("Alice"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := ValidateName("  "); err != ErrEmptyName {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := ValidateName(strings.Repeat("x", 101)); err == nil {
		t.Fatalf("expected error for long name")
	}
}
