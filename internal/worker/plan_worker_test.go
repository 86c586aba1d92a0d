package worker

import (
	"context"
	"errors"
	"testing"

	"conti/internal/amqp"
	"conti/internal/core"
	"conti/internal/services"
	"conti/internal/store/memory"
)

type fakeExporter struct {
	scopes []string
	names  map[string]string
	err    error
}

func (f *fakeExporter) ExportPlan(_ context.Context, plan core.Plan, names map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.scopes = append(f.scopes, plan.Scope)
	f.names = names
	return nil
}

func newRoom(t *testing.T) (*services.RoomService, []core.Member) {
	t.Helper()
	ctx := context.Background()
	svc := services.NewRoomService("room", memory.NewWithMembers("Alice", "Bob"), nil, nil)
	members, err := svc.Members(ctx)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if _, err := svc.AddExpense(ctx, services.ExpenseInput{
		Title: "Dinner", Amount: 50, PayerID: members[0].ID, SharedBy: core.MemberIDs(members),
	}); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	return svc, members
}

func TestPlanWorker_HandleEvent(t *testing.T) {
	ctx := context.Background()
	svc, members := newRoom(t)
	exp := &fakeExporter{}
	w := NewPlanWorker("room", svc, exp)

	msg := amqp.NewTransactionEvent("room", core.GeneralGroupID, "tx-1", string(core.KindExpense), amqp.ActionCreated)
	if err := w.HandleEvent(ctx, msg); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if len(exp.scopes) != 2 || exp.scopes[0] != core.ScopeAll || exp.scopes[1] != core.GeneralGroupID {
		t.Fatalf("unexpected exported scopes: %v", exp.scopes)
	}
	if exp.names[members[0].ID] != "Alice" {
		t.Errorf("member names not passed to exporter: %v", exp.names)
	}
}

func TestPlanWorker_HandleEventOtherRoom(t *testing.T) {
	svc, _ := newRoom(t)
	exp := &fakeExporter{}
	w := NewPlanWorker("room", svc, exp)

	msg := amqp.NewTransactionEvent("elsewhere", core.GeneralGroupID, "tx-1", string(core.KindExpense), amqp.ActionCreated)
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(exp.scopes) != 0 {
		t.Errorf("events for other rooms must not export, got %v", exp.scopes)
	}
}

func TestPlanWorker_HandleEventDeletedGroup(t *testing.T) {
	svc, _ := newRoom(t)
	exp := &fakeExporter{}
	w := NewPlanWorker("room", svc, exp)

	msg := amqp.NewTransactionEvent("room", "gone", "", "", amqp.ActionDeleted)
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(exp.scopes) != 1 || exp.scopes[0] != core.ScopeAll {
		t.Errorf("expected only the all scope, got %v", exp.scopes)
	}
}

func TestPlanWorker_RefreshAll(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRoom(t)
	if _, err := svc.CreateGroup(ctx, "Trip"); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	exp := &fakeExporter{}
	w := NewPlanWorker("room", svc, exp)

	if err := w.RefreshAll(ctx); err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	if len(exp.scopes) != 3 {
		t.Errorf("expected 3 exported plans, got %v", exp.scopes)
	}
}

func TestPlanWorker_ExportError(t *testing.T) {
	svc, _ := newRoom(t)
	exp := &fakeExporter{err: errors.New("quota exceeded")}
	w := NewPlanWorker("room", svc, exp)

	if err := w.RefreshAll(context.Background()); err == nil {
		t.Fatal("expected export error to be returned")
	}
}

func TestPlanWorker_NoExporter(t *testing.T) {
	svc, _ := newRoom(t)
	w := NewPlanWorker("room", svc, nil)

	msg := amqp.NewTransactionEvent("room", core.GeneralGroupID, "tx-1", string(core.KindExpense), amqp.ActionCreated)
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleEvent without exporter: %v", err)
	}
}
