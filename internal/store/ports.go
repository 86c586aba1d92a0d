package store

import (
	"context"

	"conti/internal/core"
)

// Ports for outbound adapters.
type (
	MemberStore interface {
		// AddMember stores m and returns it with its ID assigned.
		AddMember(ctx context.Context, m core.Member) (core.Member, error)
		ListMembers(ctx context.Context) ([]core.Member, error)
		DeleteMember(ctx context.Context, id string) error
		// MemberReferenced reports whether any transaction names the member
		// as payer or sharer.
		MemberReferenced(ctx context.Context, id string) (bool, error)
	}

	GroupStore interface {
		AddGroup(ctx context.Context, g core.Group) (core.Group, error)
		ListGroups(ctx context.Context) ([]core.Group, error)
		// DeleteGroup removes the group and every transaction in it.
		DeleteGroup(ctx context.Context, id string) error
	}

	TransactionStore interface {
		// AddTransactions stores all of txs or none of them, returning them
		// with IDs assigned.
		AddTransactions(ctx context.Context, txs ...core.Transaction) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		// ListTransactions returns the transactions of scope in the order
		// they were recorded.
		ListTransactions(ctx context.Context, scope string) ([]core.Transaction, error)
		DeleteTransaction(ctx context.Context, id string) error
	}

	Repository interface {
		MemberStore
		GroupStore
		TransactionStore
	}

	// PlanExporter publishes a computed settlement plan somewhere people
	// can read it.
	PlanExporter interface {
		ExportPlan(ctx context.Context, plan core.Plan, names map[string]string) error
	}
)
