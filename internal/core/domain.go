package core

import (
	"errors"
	"strings"
	"time"
)

const (
	KindExpense    Kind = "expense"
	KindSettlement Kind = "settlement"
)

const (
	// ScopeAll selects every transaction in the room regardless of group.
	ScopeAll = "all"
	// GeneralGroupID is the group that always exists.
	GeneralGroupID   = "general"
	GeneralGroupName = "General"

	// SettlementTitle is the title given to recorded settlements.
	SettlementTitle = "Settlement"
)

type (
	Kind string

	Member struct {
		ID   string
		Name string
	}

	Group struct {
		ID   string
		Name string
	}

	// Transaction is either an expense split among SharedBy or a settlement
	// from PayerID to SharedBy[0].
	Transaction struct {
		ID       string
		Title    string
		Amount   float64
		PayerID  string
		SharedBy []string
		Date     time.Time
		Kind     Kind
		GroupID  string
	}

	// Balance is one participant's position. Net is positive when the group
	// owes them money and negative when they owe the group.
	Balance struct {
		MemberID  string
		TotalPaid float64
		FairShare float64
		Net       float64
	}

	// Instruction is a suggested real-world payment.
	Instruction struct {
		From   string
		To     string
		Amount float64
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyTitle     = errors.New("empty title")
	ErrEmptyName      = errors.New("empty name")
	ErrTitleTooLong   = errors.New("title too long (max 200 characters)")
	ErrNameTooLong    = errors.New("name too long (max 100 characters)")
	ErrEmptyPayer     = errors.New("empty payer")
	ErrEmptySharers   = errors.New("expense must be shared by at least one member")
	ErrBadReceiver    = errors.New("settlement must have exactly one receiver")
	ErrSelfSettlement = errors.New("payer and receiver must differ")
	ErrInvalidKind    = errors.New("invalid transaction kind")
	ErrUnknownMember  = errors.New("unknown member")
	ErrUnknownGroup   = errors.New("unknown group")
	ErrMemberInUse    = errors.New("member is part of existing transactions")
	ErrGeneralGroup   = errors.New("the general group cannot be removed")
	ErrNotFound       = errors.New("not found")
	ErrInvalidMonth   = errors.New("month must be between 0 and 12")
)

// EffectiveKind treats a missing kind as an expense.
func (t Transaction) EffectiveKind() Kind {
	if t.Kind == "" {
		return KindExpense
	}
	return t.Kind
}

func (t Transaction) IsSettlement() bool {
	return t.EffectiveKind() == KindSettlement
}

// ReceiverID returns the receiving member of a settlement, or "" when none.
func (t Transaction) ReceiverID() string {
	if len(t.SharedBy) == 0 {
		return ""
	}
	return t.SharedBy[0]
}

// Involves reports whether memberID is the payer or one of the sharers.
func (t Transaction) Involves(memberID string) bool {
	if t.PayerID == memberID {
		return true
	}
	for _, id := range t.SharedBy {
		if id == memberID {
			return true
		}
	}
	return false
}

func (t Transaction) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(t.Title) > 200 {
		return ErrTitleTooLong
	}
	if strings.TrimSpace(t.PayerID) == "" {
		return ErrEmptyPayer
	}
	switch t.EffectiveKind() {
	case KindExpense:
		if len(t.SharedBy) == 0 {
			return ErrEmptySharers
		}
	case KindSettlement:
		if len(t.SharedBy) != 1 {
			return ErrBadReceiver
		}
		if t.SharedBy[0] == t.PayerID {
			return ErrSelfSettlement
		}
	default:
		return ErrInvalidKind
	}
	return nil
}

// ValidateName checks a member or group display name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > 100 {
		return ErrNameTooLong
	}
	return nil
}

// InScope reports whether the transaction belongs to scope. Transactions
// without a group count as general.
func (t Transaction) InScope(scope string) bool {
	if scope == "" || scope == ScopeAll {
		return true
	}
	gid := t.GroupID
	if gid == "" {
		gid = GeneralGroupID
	}
	return gid == scope
}

// FilterScope returns the transactions of txs that belong to scope, keeping order.
func FilterScope(txs []Transaction, scope string) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if t.InScope(scope) {
			out = append(out, t)
		}
	}
	return out
}

// MemberIDs returns the IDs of members in order.
func MemberIDs(members []Member) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids
}
