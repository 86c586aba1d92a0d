package core

import "time"

// NamedAmount is an amount aggregated under a display name.
type NamedAmount struct {
	Name   string
	Amount float64
}

// Report summarizes spending for a year, or for one month of it when Month
// is between 1 and 12. Settlements are excluded.
type Report struct {
	Year         int
	Month        int // 0 for the whole year
	Total        float64
	ByGroup      []NamedAmount
	ByPayer      []NamedAmount
	TopGroup     *NamedAmount
	TopPayer     *NamedAmount
	Transactions []Transaction // newest first
}

// Plan is a balance snapshot for a scope together with the transfers that
// would settle it.
type Plan struct {
	Scope        string
	Name         string // group name, or AllGroupsName for the all scope
	Balances     []Balance
	Instructions []Instruction
	ComputedAt   time.Time
}

// AllGroupsName labels the plan that spans every group.
const AllGroupsName = "All groups"
