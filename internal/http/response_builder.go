package http

import (
	"time"

	"conti/internal/core"
	"conti/internal/ledger"
)

type memberResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type groupResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type transactionResponse struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Amount   float64   `json:"amount"`
	PayerID  string    `json:"payerId"`
	SharedBy []string  `json:"sharedBy"`
	Date     time.Time `json:"date"`
	Kind     string    `json:"kind"`
	GroupID  string    `json:"groupId"`
}

type balanceResponse struct {
	MemberID  string  `json:"memberId"`
	TotalPaid float64 `json:"totalPaid"`
	FairShare float64 `json:"fairShare"`
	Net       float64 `json:"net"`
}

type instructionResponse struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

type planResponse struct {
	Scope        string                `json:"scope"`
	Name         string                `json:"name"`
	Settled      bool                  `json:"settled"`
	Balances     []balanceResponse     `json:"balances"`
	Instructions []instructionResponse `json:"instructions"`
	ComputedAt   time.Time             `json:"computedAt"`
}

type namedAmountResponse struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type reportResponse struct {
	Year         int                   `json:"year"`
	Month        int                   `json:"month"`
	Total        float64               `json:"total"`
	ByGroup      []namedAmountResponse `json:"byGroup"`
	ByPayer      []namedAmountResponse `json:"byPayer"`
	TopGroup     *namedAmountResponse  `json:"topGroup"`
	TopPayer     *namedAmountResponse  `json:"topPayer"`
	Transactions []transactionResponse `json:"transactions"`
}

func buildMembers(ms []core.Member) []memberResponse {
	out := make([]memberResponse, len(ms))
	for i, m := range ms {
		out[i] = memberResponse{ID: m.ID, Name: m.Name}
	}
	return out
}

func buildGroups(gs []core.Group) []groupResponse {
	out := make([]groupResponse, len(gs))
	for i, g := range gs {
		out[i] = groupResponse{ID: g.ID, Name: g.Name}
	}
	return out
}

func buildTransaction(t core.Transaction) transactionResponse {
	sharedBy := t.SharedBy
	if sharedBy == nil {
		sharedBy = []string{}
	}
	return transactionResponse{
		ID:       t.ID,
		Title:    t.Title,
		Amount:   t.Amount,
		PayerID:  t.PayerID,
		SharedBy: sharedBy,
		Date:     t.Date,
		Kind:     string(t.EffectiveKind()),
		GroupID:  t.GroupID,
	}
}

func buildTransactions(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(txs))
	for i, t := range txs {
		out[i] = buildTransaction(t)
	}
	return out
}

func buildBalances(bs []core.Balance) []balanceResponse {
	out := make([]balanceResponse, len(bs))
	for i, b := range bs {
		out[i] = balanceResponse{
			MemberID:  b.MemberID,
			TotalPaid: core.RoundCents(b.TotalPaid),
			FairShare: core.RoundCents(b.FairShare),
			Net:       core.RoundCents(b.Net),
		}
	}
	return out
}

func buildPlan(p core.Plan) planResponse {
	instructions := make([]instructionResponse, len(p.Instructions))
	for i, in := range p.Instructions {
		instructions[i] = instructionResponse{From: in.From, To: in.To, Amount: core.RoundCents(in.Amount)}
	}
	return planResponse{
		Scope:        p.Scope,
		Name:         p.Name,
		Settled:      ledger.Settled(p.Balances),
		Balances:     buildBalances(p.Balances),
		Instructions: instructions,
		ComputedAt:   p.ComputedAt,
	}
}

func buildNamed(n *core.NamedAmount) *namedAmountResponse {
	if n == nil {
		return nil
	}
	return &namedAmountResponse{Name: n.Name, Amount: core.RoundCents(n.Amount)}
}

func buildReport(r core.Report) reportResponse {
	named := func(ns []core.NamedAmount) []namedAmountResponse {
		out := make([]namedAmountResponse, len(ns))
		for i := range ns {
			out[i] = *buildNamed(&ns[i])
		}
		return out
	}
	return reportResponse{
		Year:         r.Year,
		Month:        r.Month,
		Total:        core.RoundCents(r.Total),
		ByGroup:      named(r.ByGroup),
		ByPayer:      named(r.ByPayer),
		TopGroup:     buildNamed(r.TopGroup),
		TopPayer:     buildNamed(r.TopPayer),
		Transactions: buildTransactions(r.Transactions),
	}
}
