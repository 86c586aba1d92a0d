package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"conti/internal/core"
	"conti/internal/services"
)

// amount accepts a JSON number or a string such as "12,34".
type amount float64

func (a *amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := core.ParseAmount(s)
		if err != nil {
			return err
		}
		*a = amount(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("%w: %s", core.ErrInvalidAmount, string(b))
	}
	*a = amount(f)
	return nil
}

type nameRequest struct {
	Name string `json:"name"`
}

type expenseRequest struct {
	Title    string   `json:"title"`
	Amount   amount   `json:"amount"`
	PayerID  string   `json:"payerId"`
	SharedBy []string `json:"sharedBy"`
	GroupID  string   `json:"groupId"`
	Date     string   `json:"date"`
}

type settlementRequest struct {
	PayerID    string `json:"payerId"`
	ReceiverID string `json:"receiverId"`
	Amount     amount `json:"amount"`
	GroupID    string `json:"groupId"`
}

// toInput converts the request into service input. Dates may be a calendar
// day or a full RFC 3339 timestamp; missing means now.
func (r expenseRequest) toInput() (services.ExpenseInput, error) {
	in := services.ExpenseInput{
		Title:    sanitizeInput(r.Title),
		Amount:   float64(r.Amount),
		PayerID:  strings.TrimSpace(r.PayerID),
		GroupID:  strings.TrimSpace(r.GroupID),
		SharedBy: make([]string, 0, len(r.SharedBy)),
	}
	for _, id := range r.SharedBy {
		if id = strings.TrimSpace(id); id != "" {
			in.SharedBy = append(in.SharedBy, id)
		}
	}

	if d := strings.TrimSpace(r.Date); d != "" {
		t, err := parseDate(d)
		if err != nil {
			return services.ExpenseInput{}, fmt.Errorf("invalid date %q", d)
		}
		in.Date = t
	}
	return in, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
