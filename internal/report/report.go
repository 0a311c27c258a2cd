package report

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-inventory/internal/billing"
)

// Lister is the document source a report aggregates over.
type Lister interface {
	List(ctx context.Context, f billing.Filter) ([]billing.View, int, error)
}

// Filter selects the documents in a report. Zero values mean unbounded.
type Filter struct {
	Kind   billing.Kind
	Status billing.Status
	From   time.Time
	To     time.Time
}

// KindSummary aggregates one document kind.
type KindSummary struct {
	Kind        billing.Kind    `json:"kind"`
	Count       int             `json:"count"`
	Drafts      int             `json:"drafts"`
	Total       decimal.Decimal `json:"total"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Credit      decimal.Decimal `json:"credit"`
}

// Row is one document line of the report.
type Row struct {
	ID            string          `json:"id"`
	Kind          billing.Kind    `json:"kind"`
	Status        billing.Status  `json:"status"`
	InvoiceNumber string          `json:"invoiceNumber"`
	PartyName     string          `json:"partyName"`
	Date          time.Time       `json:"date"`
	Total         decimal.Decimal `json:"total"`
	Paid          decimal.Decimal `json:"paid"`
	BalanceDue    decimal.Decimal `json:"balanceDue"`
}

// Summary is the result of a report run.
type Summary struct {
	From        time.Time     `json:"from,omitempty"`
	To          time.Time     `json:"to,omitempty"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Kinds       []KindSummary `json:"kinds"`
	Rows        []Row         `json:"rows"`
}

// Service builds summaries.
type Service struct {
	Docs Lister
	Now  func() time.Time
}

// Summary lists every non-void document matching f. Rows are ordered by
// date then invoice number. Only issued documents feed the money totals;
// drafts are listed and counted under Drafts. Negative balances count as
// credit, not as negative outstanding.
func (s *Service) Summary(ctx context.Context, f Filter) (Summary, error) {
	views, _, err := s.Docs.List(ctx, billing.Filter{Kind: f.Kind, Status: f.Status, From: f.From, To: f.To})
	if err != nil {
		return Summary{}, err
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	out := Summary{From: f.From, To: f.To, GeneratedAt: now().UTC(), Rows: []Row{}}

	byKind := map[billing.Kind]*KindSummary{}
	for _, v := range views {
		if v.Status == billing.StatusVoid {
			continue
		}
		ks, ok := byKind[v.Kind]
		if !ok {
			ks = &KindSummary{Kind: v.Kind}
			byKind[v.Kind] = ks
		}
		if v.Status == billing.StatusIssued {
			ks.Count++
			ks.Total = ks.Total.Add(v.Totals.Total)
			ks.Paid = ks.Paid.Add(v.Settings.AmountPaid)
			if balance := v.Totals.BalanceDue; balance.IsNegative() {
				ks.Credit = ks.Credit.Add(balance.Neg())
			} else {
				ks.Outstanding = ks.Outstanding.Add(balance)
			}
		} else {
			ks.Drafts++
		}
		out.Rows = append(out.Rows, Row{
			ID:            v.ID,
			Kind:          v.Kind,
			Status:        v.Status,
			InvoiceNumber: v.Settings.InvoiceNumber,
			PartyName:     v.PartyName,
			Date:          v.Settings.Date,
			Total:         v.Totals.Total,
			Paid:          v.Settings.AmountPaid,
			BalanceDue:    v.Totals.BalanceDue,
		})
	}

	for _, kind := range []billing.Kind{billing.KindPurchase, billing.KindSales} {
		if ks, ok := byKind[kind]; ok {
			out.Kinds = append(out.Kinds, *ks)
		} else if f.Kind == "" || f.Kind == kind {
			out.Kinds = append(out.Kinds, KindSummary{Kind: kind})
		}
	}
	sort.SliceStable(out.Rows, func(i, j int) bool {
		a, b := out.Rows[i], out.Rows[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.InvoiceNumber < b.InvoiceNumber
	})
	return out, nil
}
