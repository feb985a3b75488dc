// internal/clients/billing_client.go
package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"clubledger/internal/audit"
	"clubledger/internal/billing"
	"clubledger/internal/ledger"
	"clubledger/internal/payments"
)

// BillingClient talks to the billing service, which also hosts payments and the journal.
type BillingClient struct {
	base
}

func NewBillingClient(baseURL string, hc *http.Client) *BillingClient {
	return &BillingClient{base: newBase(baseURL, hc)}
}

func (c *BillingClient) Config(ctx context.Context) (*billing.Config, error) {
	var cfg billing.Config
	if err := c.do(ctx, http.MethodGet, "/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Preview opens a batch for period. A zero today means the server's date.
func (c *BillingClient) Preview(ctx context.Context, period ledger.Period, memberIDs []uuid.UUID, today time.Time) (*billing.SessionView, error) {
	req := map[string]any{"month": int(period.Month), "year": period.Year, "member_ids": memberIDs}
	if !today.IsZero() {
		req["today"] = today.Format(time.DateOnly)
	}
	var view billing.SessionView
	if err := c.do(ctx, http.MethodPost, "/batches/preview", req, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *BillingClient) Session(ctx context.Context, id uuid.UUID) (*billing.SessionView, error) {
	var view billing.SessionView
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/batches/%s", id), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *BillingClient) Select(ctx context.Context, id uuid.UUID, memberIDs []uuid.UUID) (*billing.SessionView, error) {
	var view billing.SessionView
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/batches/%s/selection", id), map[string]any{"member_ids": memberIDs}, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Commit issues the selected invoices. Precondition conflicts come back as an *APIError
// whose detail lists the already-invoiced members.
func (c *BillingClient) Commit(ctx context.Context, id uuid.UUID) (*billing.CommitSummary, error) {
	var summary billing.CommitSummary
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/batches/%s/commit", id), nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *BillingClient) Retry(ctx context.Context, id uuid.UUID) (*billing.SessionView, error) {
	var view billing.SessionView
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/batches/%s/retry", id), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *BillingClient) ListInvoices(ctx context.Context, filter billing.InvoiceFilter) ([]ledger.Invoice, error) {
	q := url.Values{}
	if filter.MemberID != uuid.Nil {
		q.Set("member_id", filter.MemberID.String())
	}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if !filter.Period.IsZero() {
		q.Set("period", filter.Period.String())
	}
	path := "/invoices"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var invoices []ledger.Invoice
	if err := c.do(ctx, http.MethodGet, path, nil, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (c *BillingClient) GetInvoice(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	var inv ledger.Invoice
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/invoices/%s", id), nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (c *BillingClient) RefreshOverdue(ctx context.Context) (int, error) {
	var out struct {
		Overdue int `json:"overdue"`
	}
	if err := c.do(ctx, http.MethodPost, "/invoices/overdue", nil, &out); err != nil {
		return 0, err
	}
	return out.Overdue, nil
}

func (c *BillingClient) IssueEntryFee(ctx context.Context, memberID uuid.UUID, total decimal.Decimal, installments int, first ledger.Period) ([]ledger.Invoice, error) {
	req := map[string]any{"total": total, "installments": installments, "month": int(first.Month), "year": first.Year}
	var invoices []ledger.Invoice
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/members/%s/entry-fee", memberID), req, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// PaymentRequest is the body of POST /payments and /payments/check.
type PaymentRequest struct {
	MemberID  uuid.UUID       `json:"member_id"`
	Date      string          `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
	Override  bool            `json:"override"`
}

// RecordPayment stores a payment. A possible duplicate fails with payments.ErrOverrideRequired.
func (c *BillingClient) RecordPayment(ctx context.Context, req PaymentRequest) (*payments.Receipt, error) {
	var receipt payments.Receipt
	if err := c.do(ctx, http.MethodPost, "/payments", req, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *BillingClient) CheckPayment(ctx context.Context, req PaymentRequest) (*payments.Verdict, error) {
	var verdict payments.Verdict
	if err := c.do(ctx, http.MethodPost, "/payments/check", req, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

func (c *BillingClient) Payments(ctx context.Context, memberID uuid.UUID) ([]ledger.Payment, error) {
	var out []ledger.Payment
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/members/%s/payments", memberID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BillingClient) Credit(ctx context.Context, memberID uuid.UUID) (decimal.Decimal, error) {
	var out struct {
		Credit decimal.Decimal `json:"credit"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/members/%s/credit", memberID), nil, &out); err != nil {
		return decimal.Zero, err
	}
	return out.Credit, nil
}

func (c *BillingClient) Settle(ctx context.Context, memberID uuid.UUID) ([]ledger.CreditApplication, error) {
	var out []ledger.CreditApplication
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/members/%s/settle", memberID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Journal returns up to limit journal events recorded after the given id.
func (c *BillingClient) Journal(ctx context.Context, after int64, limit int) ([]audit.Event, error) {
	var out []audit.Event
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/journal?after=%d&limit=%d", after, limit), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
