// internal/clients/reconciliation_client.go
package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"clubledger/internal/reconciliation"
)

type ReconciliationClient struct {
	base
}

func NewReconciliationClient(baseURL string, hc *http.Client) *ReconciliationClient {
	return &ReconciliationClient{base: newBase(baseURL, hc)}
}

// ImportStatement uploads a CSV bank statement.
func (c *ReconciliationClient) ImportStatement(ctx context.Context, statement io.Reader) (*reconciliation.ImportReport, error) {
	var report reconciliation.ImportReport
	if err := c.send(ctx, http.MethodPost, "/statements", "text/csv", statement, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Match runs the matcher over imported transactions dated within [from, to] (YYYY-MM-DD, optional).
func (c *ReconciliationClient) Match(ctx context.Context, from, to string) (*reconciliation.MatchReport, error) {
	var report reconciliation.MatchReport
	if err := c.do(ctx, http.MethodPost, "/transactions/match"+rangeQuery("", from, to), nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *ReconciliationClient) List(ctx context.Context, status reconciliation.Status, from, to string) ([]reconciliation.BankTransaction, error) {
	var out []reconciliation.BankTransaction
	if err := c.do(ctx, http.MethodGet, "/transactions"+rangeQuery(string(status), from, to), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReconciliationClient) Get(ctx context.Context, id uuid.UUID) (*reconciliation.BankTransaction, error) {
	var tx reconciliation.BankTransaction
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/transactions/%s", id), nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Confirm records the payment for a transaction. memberID overrides the suggestion when set.
func (c *ReconciliationClient) Confirm(ctx context.Context, id uuid.UUID, memberID *uuid.UUID, method string, override bool) (*reconciliation.BankTransaction, error) {
	req := map[string]any{"member_id": memberID, "method": method, "override": override}
	var tx reconciliation.BankTransaction
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/transactions/%s/confirm", id), req, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func rangeQuery(status, from, to string) string {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
