package clients

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clubledger/internal/audit"
	"clubledger/internal/billing"
	"clubledger/internal/errs"
	"clubledger/internal/httpx"
	"clubledger/internal/ledger"
	"clubledger/internal/membership"
	"clubledger/internal/memstore"
	"clubledger/internal/payments"
)

type fixedCost decimal.Decimal

func (c fixedCost) VisitCost(context.Context) decimal.Decimal { return decimal.Decimal(c) }

func TestMembershipClientRoundTrip(t *testing.T) {
	svc := membership.NewService(memstore.New(), fixedCost(decimal.NewFromInt(4200)), audit.Discard, zap.NewNop())
	srv := httptest.NewServer(membership.NewHandler(svc, zap.NewNop()).Routes())
	defer srv.Close()

	ctx := context.Background()
	c := NewMembershipClient(srv.URL, srv.Client())
	req := RegisterMemberRequest{
		Number: 42, NationalID: "12.345.678-5", Email: "socio@example.cl",
		FirstName: "Juan", LastName: "Muñoz",
	}
	m, err := c.RegisterMember(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 42, m.Number)

	got, err := c.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	req.Number = 43
	_, err = c.RegisterMember(ctx, req)
	assert.True(t, errors.Is(err, errs.ErrConflict))

	_, err = c.GetMember(ctx, uuid.New())
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	visit, err := c.RecordVisit(ctx, m.ID, "2025-03-08", 2)
	require.NoError(t, err)
	assert.True(t, visit.Total.Equal(decimal.NewFromInt(8400)))

	_, err = c.RecordVisit(ctx, m.ID, "08/03/2025", 2)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestOverrideRequiredCarriesVerdict(t *testing.T) {
	existing := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments", r.URL.Path)
		httpx.JSON(w, http.StatusConflict, httpx.ErrorBody{
			Error: "possible duplicate payment",
			Kind:  "override_required",
			Detail: payments.Verdict{
				IsDuplicate: true, Confidence: payments.ConfidenceMedium, ExistingPaymentID: &existing,
			},
		})
	}))
	defer srv.Close()

	c := NewBillingClient(srv.URL, srv.Client())
	_, err := c.RecordPayment(context.Background(), PaymentRequest{
		MemberID: uuid.New(), Date: "2025-03-05", Amount: decimal.NewFromInt(112000), Method: "transfer",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, payments.ErrOverrideRequired))
	assert.False(t, errors.Is(err, errs.ErrConflict))

	var verdict payments.Verdict
	require.True(t, DecodeDetail(err, &verdict))
	assert.Equal(t, payments.ConfidenceMedium, verdict.Confidence)
	assert.Equal(t, existing, *verdict.ExistingPaymentID)
}

func TestBillingClientQueryEncoding(t *testing.T) {
	member := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, member.String(), q.Get("member_id"))
		assert.Equal(t, "overdue", q.Get("status"))
		assert.Equal(t, "2025-03", q.Get("period"))
		httpx.JSON(w, http.StatusOK, []ledger.Invoice{{ID: uuid.New(), MemberID: member, Number: "202503-0001"}})
	}))
	defer srv.Close()

	c := NewBillingClient(srv.URL, nil)
	invoices, err := c.ListInvoices(context.Background(), billingFilter(member))
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "202503-0001", invoices[0].Number)
}

func TestImportStatementSendsCSV(t *testing.T) {
	const statement = "fecha;descripcion;monto\n05/03/2025;TRANSF DE JUAN;112.000\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/csv", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, statement, string(body))
		httpx.JSON(w, http.StatusOK, map[string]int{"parsed": 1, "inserted": 1})
	}))
	defer srv.Close()

	c := NewReconciliationClient(srv.URL, nil)
	report, err := c.ImportStatement(context.Background(), strings.NewReader(statement))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Parsed)
	assert.Equal(t, 1, report.Inserted)
}

func TestUndecodableErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewReconciliationClient(srv.URL, nil).Get(context.Background(), uuid.New())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "internal", apiErr.Kind)
}

func billingFilter(member uuid.UUID) billing.InvoiceFilter {
	return billing.InvoiceFilter{MemberID: member, Status: ledger.InvoiceOverdue, Period: ledger.Period{Month: 3, Year: 2025}}
}
