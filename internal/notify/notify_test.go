package notify

import (
	"bytes"
	"context"
	"errors"
	"mime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"clubledger/internal/ledger"
	"clubledger/internal/membership"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func sample() (membership.Member, *ledger.Invoice) {
	member := membership.Member{ID: uuid.New(), Number: 7, Email: "juan@example.cl", FirstName: "Juan", LastName: "Muñoz"}
	inv := &ledger.Invoice{
		Number:  "202503-0007",
		Kind:    ledger.KindPeriodic,
		Period:  ledger.Period{Month: time.March, Year: 2025},
		DueDate: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Total:   decimal.NewFromInt(112000),
		Lines: []ledger.LineItem{
			{Description: "Cuota social", Subtotal: decimal.NewFromInt(28000)},
			{Description: "Amarre <Albatros>", Subtotal: decimal.NewFromInt(84000)},
		},
	}
	return member, inv
}

func TestInvoiceIssuedSendsMail(t *testing.T) {
	dialer := &fakeDialer{}
	n := NewNotifier(dialer, "tesoreria@club.cl", zap.NewNop())
	member, inv := sample()

	require.NoError(t, n.InvoiceIssued(context.Background(), member, inv))
	require.Len(t, dialer.sent, 1)

	msg := dialer.sent[0]
	subject := msg.GetHeader("Subject")
	require.Len(t, subject, 1)
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject[0])
	require.NoError(t, err)
	assert.Equal(t, "Cupón de pago 202503-0007 - período 2025-03", decoded)
	assert.Equal(t, n.subject(inv), decoded)
	assert.Equal(t, []string{"tesoreria@club.cl"}, msg.GetHeader("From"))

	body := n.body(member, inv)
	assert.Contains(t, body, "112.000")
	assert.Contains(t, body, "Amarre &lt;Albatros&gt;")
	assert.Contains(t, body, "15-03-2025")

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "juan@example.cl")
}

func TestInvoiceIssuedSkipsMembersWithoutEmail(t *testing.T) {
	dialer := &fakeDialer{}
	n := NewNotifier(dialer, "tesoreria@club.cl", zap.NewNop())
	member, inv := sample()
	member.Email = ""

	require.NoError(t, n.InvoiceIssued(context.Background(), member, inv))
	assert.Empty(t, dialer.sent)
}

func TestInvoiceIssuedWrapsDialError(t *testing.T) {
	refused := errors.New("connection refused")
	n := NewNotifier(&fakeDialer{err: refused}, "tesoreria@club.cl", zap.NewNop())
	member, inv := sample()

	err := n.InvoiceIssued(context.Background(), member, inv)
	assert.True(t, errors.Is(err, refused))
	assert.Contains(t, err.Error(), "202503-0007")
}

func TestEntryFeeSubject(t *testing.T) {
	n := NewNotifier(&fakeDialer{}, "x@club.cl", zap.NewNop())
	_, inv := sample()
	inv.Kind = ledger.KindEntryFee
	inv.Installment = 2
	assert.Equal(t, "Cuota de incorporación 2 - cupón 202503-0007", n.subject(inv))
}
