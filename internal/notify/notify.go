// internal/notify/notify.go
package notify

import (
	"context"
	"fmt"
	"html"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/gomail.v2"

	"clubledger/internal/billing"
	"clubledger/internal/ledger"
	"clubledger/internal/membership"
)

// Dialer sends prepared messages. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier e-mails members when an invoice is issued.
type SMTPNotifier struct {
	dialer  Dialer
	from    string
	printer *message.Printer
	tracer  trace.Tracer
	log     *zap.Logger
}

var _ billing.Notifier = (*SMTPNotifier)(nil)

func NewSMTPNotifier(cfg SMTPConfig, log *zap.Logger) *SMTPNotifier {
	return NewNotifier(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From, log)
}

// NewNotifier builds a notifier on an arbitrary dialer.
func NewNotifier(dialer Dialer, from string, log *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		dialer:  dialer,
		from:    from,
		printer: message.NewPrinter(language.MustParse("es-CL")),
		tracer:  otel.Tracer("clubledger/notify"),
		log:     log.Named("notify"),
	}
}

func (n *SMTPNotifier) InvoiceIssued(ctx context.Context, member membership.Member, inv *ledger.Invoice) error {
	_, span := n.tracer.Start(ctx, "notify.invoice_issued",
		trace.WithAttributes(
			attribute.String("invoice.number", inv.Number),
			attribute.String("member.id", member.ID.String()),
		))
	defer span.End()

	if member.Email == "" {
		n.log.Debug("member has no email, skipping notification", zap.String("member_id", member.ID.String()))
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetAddressHeader("To", member.Email, member.FullName())
	m.SetHeader("Subject", n.subject(inv))
	m.SetBody("text/html", n.body(member, inv))

	if err := n.dialer.DialAndSend(m); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to send invoice %s to %s: %w", inv.Number, member.Email, err)
	}
	return nil
}

func (n *SMTPNotifier) subject(inv *ledger.Invoice) string {
	if inv.Kind == ledger.KindEntryFee {
		return fmt.Sprintf("Cuota de incorporación %d - cupón %s", inv.Installment, inv.Number)
	}
	return fmt.Sprintf("Cupón de pago %s - período %s", inv.Number, inv.Period)
}

func (n *SMTPNotifier) body(member membership.Member, inv *ledger.Invoice) string {
	rows := ""
	for _, l := range inv.Lines {
		rows += n.printer.Sprintf("<tr><td>%s</td><td align=\"right\">$%d</td></tr>\n",
			html.EscapeString(l.Description), l.Subtotal.Round(0).IntPart())
	}
	return n.printer.Sprintf(`<h2>Cupón %s</h2>
<p>Estimado(a) %s, socio N° %d:</p>
<table>
%s</table>
<p><strong>Total: $%d</strong></p>
<p>Vencimiento: %s</p>
`, inv.Number, html.EscapeString(member.FullName()), member.Number, rows,
		inv.Total.Round(0).IntPart(), inv.DueDate.Format("02-01-2006"))
}

// Nop discards every notification.
type Nop struct{}

func (Nop) InvoiceIssued(context.Context, membership.Member, *ledger.Invoice) error { return nil }
