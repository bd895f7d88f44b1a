// Package notify sends order receipts by email.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/wneessen/go-mail"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
)

var receiptTmpl = template.Must(template.New("receipt").Parse(`Hello {{.FirstName}} {{.LastName}},

Thank you for your order #{{.ID}}.

{{range .Items}}{{.ProductName}} x {{.Quantity}} = {{.Subtotal.StringFixed 2}}
{{end}}{{if .PromoCode}}
Promo code {{.PromoCode}}: -{{.Discount.StringFixed 2}}
{{end}}
Total: {{.TotalPrice.StringFixed 2}}
Status: {{.Status}}

Shipping to:
{{.Address}}
`))

func RenderReceipt(order *models.Order) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, order); err != nil {
		return "", "", fmt.Errorf("render receipt: %w", err)
	}
	return fmt.Sprintf("Your order #%d", order.ID), buf.String(), nil
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Mailer struct {
	cfg SMTPConfig
}

func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) SendReceipt(ctx context.Context, order *models.Order) error {
	subject, body, err := RenderReceipt(order)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(order.Email); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send receipt: %w", err)
	}
	return nil
}

// LogNotifier stands in when no SMTP server is configured.
type LogNotifier struct{}

func (LogNotifier) SendReceipt(ctx context.Context, order *models.Order) error {
	logging.FromContext(ctx).Info("receipt_skipped", "order_id", order.ID, "reason", "smtp not configured")
	return nil
}
