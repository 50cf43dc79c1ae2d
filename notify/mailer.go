package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"checkout-svc/config"
	"checkout-svc/models"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Sender delivers prepared messages. *gomail.Dialer is the production
// implementation.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Hi {{.Name}},</p>
<p>Thank you for your order <strong>#{{.Confirmation.OrderNumber}}</strong>.</p>
<table>
<tr><th>Product</th><th>Quantity</th><th>Price</th></tr>
{{range .Confirmation.Items}}<tr><td>{{.ProductID}}</td><td>{{.Quantity}}</td><td>{{.Price.StringFixed 2}}</td></tr>
{{end}}</table>
<p>Total: <strong>{{.Confirmation.Total.StringFixed 2}}</strong></p>
</body>
</html>
`))

type Mailer struct {
	sender Sender
	from   string
	logger *zap.Logger
}

func NewMailer(cfg config.SMTPConfig, logger *zap.Logger) *Mailer {
	return NewMailerWithSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From, logger)
}

func NewMailerWithSender(sender Sender, from string, logger *zap.Logger) *Mailer {
	return &Mailer{sender: sender, from: from, logger: logger}
}

func (m *Mailer) SendOrderConfirmation(ctx context.Context, email, name string, confirmation models.OrderConfirmation) error {
	var body bytes.Buffer
	err := confirmationTemplate.Execute(&body, struct {
		Name         string
		Confirmation models.OrderConfirmation
	}{name, confirmation})
	if err != nil {
		return fmt.Errorf("failed to render confirmation: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetAddressHeader("To", email, name)
	msg.SetHeader("Subject", fmt.Sprintf("Order confirmation #%s", confirmation.OrderNumber))
	msg.SetBody("text/html", body.String())

	// gomail has no context support; give up waiting when ctx ends.
	done := make(chan error, 1)
	go func() { done <- m.sender.DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send confirmation: %w", err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	m.logger.Info("Order confirmation sent",
		zap.String("order_number", confirmation.OrderNumber),
		zap.String("email", email),
	)
	return nil
}

// HandleOrderEvent sends the confirmation carried by a consumed event.
func (m *Mailer) HandleOrderEvent(ctx context.Context, event models.OrderEvent) error {
	return m.SendOrderConfirmation(ctx, event.CustomerEmail, event.CustomerName, event.Confirmation)
}
