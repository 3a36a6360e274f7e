package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// LowStockAlert describes a product that crossed its low-stock threshold.
type LowStockAlert struct {
	ProductID   string
	ProductName string
	Stock       int
	Threshold   int
	OccurredAt  time.Time
}

type Sender interface {
	SendLowStockAlert(ctx context.Context, recipients []string, alert LowStockAlert) error
}

type NoopSender struct{}

func (NoopSender) SendLowStockAlert(context.Context, []string, LowStockAlert) error {
	return nil
}

// SMTPSender delivers alerts through an SMTP server via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, recipients []string, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(recipients...); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// SendLowStockAlert mails the warehouse recipients about a low product.
func (s *SMTPSender) SendLowStockAlert(ctx context.Context, recipients []string, alert LowStockAlert) error {
	if len(recipients) == 0 {
		return nil
	}
	subject, content, err := renderLowStockAlert(alert)
	if err != nil {
		return err
	}
	return s.send(ctx, recipients, subject, content)
}

func renderLowStockAlert(alert LowStockAlert) (string, string, error) {
	content, err := renderEmailTemplate("low_stock.html", lowStockEmailData{
		baseEmailData: baseEmailData{
			Title:   "Low stock",
			Heading: fmt.Sprintf(subjectLowStockFmt, alert.ProductName),
		},
		ProductName: alert.ProductName,
		Stock:       alert.Stock,
		Threshold:   alert.Threshold,
		OccurredAt:  alert.OccurredAt.UTC().Format("2006-01-02 15:04 MST"),
	})
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf(subjectLowStockFmt, alert.ProductName), content, nil
}
