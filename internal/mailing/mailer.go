package mailing

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/openfoundry/outreach/internal/domain"
	"github.com/openfoundry/outreach/internal/logger"
)

// Sender delivers one rendered message to one contact.
type Sender interface {
	Send(ctx context.Context, to domain.Contact, msg Message) error
}

// MailerOptions configures the SMTP relay connection.
type MailerOptions struct {
	Host     string
	Port     int
	User     string // empty = no auth
	Password string

	FromAddress string
	FromName    string
	ReplyTo     string
	BCCAddress  string

	DryRun bool
}

// Mailer sends rendered messages over SMTP via go-mail.
// With DryRun set it logs what would have been sent and reports success.
type Mailer struct {
	opts MailerOptions
	log  logger.Logger
}

func NewMailer(opts MailerOptions, log logger.Logger) *Mailer {
	return &Mailer{opts: opts, log: log}
}

func (m *Mailer) Send(ctx context.Context, to domain.Contact, msg Message) error {
	if m.opts.DryRun {
		m.log.Info("dry-run: message not sent",
			logger.String("to", to.Email),
			logger.String("subject", msg.Subject),
			logger.String("template", msg.Template))
		return nil
	}

	out := gomail.NewMsg(gomail.WithCharset(gomail.CharsetUTF8))
	if err := out.FromFormat(m.opts.FromName, m.opts.FromAddress); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := out.To(to.Email); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	if m.opts.ReplyTo != "" {
		if err := out.ReplyTo(m.opts.ReplyTo); err != nil {
			return fmt.Errorf("set reply-to: %w", err)
		}
	}
	if m.opts.BCCAddress != "" {
		if err := out.Bcc(m.opts.BCCAddress); err != nil {
			return fmt.Errorf("set bcc: %w", err)
		}
	}
	out.Subject(msg.Subject)
	out.SetBodyString(gomail.TypeTextPlain, msg.Body)

	clientOpts := []gomail.Option{
		gomail.WithPort(m.opts.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if m.opts.User != "" {
		clientOpts = append(clientOpts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.opts.User),
			gomail.WithPassword(m.opts.Password),
		)
	}

	c, err := gomail.NewClient(m.opts.Host, clientOpts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := c.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("send to %s: %w", to.Email, err)
	}
	return nil
}
