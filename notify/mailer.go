// Package notify delivers rendered claims to the warranty team over
// authenticated SMTP.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"claimdesk/apperr"
	"claimdesk/claim"
	"claimdesk/config"
	"claimdesk/logging"
)

// DefaultTimeout bounds one SMTP session.
const DefaultTimeout = 10 * time.Second

var (
	// ErrNoRecipients signals an envelope without a primary recipient.
	ErrNoRecipients = errors.New("notify: no recipients")
	// ErrNoSender signals a mailer configured without a From address.
	ErrNoSender = errors.New("notify: sender address is not configured")
)

// Sender delivers composed messages over one SMTP session.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, msgs ...*mail.Msg) error
}

// DialFunc opens a Sender for the configured server.
type DialFunc func() (Sender, error)

// Envelope is one outbound message with a single attachment.
type Envelope struct {
	From       string
	To         []string
	Cc         []string
	Subject    string
	HTML       string
	Text       string
	Attachment claim.Attachment
}

// Mailer sends claim notifications. Each Send opens its own session; there
// is no pooling and no retry.
type Mailer struct {
	from    string
	to      []string
	cc      []string
	timeout time.Duration
	dial    DialFunc
	logger  *zap.Logger
}

// New builds a Mailer from the mail section of the configuration. A
// non-positive timeout uses DefaultTimeout.
func New(cfg config.MailConfig, timeout time.Duration, logger *zap.Logger) *Mailer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	m := &Mailer{
		from:    cfg.From,
		to:      splitRecipients(cfg.To),
		cc:      cfg.Cc,
		timeout: timeout,
		logger:  logging.OrNop(logger),
	}
	m.dial = func() (Sender, error) {
		return newClient(cfg, m.timeout)
	}
	return m
}

// WithDialer replaces the SMTP client factory.
func (m *Mailer) WithDialer(dial DialFunc) *Mailer {
	m.dial = dial
	return m
}

func newClient(cfg config.MailConfig, timeout time.Duration) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(timeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	return mail.NewClient(cfg.Host, opts...)
}

// Notify sends a rendered claim to the configured recipients.
func (m *Mailer) Notify(ctx context.Context, msg claim.Message, doc claim.Attachment) error {
	return m.Send(ctx, Envelope{
		From:       m.from,
		To:         m.to,
		Cc:         m.cc,
		Subject:    msg.Subject,
		HTML:       msg.HTML,
		Text:       msg.Text,
		Attachment: doc,
	})
}

// Send delivers env in one authenticated session.
func (m *Mailer) Send(ctx context.Context, env Envelope) error {
	msg, err := Build(env)
	if err != nil {
		return err
	}

	client, err := m.dial()
	if err != nil {
		return apperr.Transport("notify: dial", err)
	}

	start := time.Now()
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		m.logger.Warn("smtp send failed",
			zap.String("subject", env.Subject),
			zap.Strings("to", env.To),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return apperr.Transport("notify: send", err)
	}

	m.logger.Debug("smtp send ok",
		zap.String("subject", env.Subject),
		zap.Int("recipients", len(env.To)+len(env.Cc)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Build renders env into a multipart message: a plain-text body with the
// HTML version as the preferred (last) alternative, plus the attachment
// when it has data.
func Build(env Envelope) (*mail.Msg, error) {
	if strings.TrimSpace(env.From) == "" {
		return nil, ErrNoSender
	}
	to := clean(env.To)
	if len(to) == 0 {
		return nil, ErrNoRecipients
	}

	msg := mail.NewMsg()
	if err := msg.From(env.From); err != nil {
		return nil, fmt.Errorf("notify: from address: %w", err)
	}
	if err := msg.To(to...); err != nil {
		return nil, fmt.Errorf("notify: to address: %w", err)
	}
	if cc := clean(env.Cc); len(cc) > 0 {
		if err := msg.Cc(cc...); err != nil {
			return nil, fmt.Errorf("notify: cc address: %w", err)
		}
	}
	msg.Subject(env.Subject)
	if env.Text != "" {
		msg.SetBodyString(mail.TypeTextPlain, env.Text)
		msg.AddAlternativeString(mail.TypeTextHTML, env.HTML)
	} else {
		msg.SetBodyString(mail.TypeTextHTML, env.HTML)
	}

	doc := env.Attachment
	if len(doc.Data) > 0 {
		var opts []mail.FileOption
		if doc.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(doc.ContentType)))
		}
		if err := msg.AttachReader(doc.Name, doc.Reader(), opts...); err != nil {
			return nil, fmt.Errorf("notify: attach %s: %w", doc.Name, err)
		}
	}
	return msg, nil
}

func splitRecipients(s string) []string {
	return clean(strings.Split(s, ","))
}

func clean(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
