package mail

import (
	"context"
	"crypto/tls"
	"io"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/telekom/form-relay/pkg/config"
	"github.com/telekom/form-relay/pkg/metrics"
)

type Sender interface {
	// Send makes exactly one delivery attempt. The relay's error is returned unwrapped
	// so its message can be shown to the submitter.
	Send(ctx context.Context, env *Envelope) error
	GetHost() string
	GetPort() int
}

type sender struct {
	dialer *gomail.Dialer
	log    *zap.SugaredLogger
}

// NewSender builds a relay sender. Missing relay settings are reported before any
// network call, as an error matching config.ErrMisconfigured.
func NewSender(cfg config.Config, log *zap.SugaredLogger) (Sender, error) {
	if err := config.Missing(cfg.MissingRelayKeys()...); err != nil {
		return nil, err
	}

	log = log.Named("mail")
	log.Infof("Initializing new mail sender for host: %s, port: %d, user: %s, ssl: %t",
		cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.SSL)
	d := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	d.SSL = cfg.SMTP.SSL
	if cfg.SMTP.InsecureSkipVerify {
		log.Warn("InsecureSkipVerify is enabled for mail TLS connection")
		d.TLSConfig = &tls.Config{ServerName: cfg.SMTP.Host, InsecureSkipVerify: true} // #nosec G402 -- operator opt-in
	}

	return &sender{dialer: d, log: log}, nil
}

func (s *sender) Send(ctx context.Context, env *Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.log.Debugw("Preparing to send mail",
		"receivers", len(env.To),
		"subject", env.Subject,
		"attachments", len(env.Attachments))

	if err := s.deliver(env); err != nil {
		s.log.Warnw("Failed to send mail", "host", s.GetHost(), "error", err)
		metrics.MailSendFailure.WithLabelValues(s.GetHost()).Inc()
		return err
	}

	for _, att := range env.Attachments {
		metrics.MailAttachmentBytes.Observe(float64(len(att.Content)))
	}
	metrics.MailSendSuccess.WithLabelValues(s.GetHost()).Inc()
	s.log.Infow("Mail sent successfully", "receivers", len(env.To), "messageID", env.MessageID)
	return nil
}

// deliver dials and sends on the raw SendCloser rather than DialAndSend, which
// prefixes relay errors with "gomail: could not send email 1:".
func (s *sender) deliver(env *Envelope) error {
	sc, err := s.dialer.Dial()
	if err != nil {
		return err
	}
	defer func() {
		// The relay already accepted or rejected the message; QUIT failures change nothing.
		if cerr := sc.Close(); cerr != nil {
			s.log.Debugw("Closing SMTP connection failed", "error", cerr)
		}
	}()
	return sc.Send(env.FromAddress, env.To, newMessage(env))
}

func (s *sender) GetHost() string {
	return s.dialer.Host
}

func (s *sender) GetPort() int {
	return s.dialer.Port
}

func newMessage(env *Envelope) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", env.FromAddress, env.FromName)
	msg.SetAddressHeader("Reply-To", env.ReplyToAddress, env.ReplyToName)
	msg.SetHeader("To", env.To...)
	msg.SetHeader("Subject", env.Subject)
	if env.MessageID != "" {
		msg.SetHeader("Message-ID", "<"+env.MessageID+">")
	}
	msg.SetBody("text/html", env.HTMLBody)

	for _, att := range env.Attachments {
		content := att.Content
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
		}
		if att.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {att.ContentType},
			}))
		}
		msg.Attach(att.Name, settings...)
	}
	return msg
}
