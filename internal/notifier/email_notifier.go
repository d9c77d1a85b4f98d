// internal/notifier/email_notifier.go
package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"price-peak-monitor/internal/config"

	"gopkg.in/gomail.v2"
)

const (
	emailChannel = "email"
	smtpsPort    = 465
)

// smtpSession SMTP-сессия, которую можно оборвать закрытием соединения
type smtpSession interface {
	gomail.SendCloser
	Abort()
}

// EmailNotifier отправляет оповещения по SMTP
type EmailNotifier struct {
	cfg  config.EmailConfig
	dial func(ctx context.Context) (smtpSession, error)
}

// NewEmailNotifier создает почтовый канал
func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{
		cfg: cfg,
		dial: func(ctx context.Context) (smtpSession, error) {
			return dialSMTP(ctx, cfg)
		},
	}
}

func (n *EmailNotifier) Name() string {
	return emailChannel
}

// Notify отправляет письмо. Отмена ctx закрывает SMTP-соединение, поэтому
// зависший сервер не удерживает ни горутину, ни сокет.
func (n *EmailNotifier) Notify(ctx context.Context, message string) error {
	if n.cfg.SMTPHost == "" || n.cfg.From == "" || strings.TrimSpace(n.cfg.To) == "" {
		return &DeliveryError{Channel: emailChannel, Err: fmt.Errorf("email config missing")}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", splitRecipients(n.cfg.To)...)
	m.SetHeader("Subject", subjectLine(message))
	m.SetBody("text/plain", message)

	if err := n.deliver(ctx, m); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &DeliveryError{Channel: emailChannel, Err: ctxErr}
		}
		return &DeliveryError{Channel: emailChannel, Err: fmt.Errorf("send email: %w", err)}
	}
	return nil
}

func (n *EmailNotifier) deliver(ctx context.Context, m *gomail.Message) error {
	session, err := n.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}

	stop := context.AfterFunc(ctx, session.Abort)
	defer stop()

	if err := gomail.Send(session, m); err != nil {
		session.Abort()
		return err
	}
	return session.Close()
}

// netSMTPSession gomail.SendCloser поверх собственного net.Conn
type netSMTPSession struct {
	conn   net.Conn
	client *smtp.Client
	stop   func() bool
}

// dialSMTP повторяет рукопожатие gomail.Dialer, но держит сокет у себя:
// отмена ctx закрывает его на любом этапе, включая ожидание приветствия.
func dialSMTP(ctx context.Context, cfg config.EmailConfig) (smtpSession, error) {
	addr := net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &netSMTPSession{conn: conn}
	s.stop = context.AfterFunc(ctx, s.Abort)

	var wire net.Conn = conn
	if cfg.SMTPPort == smtpsPort {
		wire = tls.Client(conn, &tls.Config{ServerName: cfg.SMTPHost})
	}

	client, err := smtp.NewClient(wire, cfg.SMTPHost)
	if err != nil {
		s.release()
		return nil, err
	}
	s.client = client

	if cfg.SMTPPort != smtpsPort {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.SMTPHost}); err != nil {
				s.release()
				return nil, err
			}
		}
	}

	if cfg.SMTPUser != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
			if err := client.Auth(auth); err != nil {
				s.release()
				return nil, err
			}
		}
	}

	return s, nil
}

func (s *netSMTPSession) Send(from string, to []string, msg io.WriterTo) error {
	if err := s.client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := s.client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := s.client.Data()
	if err != nil {
		return err
	}
	if _, err := msg.WriteTo(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (s *netSMTPSession) Close() error {
	defer s.release()
	return s.client.Quit()
}

// Abort рвет соединение без QUIT
func (s *netSMTPSession) Abort() {
	s.conn.Close()
}

func (s *netSMTPSession) release() {
	s.stop()
	s.conn.Close()
}

func splitRecipients(to string) []string {
	var recipients []string
	for _, r := range strings.Split(to, ",") {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	return recipients
}

// subjectLine первая строка сообщения
func subjectLine(message string) string {
	line, _, _ := strings.Cut(message, "\n")
	return "[PricePeak] " + line
}
