package notifier

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"price-peak-monitor/internal/config"

	"gopkg.in/gomail.v2"
)

func testEmailConfig() config.EmailConfig {
	return config.EmailConfig{
		Enabled:  true,
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		From:     "monitor@example.com",
		To:       "a@example.com, b@example.com",
	}
}

// fakeSession SMTP-сессия в памяти; block задерживает Send до Abort
type fakeSession struct {
	mu      sync.Mutex
	from    string
	to      []string
	message *gomail.Message
	sendErr error
	block   bool
	aborted chan struct{}
	closed  bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{aborted: make(chan struct{})}
}

func (s *fakeSession) Send(from string, to []string, msg io.WriterTo) error {
	if s.block {
		<-s.aborted
		return errors.New("use of closed network connection")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.from, s.to = from, to
	s.message, _ = msg.(*gomail.Message)
	return s.sendErr
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.aborted:
	default:
		close(s.aborted)
	}
}

func (s *fakeSession) wasAborted() bool {
	select {
	case <-s.aborted:
		return true
	default:
		return false
	}
}

func withSession(n *EmailNotifier, s *fakeSession) {
	n.dial = func(context.Context) (smtpSession, error) { return s, nil }
}

func TestEmailNotifyBuildsMessage(t *testing.T) {
	n := NewEmailNotifier(testEmailConfig())
	session := newFakeSession()
	withSession(n, session)

	if err := n.Notify(context.Background(), "Novo maior preço: R$ 8.299,00\nNotebook"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if session.from != "monitor@example.com" {
		t.Fatalf("unexpected sender %q", session.from)
	}
	if len(session.to) != 2 || session.to[0] != "a@example.com" || session.to[1] != "b@example.com" {
		t.Fatalf("unexpected recipients %v", session.to)
	}
	if subject := session.message.GetHeader("Subject"); len(subject) != 1 || subject[0] != "[PricePeak] Novo maior preço: R$ 8.299,00" {
		t.Fatalf("unexpected subject %v", subject)
	}
	if !session.closed || session.wasAborted() {
		t.Fatal("session must be closed with QUIT after a successful send")
	}
}

func TestEmailNotifyErrors(t *testing.T) {
	failing := newFakeSession()
	failing.sendErr = errors.New("535 authentication failed")

	tests := []struct {
		name string
		cfg  config.EmailConfig
		dial func(context.Context) (smtpSession, error)
	}{
		{
			name: "missing config",
			cfg:  config.EmailConfig{Enabled: true},
			dial: func(context.Context) (smtpSession, error) { return newFakeSession(), nil },
		},
		{
			name: "dial failure",
			cfg:  testEmailConfig(),
			dial: func(context.Context) (smtpSession, error) { return nil, errors.New("connection refused") },
		},
		{
			name: "smtp failure",
			cfg:  testEmailConfig(),
			dial: func(context.Context) (smtpSession, error) { return failing, nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewEmailNotifier(tt.cfg)
			n.dial = tt.dial

			var deliveryErr *DeliveryError
			if err := n.Notify(context.Background(), "hello"); !errors.As(err, &deliveryErr) {
				t.Fatalf("expected DeliveryError, got %v", err)
			}
		})
	}

	if !failing.wasAborted() {
		t.Fatal("failed session must be aborted")
	}
}

func TestEmailNotifyRespectsContext(t *testing.T) {
	n := NewEmailNotifier(testEmailConfig())
	session := newFakeSession()
	session.block = true
	withSession(n, session)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := n.Notify(ctx, "hello"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if !session.wasAborted() {
		t.Fatal("stalled session must be aborted on deadline")
	}
}

func TestEmailNotifyClosesStalledServerConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	// сервер принимает соединение и молчит, приветствие не приходит
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	cfg := testEmailConfig()
	cfg.SMTPHost = "127.0.0.1"
	cfg.SMTPPort = ln.Addr().(*net.TCPAddr).Port
	n := NewEmailNotifier(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := n.Notify(ctx, "hello"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	var server net.Conn
	select {
	case server = <-accepted:
	case <-time.After(time.Second):
		t.Fatal("client never connected")
	}
	defer server.Close()

	server.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := server.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		t.Fatalf("client connection must be closed after cancellation, got %v", err)
	}
}
