package services

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// Notifier is the outbound notification sink. Callers treat every failure as
// best-effort and never fail their own operation because of it.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// MailService sends plain-text email over SMTP with PLAIN auth.
type MailService struct {
	host     string
	port     int
	user     string
	pass     string
	fromName string
	send     sendMailFunc
}

// NewMailService creates a new MailService.
func NewMailService(host string, port int, user, pass, fromName string) *MailService {
	return &MailService{
		host:     host,
		port:     port,
		user:     user,
		pass:     pass,
		fromName: fromName,
		send:     smtp.SendMail,
	}
}

// Send delivers one message.
func (s *MailService) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return fmt.Errorf("mail: header contains line break")
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	msg := s.compose(to, subject, body)

	if err := s.send(addr, auth, s.user, []string{to}, msg); err != nil {
		return fmt.Errorf("mail to %s: %w", to, err)
	}
	return nil
}

func (s *MailService) compose(to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %q <%s>\r\n", s.fromName, s.user)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogNotifier writes notifications to the log instead of sending them. Used
// when no SMTP credentials are configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.logger.InfoContext(ctx, "mail skipped, no smtp credentials", "to", to, "subject", subject, "body", body)
	return nil
}
