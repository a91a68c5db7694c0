package notification

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
)

// SMTPSender delivers customer email via plain SMTP. Port 465 uses implicit
// TLS, anything else goes through STARTTLS via smtp.SendMail.
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	fromName string
	secure   bool
}

func NewSMTPSender(host, port, user, pass, fromName string, secure bool) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: user,
		password: pass,
		fromName: fromName,
		secure:   secure,
	}
}

func (s *SMTPSender) Send(to, subject, bodyHTML string) error {
	from := fmt.Sprintf("%s <%s>", s.fromName, s.username)
	msg := []byte(
		fmt.Sprintf("From: %s\r\n", from) +
			fmt.Sprintf("To: %s\r\n", to) +
			fmt.Sprintf("Subject: %s\r\n", subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"utf-8\"\r\n" +
			"\r\n" +
			wrapTemplate(subject, bodyHTML),
	)

	addr := s.host + ":" + s.port

	if s.secure {
		return s.sendImplicitTLS(addr, to, msg)
	}

	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	if err := smtp.SendMail(addr, auth, s.username, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail failed: %w", err)
	}
	return nil
}

func (s *SMTPSender) sendImplicitTLS(addr, to string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.host})
	if err != nil {
		return fmt.Errorf("tls dial failed: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return fmt.Errorf("smtp client failed: %w", err)
	}
	defer client.Quit()

	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("auth failed: %w", err)
	}
	if err := client.Mail(s.username); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close failed: %w", err)
	}
	return nil
}

// wrapTemplate puts the body into the standard customer email layout.
func wrapTemplate(title, content string) string {
	return `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8" />
	<title>` + title + `</title>
	<style>
		body { font-family: Georgia, serif; background-color: #f4f1ea; padding: 30px; }
		.container { max-width: 600px; margin: auto; background: #fff; border-radius: 8px; overflow: hidden; box-shadow: 0 2px 4px rgba(0,0,0,0.08); }
		.header { background: #b22234; color: white; text-align: center; padding: 18px; font-size: 20px; font-weight: bold; }
		.body { padding: 24px; color: #333; line-height: 1.5; }
		.footer { padding: 16px 24px; font-size: 12px; color: #888; border-top: 1px solid #eee; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">Flagpost</div>
		<div class="body">` + content + `</div>
		<div class="footer">You are receiving this email because you have a flag subscription with Flagpost.</div>
	</div>
</body>
</html>`
}
