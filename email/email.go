package email

import (
	"fmt"
	"net/smtp"
	"os"
)

type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string
}

func NewEmailService() *EmailService {
	return &EmailService{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		user:     os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     os.Getenv("SMTP_FROM"),
	}
}

// Configured reports whether SMTP settings are present. Sending is
// skipped entirely when they are not; registration never depends on it.
func (e *EmailService) Configured() bool {
	return e.host != "" && e.from != ""
}

// SendWelcomeEmail greets a freshly registered account. Failures are
// the caller's to log; they never fail the registration itself.
func (e *EmailService) SendWelcomeEmail(to, name string) error {
	domain := os.Getenv("DOMAIN")
	if domain == "" {
		domain = "http://localhost:8080"
	}

	subject := "Welcome to AI Help Center"
	body := fmt.Sprintf(`Hi %s,

Thanks for creating an account at AI Help Center.

Your free membership is active, so you can rate and review any article
after logging in:

%s/login

Reviews and comments appear publicly once a moderator approves them.

---
AI Help Center
`, name, domain)

	message := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", e.from, to, subject, body)

	auth := smtp.PlainAuth("", e.user, e.password, e.host)
	addr := fmt.Sprintf("%s:%s", e.host, e.port)

	if err := smtp.SendMail(addr, auth, e.from, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}

	return nil
}
