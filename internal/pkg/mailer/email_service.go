// FILE: internal/pkg/mailer/email_service.go
package mailer

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// IAlertMailer notifies operators about pipeline incidents. It is an
// optional collaborator: callers hold nil when SMTP is not configured and
// skip the calls entirely.
type IAlertMailer interface {
	SendBackendUnhealthy(previousStatus string, at time.Time) error
	SendQualityCycleFailed(step, detail string, at time.Time) error
}

type alertMailer struct {
	dialer      *gomail.Dialer
	senderEmail string
	alertEmail  string
}

func NewAlertMailer(host string, port int, username, password, senderEmail, alertEmail string) IAlertMailer {
	d := gomail.NewDialer(host, port, username, password)

	return &alertMailer{
		dialer:      d,
		senderEmail: senderEmail,
		alertEmail:  alertEmail,
	}
}

func (s *alertMailer) SendBackendUnhealthy(previousStatus string, at time.Time) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", s.alertEmail)
	m.SetHeader("Subject", "[cancellation-service] Log backend unhealthy")

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Log backend went unhealthy</h2>
			<p>The Axiom health probe started failing at <b>%s</b> (previous status: %s).</p>
			<p>Cancellation processing continues, but attempt records may be dropped until the backend recovers.</p>
		</div>
	`, at.UTC().Format(time.RFC3339), previousStatus)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send unhealthy alert: %v\n", err)
		return err
	}

	fmt.Printf("[MAILER] Unhealthy alert sent to %s\n", s.alertEmail)
	return nil
}

func (s *alertMailer) SendQualityCycleFailed(step, detail string, at time.Time) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", s.alertEmail)
	m.SetHeader("Subject", "[cancellation-service] Quality cycle failed")

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Quality cycle failed</h2>
			<p>Step <b>%s</b> failed at %s:</p>
			<pre style="background: #f4f4f4; padding: 10px;">%s</pre>
			<p>The next cycle runs on schedule; check the quality log for the full report.</p>
		</div>
	`, step, at.UTC().Format(time.RFC3339), detail)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send quality alert: %v\n", err)
		return err
	}

	fmt.Printf("[MAILER] Quality alert sent to %s\n", s.alertEmail)
	return nil
}
