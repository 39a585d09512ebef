package notification

import (
	"bytes"
	"fmt"
	"net/smtp"
	"text/template"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smukkama/aqi-forecast/internal/protocol"
	"github.com/smukkama/aqi-forecast/pkg/config"
)

const targetLayout = "02-01-2006 03:04 PM"

var templates = template.Must(template.New("triggered").Funcs(template.FuncMap{
	"target": func(t time.Time) string { return t.Format(targetLayout) },
}).Parse(`
AQI Forecast Alert
==================

The {{.HorizonHours}}h forecast has reached {{.Severity}}.

Forecast AQI: {{printf "%.1f" .AQI}}
Valid for: {{target .Target}}
Latest reading: {{.RawDate}}
Alerting since: {{.Since.Format "2006-01-02 15:04 MST"}}
Alert ID: {{.AlertID}}

Consider limiting outdoor activity for the forecast period.

---
AQI Forecast Notification System
`))

func init() {
	template.Must(templates.New("updated").Parse(`
AQI Forecast Alert Updated
==========================

The {{.HorizonHours}}h forecast changed from {{.PreviousSeverity}} to {{.Severity}}.

Forecast AQI: {{printf "%.1f" .AQI}}
Valid for: {{target .Target}}
Latest reading: {{.RawDate}}
Alert ID: {{.AlertID}}

---
AQI Forecast Notification System
`))

	template.Must(templates.New("cleared").Parse(`
AQI Forecast Alert Cleared
==========================

The {{.HorizonHours}}h forecast is back to {{.Severity}} (AQI {{printf "%.1f" .AQI}}).
It was {{.PreviousSeverity}} since {{.Since.Format "2006-01-02 15:04 MST"}}.

Alert ID: {{.AlertID}}

---
AQI Forecast Notification System
`))
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends email notifications
type EmailNotifier struct {
	config *config.SMTPConfig
	logger logrus.FieldLogger
	send   sendFunc
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.SMTPConfig, logger logrus.FieldLogger) *EmailNotifier {
	return &EmailNotifier{config: cfg, logger: logger, send: smtp.SendMail}
}

// Render returns the subject and body for a notification
func (e *EmailNotifier) Render(n *protocol.AlertNotification) (string, string, error) {
	var subject, name string

	switch n.Type {
	case protocol.AlertTypeTriggered:
		subject = fmt.Sprintf("🚨 AQI Forecast ALERT - %dh %s", n.HorizonHours, n.Severity)
		name = "triggered"
	case protocol.AlertTypeUpdated:
		subject = fmt.Sprintf("⚠️ AQI Forecast UPDATED - %dh %s", n.HorizonHours, n.Severity)
		name = "updated"
	case protocol.AlertTypeCleared:
		subject = fmt.Sprintf("✅ AQI Forecast CLEARED - %dh", n.HorizonHours)
		name = "cleared"
	default:
		return "", "", fmt.Errorf("unknown notification type: %s", n.Type)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, n); err != nil {
		return "", "", fmt.Errorf("failed to render email template: %w", err)
	}
	return subject, buf.String(), nil
}

// SendAlertNotification sends an email for an alert notification
func (e *EmailNotifier) SendAlertNotification(n *protocol.AlertNotification) error {
	subject, body, err := e.Render(n)
	if err != nil {
		return err
	}
	return e.sendEmail(subject, body)
}

func (e *EmailNotifier) sendEmail(subject, body string) error {
	// Skip sending if SMTP is not configured
	if e.config.Username == "" || e.config.Password == "" {
		e.logger.WithField("subject", subject).Info("SMTP not configured, logging email only")
		e.logger.Debug(body)
		return nil
	}

	message := fmt.Sprintf("From: %s\r\n", e.config.From)
	message += fmt.Sprintf("To: %s\r\n", e.config.To)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	message += "Content-Type: text/plain; charset=UTF-8\r\n"
	message += "\r\n"
	message += body

	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	if err := e.send(addr, auth, e.config.From, []string{e.config.To}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	e.logger.WithField("subject", subject).Info("Email sent")
	return nil
}

// TestConnection tests the SMTP connection
func (e *EmailNotifier) TestConnection() error {
	if e.config.Username == "" {
		return fmt.Errorf("SMTP not configured")
	}

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	return nil
}
