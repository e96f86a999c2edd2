package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"gopkg.in/gomail.v2"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

// Notifier delivers one rendered message to one recipient address.
type Notifier interface {
	Send(ctx context.Context, address, message string) error
}

// WhatsAppNotifier sends messages through the Twilio WhatsApp API.
type WhatsAppNotifier struct {
	client     *resty.Client
	accountSID string
	authToken  string
	from       string
}

var _ Notifier = (*WhatsAppNotifier)(nil)

func NewWhatsAppNotifier(accountSID, authToken, from string) *WhatsAppNotifier {
	return &WhatsAppNotifier{
		client:     resty.New().SetTimeout(30 * time.Second),
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
	}
}

func (n *WhatsAppNotifier) Send(ctx context.Context, address, message string) error {
	if !validPhoneNumber(address) {
		return fmt.Errorf("invalid phone number %q", address)
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetBasicAuth(n.accountSID, n.authToken).
		SetFormData(map[string]string{
			"From": "whatsapp:" + n.from,
			"To":   "whatsapp:" + formatPhoneNumber(address),
			"Body": message,
		}).
		Post(fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", n.accountSID))

	if err != nil {
		return fmt.Errorf("failed to send WhatsApp message: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("WhatsApp API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func validPhoneNumber(phone string) bool {
	digits := digitsOnly(phone)
	return len(digits) >= 10 && len(digits) <= 15
}

func formatPhoneNumber(phone string) string {
	return "+" + digitsOnly(phone)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EmailNotifier sends messages over SMTP. The first line of the rendered
// message becomes the subject.
type EmailNotifier struct {
	host     string
	port     int
	username string
	password string
}

var _ Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(host string, port int, username, password string) *EmailNotifier {
	return &EmailNotifier{host: host, port: port, username: username, password: password}
}

func (n *EmailNotifier) Send(ctx context.Context, address, message string) error {
	subject := "ReviewPulse alert"
	if idx := strings.Index(message, "\n"); idx > 0 {
		subject = strings.TrimSpace(message[:idx])
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.username)
	m.SetHeader("To", address)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", message)

	d := gomail.NewDialer(n.host, n.port, n.username, n.password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// Channels groups the configured delivery channels. A user with a phone
// number is reached over WhatsApp; otherwise email is used.
type Channels struct {
	WhatsApp Notifier
	Email    Notifier
}

// Deliver sends a message to one user over the best available channel.
func (c Channels) Deliver(ctx context.Context, user *models.User, message string) error {
	switch {
	case user.Phone != "" && c.WhatsApp != nil:
		return c.WhatsApp.Send(ctx, user.Phone, message)
	case user.Email != "" && c.Email != nil:
		return c.Email.Send(ctx, user.Email, message)
	default:
		return fmt.Errorf("no usable contact channel for user %s", user.ID)
	}
}
