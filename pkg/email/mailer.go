package email

import (
	"context"
	"fmt"
	"regexp"
)

// EmailSender represents an interface for sending emails.
type EmailSender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

// SendEmailParams represents the parameters for sending an email.
type SendEmailParams struct {
	SendTo   string `json:"send_to"`       // Email address of the recipient
	Subject  string `json:"subject"`       // Subject of the email
	BodyHTML string `json:"body_html"`     // HTML body of the email
	Tag      string `json:"tag,omitempty"` // Optional delivery tag for analytics
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validate checks that the params describe a sendable message.
func (p SendEmailParams) Validate() error {
	if p.SendTo == "" || !emailRegex.MatchString(p.SendTo) {
		return fmt.Errorf("%w: recipient must be a valid email address", ErrInvalidParams)
	}
	if p.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidParams)
	}
	if p.BodyHTML == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
	}
	return nil
}

// VerificationCodeEmail builds the password-setup verification message.
// The code is short-lived; expiry wording is kept in sync with the
// verification store TTL by the caller.
func VerificationCodeEmail(recipient, code string) SendEmailParams {
	return SendEmailParams{
		SendTo:  recipient,
		Subject: "Your password setup code",
		BodyHTML: fmt.Sprintf(
			`<p>Use this code to finish setting a password for your account:</p>`+
				`<p style="font-size:24px;letter-spacing:4px"><strong>%s</strong></p>`+
				`<p>If you did not request this, you can ignore this email.</p>`,
			code,
		),
		Tag: "password-setup-code",
	}
}
