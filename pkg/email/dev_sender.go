package email

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevSender implements EmailSender for local development. It writes each
// message to an HTML file instead of sending it through an email service.
type DevSender struct {
	dir string
}

// NewDevSender creates a development email sender that saves emails to disk.
// The directory is created on first send.
func NewDevSender(dir string) EmailSender {
	return &DevSender{dir: dir}
}

// SendEmail writes the message body to the configured directory.
func (d *DevSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %v", ErrFailedToSendEmail, err)
	}

	name := fmt.Sprintf("%s_%s.html",
		time.Now().Format("2006_01_02_150405"),
		sanitizeFilename(params.Tag+"_"+params.SendTo),
	)
	path := filepath.Join(d.dir, name)
	body := fmt.Sprintf("<!-- to: %s subject: %s -->\n%s", params.SendTo, params.Subject, params.BodyHTML)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("%w: failed to write file: %v", ErrFailedToSendEmail, err)
	}
	return nil
}

var filenameRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = filenameRegex.ReplaceAllString(s, "")
	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}
