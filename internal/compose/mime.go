// Package compose builds the RFC 2822 message bodies uploaded to the
// mail provider.
package compose

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

const crlf = "\r\n"

// Attachment is one file carried by an outgoing message. Content is the
// standard-base64 payload as delivered by the browser extension.
type Attachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

// Message is the composer input. CC and BCC are comma-separated address
// lists.
type Message struct {
	To          string
	Subject     string
	Body        string
	CC          string
	BCC         string
	Draft       bool
	Attachments []Attachment
}

// Validate checks the required fields and attachment payloads.
func (m *Message) Validate() error {
	var missing []string
	if strings.TrimSpace(m.To) == "" {
		missing = append(missing, "to")
	}
	if strings.TrimSpace(m.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(m.Body) == "" {
		missing = append(missing, "body")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	for i, att := range m.Attachments {
		if att.Filename == "" {
			return fmt.Errorf("attachment %d: missing filename", i)
		}
		if att.ContentType == "" {
			return fmt.Errorf("attachment %d: missing contentType", i)
		}
		if _, err := base64.StdEncoding.DecodeString(att.Content); err != nil {
			return fmt.Errorf("attachment %d: invalid base64 content: %w", i, err)
		}
	}

	return nil
}

// Build assembles the raw RFC 2822 byte string with CRLF separators.
// Header order is fixed: To, Subject, Cc, Bcc, MIME-Version, then the
// content headers.
func Build(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var b strings.Builder

	b.WriteString("To: " + m.To + crlf)
	b.WriteString("Subject: " + m.Subject + crlf)
	if m.CC != "" {
		b.WriteString("Cc: " + m.CC + crlf)
	}
	if m.BCC != "" {
		b.WriteString("Bcc: " + m.BCC + crlf)
	}
	b.WriteString("MIME-Version: 1.0" + crlf)

	if len(m.Attachments) == 0 {
		b.WriteString("Content-Type: text/plain; charset=utf-8" + crlf)
		b.WriteString(crlf)
		b.WriteString(m.Body)
		return []byte(b.String()), nil
	}

	boundary, err := newBoundary()
	if err != nil {
		return nil, err
	}

	b.WriteString(`Content-Type: multipart/mixed; boundary="` + boundary + `"` + crlf)
	b.WriteString(crlf)

	b.WriteString("--" + boundary + crlf)
	b.WriteString("Content-Type: text/plain; charset=utf-8" + crlf)
	b.WriteString(crlf)
	b.WriteString(m.Body + crlf)

	for _, att := range m.Attachments {
		payload, err := base64.StdEncoding.DecodeString(att.Content)
		if err != nil {
			return nil, fmt.Errorf("attachment %s: %w", att.Filename, err)
		}

		b.WriteString("--" + boundary + crlf)
		b.WriteString("Content-Type: " + att.ContentType + crlf)
		b.WriteString(`Content-Disposition: attachment; filename="` + att.Filename + `"` + crlf)
		b.WriteString("Content-Transfer-Encoding: base64" + crlf)
		b.WriteString(crlf)
		b.WriteString(wrap76(base64.StdEncoding.EncodeToString(payload)) + crlf)
	}

	b.WriteString("--" + boundary + "--")

	return []byte(b.String()), nil
}

// EncodeWeb converts a raw message to the provider's transport
// encoding: base64url without padding.
func EncodeWeb(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

// newBoundary returns a random boundary marker. The randomness makes a
// collision with part payloads negligible; payloads are not scanned.
func newBoundary() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("rand.Read failed: %w", err)
	}
	return fmt.Sprintf("mixed_%x", buf), nil
}

// wrap76 folds a base64 payload at the conventional 76 columns.
func wrap76(s string) string {
	var b strings.Builder
	for len(s) > 76 {
		b.WriteString(s[:76] + crlf)
		s = s[76:]
	}
	b.WriteString(s)
	return b.String()
}
