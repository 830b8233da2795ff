// Package messaging delivers OTP codes over SMS and WhatsApp.
package messaging

import (
	"context"
	"strings"
)

// Medium is the channel a message was delivered on.
type Medium string

const (
	MediumSMS      Medium = "sms"
	MediumWhatsApp Medium = "whatsapp"
)

// CodePlaceholder is replaced by the OTP code in message templates.
const CodePlaceholder = "{otp}"

const defaultTemplate = "Your Mobitech CRM verification code is {otp}. It is valid for 5 minutes."

// Message is one outbound OTP message. Text is already rendered.
type Message struct {
	Phone string
	Code  string
	Text  string
}

// Sender delivers a message over one channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Render builds the message text for code. An empty template uses the default text; a template
// without the placeholder gets the code appended.
func Render(template, code string) string {
	template = strings.TrimSpace(template)
	if template == "" {
		template = defaultTemplate
	}
	if !strings.Contains(template, CodePlaceholder) {
		return template + " " + code
	}
	return strings.ReplaceAll(template, CodePlaceholder, code)
}
