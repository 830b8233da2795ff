// Package totp generates and validates RFC 6238 enrollment secrets with pquerna/otp.
package totp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	period     = 30
	skew       = 1
	secretSize = 20
	qrSize     = 200
)

// Enrollment is a freshly generated secret and the payloads an authenticator app scans.
type Enrollment struct {
	Secret        string
	URL           string
	QRCodeDataURL string
}

// Generator creates TOTP secrets for one issuer.
type Generator struct {
	issuer string
	now    func() time.Time
}

// NewGenerator returns a Generator that labels secrets with issuer.
func NewGenerator(issuer string) *Generator {
	if strings.TrimSpace(issuer) == "" {
		issuer = "Mobitech CRM"
	}
	return &Generator{issuer: issuer, now: func() time.Time { return time.Now().UTC() }}
}

// Generate creates a new secret for account and renders its otpauth URL as a PNG data URL.
func (g *Generator) Generate(account string) (*Enrollment, error) {
	if strings.TrimSpace(account) == "" {
		return nil, fmt.Errorf("totp: account name cannot be empty")
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      g.issuer,
		AccountName: account,
		Period:      period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		SecretSize:  secretSize,
	})
	if err != nil {
		return nil, fmt.Errorf("totp: generate key: %w", err)
	}
	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return nil, fmt.Errorf("totp: render qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("totp: encode qr code: %w", err)
	}
	return &Enrollment{
		Secret:        key.Secret(),
		URL:           key.URL(),
		QRCodeDataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// Validate reports whether code matches secret in the current 30 second step or one step either side.
func (g *Generator) Validate(code, secret string) bool {
	if code == "" || secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, g.now(), validateOpts())
	return err == nil && ok
}

func validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}
