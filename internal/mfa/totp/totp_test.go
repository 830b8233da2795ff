package totp

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	g := NewGenerator("Mobitech CRM")
	e, err := g.Generate("agent@example.com")
	require.NoError(t, err)

	assert.Len(t, e.Secret, 32, "20 byte secrets encode to 32 base32 characters")
	assert.True(t, strings.HasPrefix(e.URL, "otpauth://totp/"))
	assert.Contains(t, e.URL, "agent@example.com")
	assert.Contains(t, e.URL, "issuer=Mobitech+CRM")

	const prefix = "data:image/png;base64,"
	require.True(t, strings.HasPrefix(e.QRCodeDataURL, prefix))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(e.QRCodeDataURL, prefix))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
}

func TestGenerate_FreshSecretEachTime(t *testing.T) {
	g := NewGenerator("")
	a, err := g.Generate("a@example.com")
	require.NoError(t, err)
	b, err := g.Generate("a@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, a.Secret, b.Secret)
}

func TestGenerate_EmptyAccount(t *testing.T) {
	_, err := NewGenerator("x").Generate("  ")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewGenerator("Mobitech CRM")
	g.now = func() time.Time { return now }

	e, err := g.Generate("agent@example.com")
	require.NoError(t, err)

	code, err := totp.GenerateCodeCustom(e.Secret, now, validateOpts())
	require.NoError(t, err)
	assert.True(t, g.Validate(code, e.Secret))

	prev, err := totp.GenerateCodeCustom(e.Secret, now.Add(-30*time.Second), validateOpts())
	require.NoError(t, err)
	assert.True(t, g.Validate(prev, e.Secret), "one step of drift is tolerated")

	stale, err := totp.GenerateCodeCustom(e.Secret, now.Add(-5*time.Minute), validateOpts())
	require.NoError(t, err)
	if stale != code && stale != prev {
		assert.False(t, g.Validate(stale, e.Secret))
	}
}

func TestValidate_OtherSecretFails(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewGenerator("Mobitech CRM")
	g.now = func() time.Time { return now }

	mine, err := g.Generate("a@example.com")
	require.NoError(t, err)
	other, err := g.Generate("b@example.com")
	require.NoError(t, err)

	code, err := totp.GenerateCodeCustom(other.Secret, now, validateOpts())
	require.NoError(t, err)
	assert.False(t, g.Validate(code, mine.Secret))
	assert.False(t, g.Validate("", mine.Secret))
	assert.False(t, g.Validate(code, ""))
}
