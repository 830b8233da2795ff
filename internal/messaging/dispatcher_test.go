package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	err   error
	calls int
}

func (f *fakeSender) Send(_ context.Context, _ Message) error {
	f.calls++
	return f.err
}

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{Timeout: time.Minute, Interval: time.Minute, MinRequests: 2, FailureRatio: 1}
}

var testMsg = Message{Phone: "9876543210", Code: "482913", Text: "code 482913"}

func TestDispatcher_SendSMS(t *testing.T) {
	sms := &fakeSender{}
	d := NewDispatcher(sms, nil, testBreakerConfig(), nil)

	require.NoError(t, d.SendSMS(context.Background(), testMsg))
	assert.Equal(t, 1, sms.calls)
}

func TestDispatcher_SendSMSWithoutChannel(t *testing.T) {
	d := NewDispatcher(nil, nil, testBreakerConfig(), nil)
	assert.ErrorIs(t, d.SendSMS(context.Background(), testMsg), ErrNoChannel)
}

func TestDispatcher_PreferWhatsApp(t *testing.T) {
	sms, wa := &fakeSender{}, &fakeSender{}
	d := NewDispatcher(sms, wa, testBreakerConfig(), nil)

	medium, err := d.SendPreferWhatsApp(context.Background(), testMsg)
	require.NoError(t, err)
	assert.Equal(t, MediumWhatsApp, medium)
	assert.Equal(t, 1, wa.calls)
	assert.Equal(t, 0, sms.calls)
}

func TestDispatcher_FallsBackToSMS(t *testing.T) {
	sms, wa := &fakeSender{}, &fakeSender{err: errors.New("template rejected")}
	d := NewDispatcher(sms, wa, testBreakerConfig(), nil)

	medium, err := d.SendPreferWhatsApp(context.Background(), testMsg)
	require.NoError(t, err)
	assert.Equal(t, MediumSMS, medium)
	assert.Equal(t, 1, wa.calls)
	assert.Equal(t, 1, sms.calls)
}

func TestDispatcher_NoWhatsAppUsesSMS(t *testing.T) {
	sms := &fakeSender{}
	d := NewDispatcher(sms, nil, testBreakerConfig(), nil)

	medium, err := d.SendPreferWhatsApp(context.Background(), testMsg)
	require.NoError(t, err)
	assert.Equal(t, MediumSMS, medium)
}

func TestDispatcher_BothChannelsFail(t *testing.T) {
	sms, wa := &fakeSender{err: errors.New("sms down")}, &fakeSender{err: errors.New("wa down")}
	d := NewDispatcher(sms, wa, testBreakerConfig(), nil)

	_, err := d.SendPreferWhatsApp(context.Background(), testMsg)
	assert.Error(t, err)
	assert.Equal(t, 1, wa.calls, "no retries")
	assert.Equal(t, 1, sms.calls, "no retries")
}

func TestDispatcher_OpenBreakerFailsFast(t *testing.T) {
	sms := &fakeSender{err: errors.New("gateway down")}
	d := NewDispatcher(sms, nil, testBreakerConfig(), nil)

	for i := 0; i < 2; i++ {
		require.Error(t, d.SendSMS(context.Background(), testMsg))
	}
	err := d.SendSMS(context.Background(), testMsg)
	require.Error(t, err)
	assert.Equal(t, 2, sms.calls, "open breaker must not call the gateway")
}
