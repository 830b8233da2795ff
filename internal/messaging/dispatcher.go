package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrNoChannel is returned when no sender is configured for a delivery.
var ErrNoChannel = errors.New("messaging: no delivery channel configured")

var (
	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_deliveries_total",
			Help: "OTP message deliveries by medium and result",
		},
		[]string{"medium", "result"},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "messaging_circuit_breaker_state",
			Help: "Current state of the messaging circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"medium"},
	)
)

// BreakerConfig controls when a channel stops being called after repeated failures.
// An open breaker fails fast; it never retries.
type BreakerConfig struct {
	Timeout      time.Duration
	Interval     time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerConfig trips after half of at least five calls fail, and probes again after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Timeout:      30 * time.Second,
		Interval:     60 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.5,
	}
}

type channel struct {
	medium  Medium
	sender  Sender
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// Dispatcher routes OTP messages to SMS, or to WhatsApp with SMS as fallback.
type Dispatcher struct {
	sms      *channel
	whatsapp *channel
	log      *zap.Logger
}

// NewDispatcher wraps each non-nil sender in its own circuit breaker. whatsapp may be nil.
func NewDispatcher(sms, whatsapp Sender, cfg BreakerConfig, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{log: log}
	if sms != nil {
		d.sms = newChannel(MediumSMS, sms, cfg, log)
	}
	if whatsapp != nil {
		d.whatsapp = newChannel(MediumWhatsApp, whatsapp, cfg, log)
	}
	return d
}

func newChannel(medium Medium, sender Sender, cfg BreakerConfig, log *zap.Logger) *channel {
	settings := gobreaker.Settings{
		Name:        string(medium),
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("messaging breaker state change",
				zap.String("medium", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
	}
	breakerState.WithLabelValues(string(medium)).Set(0)
	return &channel{medium: medium, sender: sender, breaker: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// SendSMS delivers msg over SMS.
func (d *Dispatcher) SendSMS(ctx context.Context, msg Message) error {
	if d.sms == nil {
		return ErrNoChannel
	}
	return d.send(ctx, d.sms, msg)
}

// SendPreferWhatsApp tries WhatsApp first and falls back to SMS when WhatsApp is unavailable or fails.
// It returns the medium that accepted the message.
func (d *Dispatcher) SendPreferWhatsApp(ctx context.Context, msg Message) (Medium, error) {
	if d.whatsapp != nil {
		err := d.send(ctx, d.whatsapp, msg)
		if err == nil {
			return MediumWhatsApp, nil
		}
		d.log.Warn("whatsapp delivery failed, falling back to sms", zap.Error(err))
	}
	if d.sms == nil {
		return "", ErrNoChannel
	}
	if err := d.send(ctx, d.sms, msg); err != nil {
		return "", err
	}
	return MediumSMS, nil
}

func (d *Dispatcher) send(ctx context.Context, ch *channel, msg Message) error {
	_, err := ch.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, ch.sender.Send(ctx, msg)
	})
	if err != nil {
		deliveriesTotal.WithLabelValues(string(ch.medium), "failure").Inc()
		return fmt.Errorf("%s delivery: %w", ch.medium, err)
	}
	deliveriesTotal.WithLabelValues(string(ch.medium), "success").Inc()
	return nil
}
