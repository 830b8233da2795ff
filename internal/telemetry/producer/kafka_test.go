package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobitech-crm/backend/internal/telemetry"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewKafkaProducer_DisabledWithoutBrokers(t *testing.T) {
	assert.Nil(t, NewKafkaProducer(nil, "topic"))
	assert.Nil(t, NewKafkaProducer([]string{"localhost:9092"}, ""))

	var p *KafkaProducer
	assert.NoError(t, p.Emit(context.Background(), telemetry.NewEvent("x", "y", "", "", nil)))
	assert.NoError(t, p.Close())
}

func TestKafkaProducer_Emit(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, topic: "events"}

	event := telemetry.NewEvent(telemetry.EventSignInSuccess, "identity", "u1", "s1", map[string]string{"ip": "10.0.0.1"})
	require.NoError(t, p.Emit(context.Background(), event))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("u1"), w.msgs[0].Key)
	var got telemetry.Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, telemetry.EventSignInSuccess, got.EventType)
	assert.Equal(t, "s1", got.SessionID)
	assert.JSONEq(t, `{"ip":"10.0.0.1"}`, string(got.Metadata))
}

func TestKafkaProducer_EmitError(t *testing.T) {
	p := &KafkaProducer{writer: &fakeWriter{err: errors.New("broker unavailable")}}
	assert.Error(t, p.Emit(context.Background(), telemetry.NewEvent("x", "y", "", "", nil)))
}

func TestKafkaProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w}
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
