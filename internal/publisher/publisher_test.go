package publisher

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/dialogskip/internal/config"
	"github.com/xkilldash9x/dialogskip/internal/observability"
)

func TestFormatPayload(t *testing.T) {
	ev := observability.Event{
		Time:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Kind:    observability.EventDialogueEnd,
		Message: "Dialogue ended",
		Presses: 14,
		Since:   2500 * time.Millisecond,
	}

	raw, err := FormatPayload("sess-1", ev)
	require.NoError(t, err)

	var got Payload
	require.NoError(t, json.Unmarshal(raw, &got))
	want := Payload{
		Kind:      "dialogue_end",
		Message:   "Dialogue ended",
		Presses:   14,
		SinceMS:   2500,
		Session:   "sess-1",
		Timestamp: "2026-03-01T12:00:00Z",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, string(raw), `"since_ms":2500`)
}

func TestFormatPayload_StampsMissingTime(t *testing.T) {
	raw, err := FormatPayload("s", observability.Event{Kind: observability.EventRun})
	require.NoError(t, err)

	var got Payload
	require.NoError(t, json.Unmarshal(raw, &got))
	ts, err := time.Parse(time.RFC3339Nano, got.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}

func TestSubscriber_Notify(t *testing.T) {
	fake := NewFake()
	sub := NewSubscriber(fake, "abc", zaptest.NewLogger(t))

	sub.Notify(observability.Event{Kind: observability.EventBreak, Message: "Taking a short break", Presses: 3})

	payloads := fake.Payloads()
	require.Len(t, payloads, 1)
	var got Payload
	require.NoError(t, json.Unmarshal(payloads[0], &got))
	assert.Equal(t, "break", got.Kind)
	assert.Equal(t, "abc", got.Session)
	assert.Equal(t, 3, got.Presses)
}

func TestSubscriber_PublishErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	fake := NewFake()
	fake.PublishError = errors.New("broker down")
	sub := NewSubscriber(fake, "abc", zap.New(core))

	sub.Notify(observability.Event{Kind: observability.EventExit, Message: "EXIT"})

	require.Equal(t, 1, logs.FilterMessage("Failed to publish milestone.").Len())
	assert.Empty(t, fake.Payloads())
}

func TestSubscriber_ThroughAsyncSink(t *testing.T) {
	defer goleak.VerifyNone(t)

	fake := NewFake()
	sink := observability.NewAsyncSink(zap.NewNop(), 16)
	sink.Subscribe(NewSubscriber(fake, "abc", zap.NewNop()))

	sink.Log(observability.Event{Level: zap.InfoLevel, Kind: observability.EventRun, Message: "RUN"})
	sink.Log(observability.Event{Level: zap.InfoLevel, Message: "not a milestone"})
	sink.Close()

	require.Len(t, fake.Payloads(), 1)
	require.NoError(t, fake.Close())
	assert.True(t, fake.Closed())
}

func TestNewMQTT_UnreachableBrokerStopsRetrying(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := config.NewDefaultConfig().Publisher
	cfg.Broker = "tcp://127.0.0.1:1"
	cfg.ConnectTimeout = 300 * time.Millisecond
	cfg.RetryInterval = 50 * time.Millisecond

	m, err := NewMQTT(cfg)
	require.Error(t, err)
	assert.Nil(t, m)
	assert.Contains(t, err.Error(), "tcp://127.0.0.1:1")
}
