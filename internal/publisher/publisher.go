// Package publisher forwards milestone events to an MQTT broker.
package publisher

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/dialogskip/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Publisher sends encoded milestone payloads.
type Publisher interface {
	Publish(payload []byte) error
	Close() error
}

// Payload is the JSON body of one published milestone.
type Payload struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Presses   int    `json:"presses"`
	SinceMS   int64  `json:"since_ms"`
	Session   string `json:"session"`
	Timestamp string `json:"timestamp"`
}

// FormatPayload encodes ev for the given session.
func FormatPayload(session string, ev observability.Event) ([]byte, error) {
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return json.Marshal(Payload{
		Kind:      string(ev.Kind),
		Message:   ev.Message,
		Presses:   ev.Presses,
		SinceMS:   ev.Since.Milliseconds(),
		Session:   session,
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
	})
}

// Subscriber adapts a Publisher to the sink's subscriber hook. Publish errors
// are logged and never interrupt the sink.
type Subscriber struct {
	pub     Publisher
	session string
	logger  *zap.Logger
}

func NewSubscriber(pub Publisher, session string, logger *zap.Logger) *Subscriber {
	return &Subscriber{pub: pub, session: session, logger: logger.Named("publisher")}
}

func (s *Subscriber) Notify(ev observability.Event) {
	payload, err := FormatPayload(s.session, ev)
	if err != nil {
		s.logger.Warn("Failed to encode milestone.", zap.Error(err))
		return
	}
	if err := s.pub.Publish(payload); err != nil {
		s.logger.Warn("Failed to publish milestone.", zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
}
