package broker

import (
	"context"
	"time"

	auth "github.com/hungerlink/go-auth"
	"github.com/hungerlink/go-auth/activitymap"
)

// Sink publishes account activity. The routing key is the event type,
// e.g. auth.login.failure.
type Sink struct {
	publisher Publisher
	timeout   time.Duration
	opts      []activitymap.Option
}

var _ auth.ActivitySink = (*Sink)(nil)

func NewSink(publisher Publisher, opts ...activitymap.Option) *Sink {
	if publisher == nil {
		publisher = LogPublisher{}
	}
	return &Sink{publisher: publisher, timeout: 2 * time.Second, opts: opts}
}

func (s *Sink) WithTimeout(timeout time.Duration) *Sink {
	if timeout > 0 {
		s.timeout = timeout
	}
	return s
}

func (s *Sink) Record(ctx context.Context, event auth.ActivityEvent) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	return s.publisher.Publish(ctx, string(event.EventType), activitymap.Normalize(event, s.opts...))
}
