package broker

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	auth "github.com/hungerlink/go-auth"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchange receives every activity event
const DefaultExchange = "hungerlink.activity"

// Publisher sends JSON messages to a topic exchange
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
	Close() error
}

// AMQPPublisher publishes to a durable topic exchange over one channel
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   auth.Logger
}

var _ Publisher = (*AMQPPublisher)(nil)

// NewAMQPPublisher dials url and declares exchange
func NewAMQPPublisher(rawURL, exchange string) (*AMQPPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(rawURL)
	if err != nil {
		return nil, err
	}

	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	p := &AMQPPublisher{conn: conn, exchange: exchange, logger: auth.DefaultLogger()}
	if err := p.openChannel(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return p, nil
}

func (p *AMQPPublisher) WithLogger(logger auth.Logger) *AMQPPublisher {
	if logger != nil {
		p.logger = logger
	}
	return p
}

func (p *AMQPPublisher) openChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return err
	}

	p.channel = ch
	return nil
}

// Publish marshals body as JSON. A failed publish reopens the channel and
// retries once.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         payload,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
	if err == nil {
		return nil
	}

	p.logger.Warn("publish failed, reopening channel", "exchange", p.exchange, "routing_key", routingKey, "error", err)

	if reopenErr := p.openChannel(); reopenErr != nil {
		return errors.Join(err, reopenErr)
	}

	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// LogPublisher only logs. Used when no broker is configured.
type LogPublisher struct {
	Logger auth.Logger
}

func (p LogPublisher) Publish(_ context.Context, routingKey string, body any) error {
	logger := p.Logger
	if logger == nil {
		logger = auth.DefaultLogger()
	}
	logger.Debug("activity event", "routing_key", routingKey, "body", body)
	return nil
}

func (LogPublisher) Close() error { return nil }

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}
