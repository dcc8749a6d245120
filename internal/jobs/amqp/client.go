package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-balance/internal/jobs"
)

// Client publishes and consumes message jobs over RabbitMQ. It implements
// both jobs.Publisher and jobs.Consumer.
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string

	store    jobs.JobStore
	log      zerolog.Logger
	backoff  func(retry int) time.Duration
	observer func(job *jobs.ProcessMessageJob)

	publishMu sync.Mutex
	publish   func(ctx context.Context, body []byte) error

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// Option configures a Client.
type Option func(*Client)

// WithBackoff overrides the delay before a failed job is republished.
func WithBackoff(f func(retry int) time.Duration) Option {
	return func(c *Client) {
		c.backoff = f
	}
}

// WithObserver is called with every job that finished an attempt.
func WithObserver(f func(job *jobs.ProcessMessageJob)) Option {
	return func(c *Client) {
		c.observer = f
	}
}

// NewClient dials url and declares a durable direct exchange bound to a
// durable queue.
func NewClient(url, exchangeName, queueName string, store jobs.JobStore, log zerolog.Logger, opts ...Option) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		store:        store,
		log:          log,
		backoff:      jobs.Backoff,
	}
	c.publish = c.publishToChannel
	for _, opt := range opts {
		opt(c)
	}

	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return c, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishProcessMessage implements jobs.Publisher.
func (c *Client) PublishProcessMessage(ctx context.Context, job *jobs.ProcessMessageJob) error {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = jobs.DefaultMaxRetries
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	if c.store != nil {
		if err := c.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	if err := c.publish(ctx, body); err != nil {
		return err
	}

	c.log.Debug().
		Str("job_id", job.JobID).
		Str("exchange", c.exchangeName).
		Str("queue", c.queueName).
		Msg("Published message job")
	return nil
}

func (c *Client) publishToChannel(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Start implements jobs.Consumer. Deliveries are handled one at a time in a
// background goroutine until ctx is cancelled or Stop is called.
func (c *Client) Start(ctx context.Context, handler jobs.JobHandler) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.log.Info().Str("queue", c.queueName).Msg("Started consuming message jobs")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.log.Info().Err(ctx.Err()).Msg("Stopping message consumption")
				return
			case delivery, ok := <-msgs:
				if !ok {
					c.log.Warn().Msg("Message channel closed")
					return
				}
				c.handleDelivery(ctx, delivery.Body, delivery, handler)
			}
		}
	}()
	return nil
}

// acknowledger is the subset of amqp091.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *Client) handleDelivery(ctx context.Context, body []byte, d acknowledger, handler jobs.JobHandler) {
	var job jobs.ProcessMessageJob
	if err := json.Unmarshal(body, &job); err != nil || job.JobID == "" {
		c.log.Error().Err(err).Msg("Failed to unmarshal message job")
		_ = d.Nack(false, false) // reject and don't requeue
		return
	}

	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	c.save(ctx, &job)

	err := handler(ctx, &job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	switch {
	case err == nil:
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		c.save(ctx, &job)
		c.observe(&job)
		_ = d.Ack(false)

	case jobs.IsPermanent(err) || job.RetryCount >= job.MaxRetries:
		job.Status = jobs.JobStatusFailed
		job.Error = err.Error()
		c.save(ctx, &job)
		c.observe(&job)
		c.log.Error().Err(err).Str("job_id", job.JobID).Int("retry_count", job.RetryCount).Msg("Message job failed")
		_ = d.Nack(false, false)

	default:
		job.Error = err.Error()
		job.RetryCount++
		job.Status = jobs.JobStatusRetrying
		c.save(ctx, &job)
		c.observe(&job)
		c.scheduleRetry(ctx, job, d)
	}
}

// scheduleRetry republishes the job after the backoff and only then acks the
// original delivery, so a failed republish leaves the message on the queue.
func (c *Client) scheduleRetry(ctx context.Context, job jobs.ProcessMessageJob, d acknowledger) {
	job.Status = jobs.JobStatusPending
	job.StartedAt = nil
	job.CompletedAt = nil

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		select {
		case <-time.After(c.backoff(job.RetryCount)):
		case <-ctx.Done():
			_ = d.Nack(false, true)
			return
		}

		body, err := json.Marshal(&job)
		if err == nil {
			err = c.publish(ctx, body)
		}
		if err != nil {
			c.log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to republish message job")
			_ = d.Nack(false, true) // reject and requeue
			return
		}
		_ = d.Ack(false)
	}()
}

func (c *Client) save(ctx context.Context, job *jobs.ProcessMessageJob) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveJob(ctx, job); err != nil {
		c.log.Warn().Err(err).Str("job_id", job.JobID).Msg("Failed to save job state")
	}
}

func (c *Client) observe(job *jobs.ProcessMessageJob) {
	if c.observer != nil {
		c.observer(job)
	}
}

// Stop implements jobs.Consumer.
func (c *Client) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements jobs.Publisher.
func (c *Client) Close() error {
	_ = c.Stop(context.Background())
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

var _ jobs.Publisher = (*Client)(nil)
var _ jobs.Consumer = (*Client)(nil)
