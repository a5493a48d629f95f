package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"bodymind-ai/internal/knowledge"
)

// IngestJob is one deferred ingestion request on the retry queue.
type IngestJob struct {
	Request    knowledge.IngestRequest `json:"request"`
	Attempt    int                     `json:"attempt"`
	EnqueuedAt time.Time               `json:"enqueued_at"`
}

func (j IngestJob) Validate() error {
	if strings.TrimSpace(j.Request.Text) == "" {
		return errors.New("ingest job has no text")
	}
	if j.Attempt < 0 {
		return fmt.Errorf("ingest job has negative attempt %d", j.Attempt)
	}
	return nil
}

func DecodeIngestJob(body []byte) (IngestJob, error) {
	var job IngestJob
	if err := json.Unmarshal(body, &job); err != nil {
		return IngestJob{}, fmt.Errorf("decode ingest job failed: %w", err)
	}
	if err := job.Validate(); err != nil {
		return IngestJob{}, err
	}
	return job, nil
}

type IngestPublisher struct {
	conn      *amqp.Connection
	queueName string
	now       func() time.Time
}

func NewIngestPublisher(conn *amqp.Connection, queueName string) *IngestPublisher {
	return &IngestPublisher{
		conn:      conn,
		queueName: queueName,
		now:       time.Now,
	}
}

// Defer queues a first attempt of req.
func (p *IngestPublisher) Defer(ctx context.Context, req knowledge.IngestRequest) error {
	return p.Publish(ctx, IngestJob{Request: req})
}

func (p *IngestPublisher) Publish(ctx context.Context, job IngestJob) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := declareQueue(ch, p.queueName); err != nil {
		return err
	}

	job.EnqueuedAt = p.now()
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal ingest job failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			Timestamp:    job.EnqueuedAt,
		},
	); err != nil {
		return fmt.Errorf("publish ingest job failed: %w", err)
	}
	return nil
}
