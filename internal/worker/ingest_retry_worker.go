package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"bodymind-ai/internal/ai"
	"bodymind-ai/internal/app"
	"bodymind-ai/internal/knowledge"
	"bodymind-ai/internal/platform/rabbitmq"
)

type Reingester interface {
	Reingest(ctx context.Context, req knowledge.IngestRequest) (*app.IngestResult, error)
}

type JobPublisher interface {
	Publish(ctx context.Context, job rabbitmq.IngestJob) error
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeDrop
	outcomeRequeue
)

// IngestRetryWorker consumes deferred ingest jobs. A job that fails because
// a provider is still down is republished with its attempt count bumped
// after retryDelay; anything else is dropped.
type IngestRetryWorker struct {
	conn        *amqp.Connection
	ingester    Reingester
	publisher   JobPublisher
	queueName   string
	retryDelay  time.Duration
	maxAttempts int
	logger      *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestRetryWorker(
	conn *amqp.Connection,
	ingester Reingester,
	publisher JobPublisher,
	queueName string,
	retryDelay time.Duration,
	maxAttempts int,
	logger *slog.Logger,
) *IngestRetryWorker {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestRetryWorker{
		conn:        conn,
		ingester:    ingester,
		publisher:   publisher,
		queueName:   queueName,
		retryDelay:  retryDelay,
		maxAttempts: maxAttempts,
		logger:      logger.With("worker", "ingest_retry", "queue", queueName),
	}
}

func (w *IngestRetryWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	// one job at a time; a retry sleeps on the delivery it holds
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				switch w.handle(workerCtx, d.Body) {
				case outcomeAck:
					_ = d.Ack(false)
				case outcomeRequeue:
					_ = d.Nack(false, true)
				default:
					_ = d.Nack(false, false)
				}
			}
		}
	}()

	w.logger.Info("ingest retry worker started")
	return nil
}

func (w *IngestRetryWorker) handle(ctx context.Context, body []byte) outcome {
	job, err := rabbitmq.DecodeIngestJob(body)
	if err != nil {
		w.logger.Warn("dropping malformed ingest job", "error", err)
		return outcomeDrop
	}

	result, err := w.ingester.Reingest(ctx, job.Request)
	if err == nil {
		w.logger.Info("deferred document ingested",
			"title", result.Title, "chunks", result.ChunksAdded, "attempt", job.Attempt+1)
		return outcomeAck
	}

	if !retryable(err) {
		w.logger.Warn("dropping ingest job", "title", job.Request.Title, "error", err)
		return outcomeDrop
	}
	if job.Attempt+1 >= w.maxAttempts {
		w.logger.Error("ingest job exhausted its attempts",
			"title", job.Request.Title, "attempts", job.Attempt+1, "error", err)
		return outcomeDrop
	}

	select {
	case <-ctx.Done():
		return outcomeRequeue
	case <-time.After(w.retryDelay):
	}

	job.Attempt++
	if err := w.publisher.Publish(ctx, job); err != nil {
		w.logger.Error("republish ingest job failed", "title", job.Request.Title, "error", err)
		return outcomeRequeue
	}
	w.logger.Info("ingest job rescheduled", "title", job.Request.Title, "attempt", job.Attempt+1)
	return outcomeAck
}

func retryable(err error) bool {
	return errors.Is(err, ai.ErrEmbeddingUnavailable) || errors.Is(err, knowledge.ErrIndexUnavailable)
}

func (w *IngestRetryWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
