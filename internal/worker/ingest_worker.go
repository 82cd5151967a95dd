package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"docassist/internal/model"
	"docassist/internal/platform/rabbitmq"
)

type JobProcessor interface {
	Process(ctx context.Context, job model.IngestJob) error
}

// IngestWorker consumes ingest jobs one at a time.
type IngestWorker struct {
	conn      *amqp.Connection
	processor JobProcessor
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestWorker(conn *amqp.Connection, processor JobProcessor, queueName string, logger *slog.Logger) *IngestWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestWorker{
		conn:      conn,
		processor: processor,
		queueName: queueName,
		logger:    logger.With("component", "ingest_worker"),
	}
}

func (w *IngestWorker) Start(ctx context.Context) error {
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
	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	// uploads are slow; hold one unacked job at a time
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
					w.logger.Warn("delivery channel closed")
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.logger.Info("ingest worker started", "queue", w.queueName)
	return nil
}

// handle decodes and processes one delivery body. Failed jobs are not
// requeued: their files may already be uploaded and the job status carries
// the error.
func (w *IngestWorker) handle(ctx context.Context, body []byte) error {
	var job model.IngestJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.logger.Error("decode ingest job failed", "err", err)
		return err
	}
	if err := w.processor.Process(ctx, job); err != nil {
		w.logger.Warn("process ingest job failed", "job_id", job.ID, "err", err)
		return err
	}
	return nil
}

func (w *IngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
