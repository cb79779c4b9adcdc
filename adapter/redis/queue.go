package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/RichardKnop/pdfrag"
)

// Queue is a reliable job queue on two redis lists. Dequeued jobs are moved
// atomically onto a processing list and stay there until acked or failed.
type Queue struct {
	client        *redis.Client
	key           string
	processingKey string
	blockTimeout  time.Duration
	logger        *zap.Logger
}

type QueueOption func(*Queue)

const (
	defaultQueueKey     = "pdfrag:jobs"
	defaultBlockTimeout = 5 * time.Second
)

func NewQueue(client *redis.Client, options ...QueueOption) *Queue {
	q := &Queue{
		client:       client,
		key:          defaultQueueKey,
		blockTimeout: defaultBlockTimeout,
		logger:       zap.NewNop(),
	}

	for _, o := range options {
		o(q)
	}

	q.processingKey = q.key + ":processing"

	q.logger.Sugar().With(
		"key", q.key,
		"processing key", q.processingKey,
	).Info("init redis queue")

	return q
}

func WithQueueKey(key string) QueueOption {
	return func(q *Queue) {
		q.key = key
	}
}

func WithBlockTimeout(timeout time.Duration) QueueOption {
	return func(q *Queue) {
		q.blockTimeout = timeout
	}
}

func WithQueueLogger(logger *zap.Logger) QueueOption {
	return func(q *Queue) {
		q.logger = logger
	}
}

type payload struct {
	ID       string `json:"id"`
	FileName string `json:"filename"`
	Source   string `json:"source"`
	Attempts int    `json:"attempts"`
}

func encodeJob(aJob *pdfrag.IngestJob) (string, error) {
	data, err := json.Marshal(payload{
		ID:       aJob.ID.String(),
		FileName: aJob.FileName,
		Source:   aJob.Location,
		Attempts: aJob.Attempts,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeJob(data string) (*pdfrag.IngestJob, error) {
	var p payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	id, err := uuid.FromString(p.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid job id: %w", err)
	}
	return &pdfrag.IngestJob{
		ID:       pdfrag.JobID{UUID: id},
		FileName: p.FileName,
		Location: p.Source,
		Attempts: p.Attempts,
		Receipt:  data,
	}, nil
}

func (q *Queue) Enqueue(ctx context.Context, aJob *pdfrag.IngestJob) error {
	data, err := encodeJob(aJob)
	if err != nil {
		return fmt.Errorf("error encoding job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("error pushing job: %w", err)
	}
	return nil
}

// Dequeue waits up to the block timeout for a job.
func (q *Queue) Dequeue(ctx context.Context) (*pdfrag.IngestJob, error) {
	data, err := q.client.BLMove(ctx, q.key, q.processingKey, "RIGHT", "LEFT", q.blockTimeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, pdfrag.ErrQueueEmpty
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("error moving job: %w", err)
	}

	aJob, err := decodeJob(data)
	if err != nil {
		// A payload that cannot be decoded would be redelivered forever.
		q.logger.Sugar().With("payload", data, "error", err).Error("dropping invalid job payload")
		if err := q.client.LRem(ctx, q.processingKey, 1, data).Err(); err != nil {
			return nil, fmt.Errorf("error removing invalid job: %w", err)
		}
		return nil, fmt.Errorf("error decoding job: %w", err)
	}

	return aJob, nil
}

func (q *Queue) Ack(ctx context.Context, aJob *pdfrag.IngestJob) error {
	if err := q.client.LRem(ctx, q.processingKey, 1, aJob.Receipt).Err(); err != nil {
		return fmt.Errorf("error removing job: %w", err)
	}
	return nil
}

// Fail removes the job from the processing list and, when requeue is set,
// pushes it back onto the queue in the same transaction.
func (q *Queue) Fail(ctx context.Context, aJob *pdfrag.IngestJob, requeue bool) error {
	var data string
	if requeue {
		var err error
		data, err = encodeJob(aJob)
		if err != nil {
			return fmt.Errorf("error encoding job: %w", err)
		}
	}

	if _, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.processingKey, 1, aJob.Receipt)
		if requeue {
			pipe.LPush(ctx, q.key, data)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("error releasing job: %w", err)
	}

	return nil
}

// Len returns the number of waiting and in flight jobs.
func (q *Queue) Len(ctx context.Context) (waiting, processing int64, err error) {
	pipe := q.client.Pipeline()
	waitingCmd := pipe.LLen(ctx, q.key)
	processingCmd := pipe.LLen(ctx, q.processingKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return waitingCmd.Val(), processingCmd.Val(), nil
}
