package queue

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	apperrors "askfan-notify/internal/common/errors"
	"askfan-notify/internal/common/logger"
	"askfan-notify/internal/models"
)

// SQSService is the slice of the SQS API the consumer uses.
type SQSService interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// JobProcessor relays one job and reports its final status.
type JobProcessor interface {
	Process(ctx context.Context, job models.DeliveryJob) (string, error)
}

// ConsumerConfig holds the long-poll settings.
type ConsumerConfig struct {
	QueueURL        string
	BatchSize       int
	WaitTimeSeconds int
}

// Consumer long-polls the delivery queue in batches. A message is deleted
// once its job reached a final state: relayed, skipped, or failed for a
// reason a retry cannot fix. Retryable failures leave the message in place so
// the queue redelivers it after the visibility timeout.
type Consumer struct {
	config    ConsumerConfig
	sqs       SQSService
	processor JobProcessor
	logger    logger.Logger
}

func NewConsumer(config ConsumerConfig, sqsClient SQSService, processor JobProcessor, log logger.Logger) *Consumer {
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	return &Consumer{
		config:    config,
		sqs:       sqsClient,
		processor: processor,
		logger:    log.WithFields(map[string]interface{}{"component": "queue-consumer"}),
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("queue consumer started", map[string]interface{}{
		"queueUrl":  c.config.QueueURL,
		"batchSize": c.config.BatchSize,
	})

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("queue consumer stopping", nil)
			return ctx.Err()
		default:
		}

		resp, err := c.sqs.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.config.QueueURL),
			MaxNumberOfMessages: int32(c.config.BatchSize),
			WaitTimeSeconds:     int32(c.config.WaitTimeSeconds),
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("queue receive failed", map[string]interface{}{"error": err})
			continue
		}

		for _, msg := range resp.Messages {
			c.handleMessage(ctx, msg)
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg sqstypes.Message) {
	var job models.DeliveryJob
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &job); err != nil {
		// Malformed payloads can never succeed; drop them.
		c.logger.Error("malformed delivery job dropped", map[string]interface{}{"error": err})
		c.deleteMessage(ctx, msg)
		return
	}

	status, err := c.processor.Process(ctx, job)
	if err != nil {
		if apperrors.IsRetryable(err) {
			c.logger.Warn("delivery failed, leaving for retry", map[string]interface{}{
				"jobId":   job.JobID,
				"channel": job.Channel,
				"error":   err,
			})
			return
		}
		c.logger.Error("delivery failed permanently", map[string]interface{}{
			"jobId":   job.JobID,
			"channel": job.Channel,
			"error":   err,
		})
		c.deleteMessage(ctx, msg)
		return
	}

	c.logger.Debug("delivery job finished", map[string]interface{}{
		"jobId":  job.JobID,
		"status": status,
	})
	c.deleteMessage(ctx, msg)
}

func (c *Consumer) deleteMessage(ctx context.Context, msg sqstypes.Message) {
	_, err := c.sqs.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.config.QueueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		c.logger.Error("failed to delete queue message", map[string]interface{}{"error": err})
	}
}
