package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"askfan-notify/internal/models"
)

// SQSSender is the slice of the SQS API the enqueuer uses.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Enqueuer hands delivery jobs to the outbound queue.
type Enqueuer struct {
	sqs      SQSSender
	queueURL string
}

func NewEnqueuer(sqsClient SQSSender, queueURL string) *Enqueuer {
	return &Enqueuer{sqs: sqsClient, queueURL: queueURL}
}

func (e *Enqueuer) Enqueue(ctx context.Context, job models.DeliveryJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode delivery job: %w", err)
	}
	_, err = e.sqs.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(e.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("enqueue delivery job: %w", err)
	}
	return nil
}
