package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "askfan-notify/internal/common/errors"
	"askfan-notify/internal/common/logger"
	"askfan-notify/internal/models"
)

type mockSQS struct {
	receiveFunc func(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	deleted     []string
}

func (m *mockSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if m.receiveFunc != nil {
		return m.receiveFunc(ctx, params, optFns...)
	}
	return &sqs.ReceiveMessageOutput{}, nil
}

func (m *mockSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	m.deleted = append(m.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type mockProcessor struct {
	status string
	err    error
	jobs   []models.DeliveryJob
}

func (m *mockProcessor) Process(ctx context.Context, job models.DeliveryJob) (string, error) {
	m.jobs = append(m.jobs, job)
	return m.status, m.err
}

func jobMessage(t *testing.T, receipt string) sqstypes.Message {
	t.Helper()
	body, err := json.Marshal(emailJob(models.PriorityNormal))
	require.NoError(t, err)
	return sqstypes.Message{
		Body:          aws.String(string(body)),
		ReceiptHandle: aws.String(receipt),
	}
}

func newTestConsumer(t *testing.T, sqsClient *mockSQS, processor *mockProcessor) *Consumer {
	t.Helper()
	cfg := ConsumerConfig{QueueURL: "https://sqs.test/queue", BatchSize: 10, WaitTimeSeconds: 1}
	return NewConsumer(cfg, sqsClient, processor, logger.NewTestLogger(t))
}

func TestConsumer_ProcessedMessageDeleted(t *testing.T) {
	sqsClient := &mockSQS{}
	processor := &mockProcessor{status: models.DeliveryStatusSent}
	c := newTestConsumer(t, sqsClient, processor)

	c.handleMessage(context.Background(), jobMessage(t, "rh-1"))

	require.Len(t, processor.jobs, 1)
	assert.Equal(t, "job-1", processor.jobs[0].JobID)
	assert.Equal(t, []string{"rh-1"}, sqsClient.deleted)
}

func TestConsumer_RetryableFailureLeavesMessage(t *testing.T) {
	sqsClient := &mockSQS{}
	processor := &mockProcessor{
		status: models.DeliveryStatusFailed,
		err:    apperrors.NewEmailSendFailedError(assert.AnError),
	}
	c := newTestConsumer(t, sqsClient, processor)

	c.handleMessage(context.Background(), jobMessage(t, "rh-1"))

	assert.Empty(t, sqsClient.deleted, "retryable failures stay queued")
}

func TestConsumer_PermanentFailureDeletesMessage(t *testing.T) {
	sqsClient := &mockSQS{}
	processor := &mockProcessor{
		status: models.DeliveryStatusFailed,
		err:    apperrors.NewInvalidPayloadError("bad job"),
	}
	c := newTestConsumer(t, sqsClient, processor)

	c.handleMessage(context.Background(), jobMessage(t, "rh-1"))

	assert.Equal(t, []string{"rh-1"}, sqsClient.deleted)
}

func TestConsumer_MalformedMessageDropped(t *testing.T) {
	sqsClient := &mockSQS{}
	processor := &mockProcessor{}
	c := newTestConsumer(t, sqsClient, processor)

	c.handleMessage(context.Background(), sqstypes.Message{
		Body:          aws.String("not json"),
		ReceiptHandle: aws.String("rh-1"),
	})

	assert.Empty(t, processor.jobs)
	assert.Equal(t, []string{"rh-1"}, sqsClient.deleted)
}

func TestConsumer_RunStopsOnCancel(t *testing.T) {
	received := make(chan struct{}, 1)
	sqsClient := &mockSQS{
		receiveFunc: func(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
			select {
			case received <- struct{}{}:
			default:
			}
			return &sqs.ReceiveMessageOutput{}, nil
		},
	}
	c := newTestConsumer(t, sqsClient, &mockProcessor{status: models.DeliveryStatusSent})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	<-received
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}
