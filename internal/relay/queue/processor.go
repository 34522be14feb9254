package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	apperrors "askfan-notify/internal/common/errors"
	"askfan-notify/internal/common/logger"
	"askfan-notify/internal/common/metrics"
	"askfan-notify/internal/models"
)

// SESService is the slice of the SES API the processor uses.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SNSService is the slice of the SNS API the processor uses.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// ProcessorConfig controls which channels fire and their sender identities.
type ProcessorConfig struct {
	EmailEnabled       bool
	FromEmail          string
	SMSEnabled         bool
	DefaultSMSSenderID string
}

// Processor relays one delivery job to its channel. A job is skipped rather
// than failed when the recipient has no usable contact for the channel, the
// channel is disabled, or an SMS job is below high priority.
type Processor struct {
	config ProcessorConfig
	db     *sql.DB
	ses    SESService
	sns    SNSService
	logger logger.Logger
}

func NewProcessor(config ProcessorConfig, db *sql.DB, sesClient SESService, snsClient SNSService, log logger.Logger) *Processor {
	return &Processor{
		config: config,
		db:     db,
		ses:    sesClient,
		sns:    snsClient,
		logger: log.WithFields(map[string]interface{}{"component": "queue-processor"}),
	}
}

// Process relays the job and returns its delivery status. A returned error
// that is retryable leaves the message on the queue for redelivery;
// everything else is final.
func (p *Processor) Process(ctx context.Context, job models.DeliveryJob) (string, error) {
	status, err := p.relay(ctx, job)
	metrics.QueueMessagesConsumed.WithLabelValues(job.Channel, status).Inc()
	return status, err
}

func (p *Processor) relay(ctx context.Context, job models.DeliveryJob) (string, error) {
	email, phone, err := p.recipientContact(ctx, job.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			p.logger.Warn("recipient not found", map[string]interface{}{
				"jobId":  job.JobID,
				"userId": job.UserID,
			})
			return models.DeliveryStatusSkipped, nil
		}
		return models.DeliveryStatusFailed, apperrors.NewDatabaseConnectionFailedError(err)
	}

	data := map[string]interface{}{
		"userId":     job.UserID,
		"sourceId":   job.SourceID,
		"sourceType": job.SourceType,
		"kind":       string(job.Kind),
		"priority":   job.Priority,
	}
	for k, v := range job.Metadata {
		data[k] = v
	}

	tmpl := templateFor(job.SourceType)
	subject := renderTemplate(tmpl["subject"], data)
	body := renderTemplate(tmpl["body"], data)

	switch job.Channel {
	case models.ChannelEmail:
		if !p.config.EmailEnabled || email == "" {
			return models.DeliveryStatusSkipped, nil
		}
		if err := p.sendEmail(ctx, email, subject, body); err != nil {
			return models.DeliveryStatusFailed, apperrors.NewEmailSendFailedError(err)
		}
	case models.ChannelSMS:
		// SMS is reserved for high priority jobs.
		if !p.config.SMSEnabled || phone == "" || job.Priority != models.PriorityHigh {
			return models.DeliveryStatusSkipped, nil
		}
		if err := p.sendSMS(ctx, phone, body); err != nil {
			return models.DeliveryStatusFailed, apperrors.NewSMSSendFailedError(err)
		}
	default:
		p.logger.Warn("unknown delivery channel", map[string]interface{}{
			"jobId":   job.JobID,
			"channel": job.Channel,
		})
		return models.DeliveryStatusSkipped, nil
	}

	p.logger.Info("delivery relayed", map[string]interface{}{
		"jobId":   job.JobID,
		"userId":  job.UserID,
		"channel": job.Channel,
	})
	return models.DeliveryStatusSent, nil
}

func (p *Processor) recipientContact(ctx context.Context, userID string) (string, string, error) {
	var email, phone string
	err := p.db.QueryRowContext(ctx,
		`SELECT email, phone FROM users WHERE id = $1`, userID).Scan(&email, &phone)
	if err != nil {
		return "", "", fmt.Errorf("recipient lookup: %w", err)
	}
	return email, phone, nil
}

func (p *Processor) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := p.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(p.config.FromEmail),
	})
	return err
}

func (p *Processor) sendSMS(ctx context.Context, to, message string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	}
	if p.config.DefaultSMSSenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(p.config.DefaultSMSSenderID),
			},
		}
	}
	_, err := p.sns.Publish(ctx, input)
	return err
}
