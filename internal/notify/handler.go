// Package notify delivers high-score alerts over SES email and SNS SMS.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"

	"housing-radar/internal/common/config"
	commonerrors "housing-radar/internal/common/errors"
	"housing-radar/internal/common/logger"
	"housing-radar/internal/models"
	"housing-radar/internal/scoring"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Service fans one alert out to every enabled channel.
type Service struct {
	cfg       config.NotificationConfig
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
}

func NewService(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Service{
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "notify"}),
		sesClient: ses.NewFromConfig(awsCfg),
		snsClient: sns.NewFromConfig(awsCfg),
	}, nil
}

// NewServiceWithClients wires explicit clients, used by tests.
func NewServiceWithClients(cfg config.NotificationConfig, sesClient SESService, snsClient SNSService, log logger.Logger) *Service {
	return &Service{
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "notify"}),
		sesClient: sesClient,
		snsClient: snsClient,
	}
}

// NotifyHighScore alerts subscribers that a notice priced well below market
// was found. Channel failures are independent; one failing channel does not
// stop the other.
func (s *Service) NotifyHighScore(ctx context.Context, n models.HousingNotice, r scoring.Result) error {
	alertID := uuid.New().String()
	subject := fmt.Sprintf("[주거 알림] %s", n.Title)
	body := fmt.Sprintf(
		"새 임대주택 공고가 시세보다 %.2f%% 저렴합니다 (점수 %.2f/5.0).\n\n%s\n%s\n\n게시일: %s",
		r.DiffPercent, r.Score, n.Title, n.Link, n.NoticeDate.Format(time.DateOnly),
	)

	emailSent := false
	smsSent := false

	if s.cfg.AWS.SES.Enabled && s.cfg.AWS.SES.ToEmail != "" {
		if err := s.sendEmail(ctx, s.cfg.AWS.SES.ToEmail, subject, body); err != nil {
			s.logger.WithError(err).Error("email send failed", map[string]interface{}{
				"alert_id":  alertID,
				"notice_id": n.ID,
			})
		} else {
			emailSent = true
		}
	}

	if s.cfg.AWS.SNS.Enabled && s.cfg.AWS.SNS.PhoneNumber != "" {
		if err := s.sendSMS(ctx, s.cfg.AWS.SNS.PhoneNumber, body); err != nil {
			s.logger.WithError(err).Error("SMS send failed", map[string]interface{}{
				"alert_id":  alertID,
				"notice_id": n.ID,
			})
		} else {
			smsSent = true
		}
	}

	enabled := s.cfg.AWS.SES.Enabled || s.cfg.AWS.SNS.Enabled
	if enabled && !emailSent && !smsSent {
		return commonerrors.NewNotificationError("all", "no alert channel succeeded")
	}

	s.logger.Info("alert delivered", map[string]interface{}{
		"alert_id":   alertID,
		"notice_id":  n.ID,
		"email_sent": emailSent,
		"sms_sent":   smsSent,
	})
	return nil
}

func (s *Service) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := s.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(s.cfg.AWS.SES.FromEmail),
	})
	return err
}

func (s *Service) sendSMS(ctx context.Context, to, message string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	}
	if s.cfg.AWS.SNS.SenderID != "" {
		input.MessageAttributes = senderIDAttributes(s.cfg.AWS.SNS.SenderID)
	}
	_, err := s.snsClient.Publish(ctx, input)
	return err
}

func senderIDAttributes(senderID string) map[string]snstypes.MessageAttributeValue {
	return map[string]snstypes.MessageAttributeValue{
		"AWS.SNS.SMS.SenderID": {
			DataType:    aws.String("String"),
			StringValue: aws.String(senderID),
		},
	}
}
