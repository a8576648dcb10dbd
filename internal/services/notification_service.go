package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/HollandReese/bulwark/internal/models"
)

// ThreatAlert is the payload delivered to administrators on High/Critical
// events and automatic blocks
type ThreatAlert struct {
	Type          models.IntrusionType
	Severity      models.Severity
	SourceAddress string
	Description   string
	Timestamp     time.Time
}

// Notifier delivers threat alerts. Delivery is fire-and-forget: a failed
// notification never fails the detection action that produced it.
type Notifier interface {
	NotifyThreat(ctx context.Context, alert ThreatAlert)
}

// AWSSESNotifier emails threat alerts using AWS SES
type AWSSESNotifier struct {
	sesClient    *ses.Client
	fromAddress  string
	alertAddress string
	logger       *slog.Logger
}

// NewAWSSESNotifier creates a new AWS SES notifier
func NewAWSSESNotifier(region, fromAddress, alertAddress string, logger *slog.Logger) (*AWSSESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESNotifier{
		sesClient:    ses.NewFromConfig(cfg),
		fromAddress:  fromAddress,
		alertAddress: alertAddress,
		logger:       logger,
	}, nil
}

// NotifyThreat sends an alert email. Errors are logged and swallowed.
func (n *AWSSESNotifier) NotifyThreat(ctx context.Context, alert ThreatAlert) {
	subject := fmt.Sprintf("[bulwark] %s threat from %s", alert.Severity, alert.SourceAddress)

	textBody := fmt.Sprintf(
		"Threat detected\n\nType: %s\nSeverity: %s\nSource address: %s\nDescription: %s\nTimestamp: %s\n",
		alert.Type,
		alert.Severity,
		alert.SourceAddress,
		alert.Description,
		alert.Timestamp.Format(time.RFC3339),
	)

	sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{n.alertAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := n.sesClient.SendEmail(sendCtx, input); err != nil {
		n.logger.Error("failed to send threat alert email",
			slog.String("source_address", alert.SourceAddress),
			slog.Any("error", err))
		return
	}

	n.logger.Info("threat alert sent",
		slog.String("type", string(alert.Type)),
		slog.String("severity", string(alert.Severity)),
		slog.String("source_address", alert.SourceAddress))
}

// LogNotifier writes alerts to the structured log only. Used when email
// delivery is not configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyThreat logs the alert
func (n *LogNotifier) NotifyThreat(_ context.Context, alert ThreatAlert) {
	n.logger.Warn("threat alert",
		slog.String("type", string(alert.Type)),
		slog.String("severity", string(alert.Severity)),
		slog.String("source_address", alert.SourceAddress),
		slog.String("description", alert.Description),
		slog.Time("timestamp", alert.Timestamp))
}
