package sns

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/presswire-api/internal/config"
)

// Notifier tells operators about events such as a new release going live.
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}

// API is the subset of *sns.Client the publisher uses.
type API interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type publisher struct {
	client   API
	topicARN string
}

// NewNotifier returns an SNS topic publisher, or a logging notifier when no
// topic is configured.
func NewNotifier(ctx context.Context, cfg *config.Config) (Notifier, error) {
	if cfg.SNSTopicARN == "" {
		return LogNotifier{}, nil
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for SNS: %w", err)
	}
	var clientOpts []func(*sns.Options)
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return NewPublisher(sns.NewFromConfig(awsCfg, clientOpts...), cfg.SNSTopicARN), nil
}

// NewPublisher wraps an SNS client bound to one topic.
func NewPublisher(client API, topicARN string) Notifier {
	return &publisher{client: client, topicARN: topicARN}
}

func (p *publisher) Notify(ctx context.Context, subject, message string) error {
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

// LogNotifier writes notifications to the log instead of publishing them.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, subject, message string) error {
	slog.Info("operator notification", "subject", subject, "message", message)
	return nil
}
