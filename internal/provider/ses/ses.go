// Package ses implements a Provider that sends emails via AWS SES v2.
package ses

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/shineum/mdmail/internal/email"
)

// maxRetries is the maximum number of retry attempts for transient failures.
const maxRetries = 3

// baseRetryDelay is the initial delay for exponential backoff.
const baseRetryDelay = 1 * time.Second

// SESProviderConfig holds the configuration for creating a SESProvider.
type SESProviderConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Sender is used when a message carries no From address.
	Sender string
	// ConfigurationSet names an SES configuration set for event publishing.
	ConfigurationSet string
}

// SESProvider sends emails via the AWS SES v2 API.
type SESProvider struct {
	sender           string
	configurationSet string
	client           SendEmailAPI
}

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// Used for testing with mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// New creates a new SESProvider with the given configuration.
func New(ctx context.Context, cfg SESProviderConfig) (*SESProvider, error) {
	var opts []func(*awsconfig.LoadOptions) error

	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESProvider{
		sender:           cfg.Sender,
		configurationSet: cfg.ConfigurationSet,
		client:           sesv2.NewFromConfig(awsCfg),
	}, nil
}

// NewWithClient creates a SESProvider with a custom client, used for testing.
func NewWithClient(sender string, client SendEmailAPI) *SESProvider {
	return &SESProvider{
		sender: sender,
		client: client,
	}
}

// Send delivers an email message via AWS SES v2.
// Messages with inline images or attachments are sent as raw MIME, since
// the simple format cannot carry parts; everything else uses the simple
// format.
func (s *SESProvider) Send(ctx context.Context, msg *email.Message) error {
	var input *sesv2.SendEmailInput

	if len(msg.Inline) > 0 || len(msg.Attachments) > 0 {
		var err error
		input, err = s.buildRawInput(msg)
		if err != nil {
			return fmt.Errorf("failed to build raw message: %w", err)
		}
	} else {
		input = buildSimpleInput(s.from(msg), msg)
	}
	if s.configurationSet != "" {
		input.ConfigurationSetName = aws.String(s.configurationSet)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying SES API request",
				"attempt", attempt,
				"max_retries", maxRetries,
			)
			delay := backoffDelay(attempt)
			if err := sleepWithContext(ctx, delay); err != nil {
				return fmt.Errorf("context cancelled during retry wait: %w", err)
			}
		}

		out, err := s.client.SendEmail(ctx, input)
		if err == nil {
			if out != nil && out.MessageId != nil {
				slog.Debug("SES accepted message", "ses_message_id", *out.MessageId)
			}
			return nil
		}

		lastErr = err
		slog.Warn("SES API error",
			"attempt", attempt,
			"error", err,
		)
	}

	return fmt.Errorf("SES API request failed after %d retries: %w", maxRetries, lastErr)
}

// Name returns the provider name.
func (s *SESProvider) Name() string {
	return "ses"
}

func (s *SESProvider) from(msg *email.Message) string {
	if msg.From != "" {
		return msg.From
	}
	return s.sender
}

// buildSimpleInput creates a SES SendEmailInput for messages without parts.
func buildSimpleInput(sender string, msg *email.Message) *sesv2.SendEmailInput {
	body := &types.Body{}

	if msg.HTMLBody != "" {
		body.Html = &types.Content{
			Data:    aws.String(msg.HTMLBody),
			Charset: aws.String("UTF-8"),
		}
	}
	if msg.TextBody != "" {
		body.Text = &types.Content{
			Data:    aws.String(msg.TextBody),
			Charset: aws.String("UTF-8"),
		}
	}

	var headers []types.MessageHeader
	for _, name := range slices.Sorted(maps.Keys(msg.Headers)) {
		headers = append(headers, types.MessageHeader{
			Name:  aws.String(name),
			Value: aws.String(msg.Headers[name]),
		})
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(sender),
		Destination:      destination(msg),
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body:    body,
				Headers: headers,
			},
		},
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}
	return input
}

// buildRawInput renders the message to MIME. Bcc never appears in the raw
// data, so recipients are also passed as the destination.
func (s *SESProvider) buildRawInput(msg *email.Message) (*sesv2.SendEmailInput, error) {
	wire := *msg
	wire.From = s.from(msg)

	raw, err := wire.Bytes()
	if err != nil {
		return nil, err
	}

	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(wire.From),
		Destination:      destination(msg),
		Content: &types.EmailContent{
			Raw: &types.RawMessage{
				Data: raw,
			},
		},
	}, nil
}

func destination(msg *email.Message) *types.Destination {
	return &types.Destination{
		ToAddresses:  msg.To,
		CcAddresses:  msg.Cc,
		BccAddresses: msg.Bcc,
	}
}

// backoffDelay returns the exponential backoff delay for the given attempt number.
func backoffDelay(attempt int) time.Duration {
	delay := baseRetryDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// sleepWithContext waits for the specified duration or until the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
