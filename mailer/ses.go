package mailer

import (
	"context"
	"fmt"

	authcore "github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/actiontoken"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SES sends account mail through AWS SES.
type SES struct {
	client       *ses.Client
	fromAddress  string
	frontendHost string
}

// NewSES wraps an existing SES client. fromAddress must be a verified SES
// identity; frontendHost is the external base URL confirmation links point
// at.
func NewSES(client *ses.Client, fromAddress, frontendHost string) *SES {
	return &SES{client: client, fromAddress: fromAddress, frontendHost: frontendHost}
}

// NewSESFromEnv builds the client from the default AWS configuration chain
// (environment, shared config, instance role).
func NewSESFromEnv(ctx context.Context, fromAddress, frontendHost string) (*SES, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("mailer: load aws config: %w", err)
	}
	return NewSES(ses.NewFromConfig(cfg), fromAddress, frontendHost), nil
}

func (s *SES) SendActionEmail(ctx context.Context, user authcore.UserRecord, token string, action actiontoken.Action) error {
	return s.send(ctx, renderAction(s.frontendHost, user, token, action))
}

func (s *SES) SendWelcomeEmail(ctx context.Context, user authcore.UserRecord) error {
	return s.send(ctx, renderWelcome(user))
}

func (s *SES) send(ctx context.Context, msg message) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(msg.TextBody),
					Charset: aws.String("UTF-8"),
				},
				Html: &types.Content{
					Data:    aws.String(msg.HTMLBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", msg.To, err)
	}
	return nil
}
