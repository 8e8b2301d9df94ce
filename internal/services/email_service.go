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
)

// Mailer is the outbound notification capability. Every send is best-effort:
// callers log failures and never surface them in the user-facing response.
type Mailer interface {
	SendAccountLocked(ctx context.Context, email string, permanent bool, duration time.Duration) error
	SendPasswordChanged(ctx context.Context, email string) error
	SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error
	SendVerification(ctx context.Context, email, code string) error
}

// AWSSESMailer sends emails using AWS SES
type AWSSESMailer struct {
	sesClient       *ses.Client
	fromAddress     string
	baseURL         string
	verificationURL string
	logger          *slog.Logger
}

// NewAWSSESMailer creates a new AWS SES mailer. verificationURL overrides
// the default baseURL-relative verification link when set.
func NewAWSSESMailer(region, fromAddress, baseURL, verificationURL string, logger *slog.Logger) (*AWSSESMailer, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESMailer{
		sesClient:       ses.NewFromConfig(cfg),
		fromAddress:     fromAddress,
		baseURL:         baseURL,
		verificationURL: verificationURL,
		logger:          logger,
	}, nil
}

func (s *AWSSESMailer) SendAccountLocked(ctx context.Context, email string, permanent bool, duration time.Duration) error {
	var subject, body string
	if permanent {
		subject = "Your account has been permanently locked"
		body = "Your account has been permanently locked due to multiple failed login attempts.\n\n" +
			"Please contact an administrator to regain access to your account."
	} else {
		subject = "Your account has been temporarily locked"
		body = fmt.Sprintf("Your account has been temporarily locked due to multiple failed login attempts.\n\n"+
			"You can try again in %d minutes, or contact an administrator to unlock your account sooner.",
			int(duration.Minutes()))
	}

	return s.send(ctx, email, subject, body)
}

func (s *AWSSESMailer) SendPasswordChanged(ctx context.Context, email string) error {
	body := "The password for your account was just changed.\n\n" +
		"If you made this change, no further action is needed.\n" +
		"If you did not change your password, please contact an administrator immediately."

	return s.send(ctx, email, "Your password has been changed", body)
}

func (s *AWSSESMailer) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	link := fmt.Sprintf("%s/password/reset?token=%s", s.baseURL, token)
	body := fmt.Sprintf("We received a request to reset the password for your account.\n\n"+
		"Use the link below to choose a new password:\n%s\n\n"+
		"This link expires at %s. If you did not request a password reset, you can ignore this email.",
		link, expiresAt.UTC().Format(time.RFC1123))

	return s.send(ctx, email, "Reset your password", body)
}

func (s *AWSSESMailer) SendVerification(ctx context.Context, email, code string) error {
	base := s.verificationURL
	if base == "" {
		base = s.baseURL + "/verify-email"
	}
	link := fmt.Sprintf("%s?code=%s", base, code)
	body := fmt.Sprintf("Please verify your email address by clicking the link below:\n\n%s\n\n"+
		"If you did not create this account, you can ignore this email.", link)

	return s.send(ctx, email, "Verify your email address", body)
}

func (s *AWSSESMailer) send(ctx context.Context, email, subject, textBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send email via SES",
			slog.String("subject", subject),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		slog.String("subject", subject),
		slog.String("message_id", *result.MessageId))

	return nil
}
