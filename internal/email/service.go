package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"github.com/swapbnb/api/internal/logging"
)

// Dialer sends composed messages. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Service struct {
	dialer      Dialer
	fromAddress string
	frontendURL string
	templates   *template.Template
}

func NewService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromAddress, frontendURL string) *Service {
	return NewServiceWithDialer(gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword), fromAddress, frontendURL)
}

// NewServiceWithDialer creates a service with a custom dialer, used in tests
func NewServiceWithDialer(dialer Dialer, fromAddress, frontendURL string) *Service {
	return &Service{
		dialer:      dialer,
		fromAddress: fromAddress,
		frontendURL: frontendURL,
		templates:   template.Must(template.New("layout").Parse(layoutTemplate)),
	}
}

// content is rendered into the shared layout
type content struct {
	Title      string
	Heading    string
	Paragraphs []string
	ButtonText string
	Link       string
	Footer     string
}

// SendVerificationEmail sends an email verification link to the user
// This method is designed to be called in a goroutine
func (s *Service) SendVerificationEmail(ctx context.Context, toEmail, token string) error {
	link := fmt.Sprintf("%s/verify?token=%s", s.frontendURL, token)
	return s.send(ctx, toEmail, "Verify your email address", content{
		Title:      "Welcome to SwapBnB!",
		Heading:    "Verify your email address",
		Paragraphs: []string{"Thank you for signing up! Please click the button below to verify your email address and activate your account."},
		ButtonText: "Verify Email Address",
		Link:       link,
		Footer:     "This link will expire in 24 hours. If you didn't create an account, you can safely ignore this email.",
	})
}

// SendPasswordResetEmail sends a password reset link to the user
// This method is designed to be called in a goroutine
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)
	return s.send(ctx, toEmail, "Reset your password", content{
		Title:      "Password Reset Request",
		Heading:    "Reset your password",
		Paragraphs: []string{"You requested to reset your password. Click the button below to create a new password."},
		ButtonText: "Reset Password",
		Link:       link,
		Footer:     "This link will expire in 1 hour. If you didn't request a password reset, your password will remain unchanged.",
	})
}

// Notification is a transactional message about an exchange or conversation
type Notification struct {
	To         string
	Subject    string
	Heading    string
	Paragraphs []string
	// Path is appended to the frontend URL for the call-to-action button
	Path       string
	ButtonText string
}

// SendNotification sends an exchange lifecycle or message notification
func (s *Service) SendNotification(ctx context.Context, n Notification) error {
	c := content{
		Title:      "SwapBnB",
		Heading:    n.Heading,
		Paragraphs: n.Paragraphs,
		Footer:     "You are receiving this email because you have an account on SwapBnB.",
	}
	if n.Path != "" {
		c.Link = s.frontendURL + n.Path
		c.ButtonText = n.ButtonText
		if c.ButtonText == "" {
			c.ButtonText = "Open SwapBnB"
		}
	}
	return s.send(ctx, n.To, n.Subject, c)
}

func (s *Service) send(ctx context.Context, to, subject string, c content) error {
	logger := logging.GetLoggerFromContext(ctx)

	body, err := s.render(c)
	if err != nil {
		logger.Error("failed to render email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.fromAddress)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		logger.Error("failed to send email", "email", to, "subject", subject, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("email sent", "email", to, "subject", subject)
	return nil
}

func (s *Service) render(c content) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

const layoutTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #0F766E; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
        .button { display: inline-block; background-color: #0F766E; color: white !important; padding: 12px 30px; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Title}}</h1>
    </div>
    <div class="content">
        <h2>{{.Heading}}</h2>
        {{range .Paragraphs}}<p>{{.}}</p>
        {{end}}
        {{if .Link}}
        <a href="{{.Link}}" class="button" style="color: white !important;">{{.ButtonText}}</a>
        <p>Or copy and paste this link into your browser:</p>
        <p style="word-break: break-all; color: #0F766E;">{{.Link}}</p>
        {{end}}
    </div>
    <div class="footer">
        <p>{{.Footer}}</p>
        <p>&copy; 2026 SwapBnB. All rights reserved.</p>
    </div>
</body>
</html>
`
