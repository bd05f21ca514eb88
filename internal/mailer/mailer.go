package mailer

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/itm-space/backend-resources/models"
)

// EmailClient is the part of the SES v2 client used to send mail.
type EmailClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

var welcomeBody = template.Must(template.New("welcome").Parse(
	`Hello {{if .FirstName}}{{.FirstName}}{{else}}{{.Username}}{{end}},

An account has been created for you with the username {{.Username}}.
`))

// Mailer sends welcome emails to newly created users through SES.
type Mailer struct {
	Client  EmailClient
	Sender  string
	Subject string
}

func New(client EmailClient, sender, subject string) *Mailer {
	return &Mailer{Client: client, Sender: sender, Subject: subject}
}

// SendWelcome mails the user named in event. Events without an email
// address are skipped.
func (m *Mailer) SendWelcome(ctx context.Context, event models.UserEvent) error {
	if event.Email == "" {
		return nil
	}

	var body bytes.Buffer
	if err := welcomeBody.Execute(&body, event); err != nil {
		return fmt.Errorf("failed to render welcome email: %w", err)
	}

	_, err := m.Client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.Sender),
		Destination: &types.Destination{
			ToAddresses: []string{event.Email},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(m.Subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body.String())},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send welcome email to %s: %w", event.Email, err)
	}
	return nil
}
