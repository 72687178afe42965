package notification

import (
	"bytes"
	"context"
	"html/template"
	"strings"
	"time"
)

var shareLinkTemplate = template.Must(template.New("share").Parse(`<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Secure Credential Shared</h2>
  <p>Hello {{.RecipientName}},</p>
  <p>{{.OwnerName}} has securely shared the credential <strong>{{.CredentialName}}</strong> with you.</p>
  <p><a href="{{.Link}}" style="background:#1677ff;color:#fff;padding:10px 16px;border-radius:4px;text-decoration:none;">View Credential</a></p>
  <p>This link can be used once and expires on {{.ExpiresAt}}.</p>
  <p>If you were not expecting this email, you can ignore it.</p>
</body>
</html>`))

var invitationTemplate = template.Must(template.New("invitation").Parse(`<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>You're invited to {{.CompanyName}}</h2>
  <p>Hello {{.Name}},</p>
  <p>Your one-time code is <strong style="font-size: 20px; letter-spacing: 4px;">{{.OTP}}</strong></p>
  <p><a href="{{.Link}}">Accept the invitation</a> and enter the code to set your password.</p>
  <p>The invitation expires on {{.ExpiresAt}}.</p>
</body>
</html>`))

// ShareLink is the data rendered into a share notification.
type ShareLink struct {
	RecipientEmail string
	RecipientName  string
	OwnerName      string
	CredentialName string
	Token          string
	ExpiresAt      time.Time
}

type Invitation struct {
	Email       string
	Name        string
	CompanyName string
	OTP         string
	Token       string
	ExpiresAt   time.Time
}

// Mailer renders templates and hands them to a Sender.
type Mailer struct {
	sender      Sender
	frontendURL string
}

func NewMailer(sender Sender, frontendURL string) *Mailer {
	return &Mailer{
		sender:      sender,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// ShareURL is where the recipient redeems a share token.
func (m *Mailer) ShareURL(token string) string {
	return m.frontendURL + "/shared-credentials/" + token
}

func (m *Mailer) InvitationURL(token string) string {
	return m.frontendURL + "/accept-invitation?token=" + token
}

func (m *Mailer) SendShareLink(ctx context.Context, data ShareLink) error {
	var buf bytes.Buffer
	err := shareLinkTemplate.Execute(&buf, map[string]string{
		"RecipientName":  data.RecipientName,
		"OwnerName":      data.OwnerName,
		"CredentialName": data.CredentialName,
		"Link":           m.ShareURL(data.Token),
		"ExpiresAt":      data.ExpiresAt.UTC().Format(time.RFC1123),
	})
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{
		To:      data.RecipientEmail,
		Subject: "Secure Credential Shared: " + data.CredentialName,
		HTML:    buf.String(),
	})
}

func (m *Mailer) SendInvitation(ctx context.Context, data Invitation) error {
	var buf bytes.Buffer
	err := invitationTemplate.Execute(&buf, map[string]string{
		"Name":        data.Name,
		"CompanyName": data.CompanyName,
		"OTP":         data.OTP,
		"Link":        m.InvitationURL(data.Token),
		"ExpiresAt":   data.ExpiresAt.UTC().Format(time.RFC1123),
	})
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{
		To:      data.Email,
		Subject: "You're invited to join " + data.CompanyName,
		HTML:    buf.String(),
	})
}
