// Package mailer renders and delivers the two executor lifecycle emails:
// the dead-man-switch notice and the final access-granted notification.
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/org/endura/pkg/models"
)

// Sender delivers executor lifecycle notifications.
type Sender interface {
	SendDeadManNotice(executor *models.Executor, ownerName string) error
	SendAccessGranted(executor *models.Executor, ownerName string) error
}

// SMTPSender sends HTML mail over plain SMTP.
type SMTPSender struct {
	Host      string
	Port      string
	Username  string
	Password  string
	From      string
	UploadURL string // page where the executor uploads the verification document
}

// NewSMTPSender builds an SMTPSender.
func NewSMTPSender(host, port, username, password, from, uploadURL string) *SMTPSender {
	return &SMTPSender{
		Host:      host,
		Port:      port,
		Username:  username,
		Password:  password,
		From:      from,
		UploadURL: uploadURL,
	}
}

const deadManTemplate = `
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #ddd; border-radius: 5px; }
        .header { background-color: #1a2332; color: white; padding: 10px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { padding: 20px; }
        .button { display: inline-block; padding: 10px 20px; background-color: #c9a84c; color: black; text-decoration: none; border-radius: 4px; font-weight: bold; }
        .footer { margin-top: 20px; font-size: 0.8em; color: #777; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Endura Legacy System</h1>
        </div>
        <div class="content">
            <p>Dear {{.ExecutorName}},</p>
            <p>You were designated by {{.OwnerName}} as the executor of their digital legacy.
            Our records indicate a prolonged period of inactivity on their account, and the
            release process has now been initiated.</p>
            <p>To continue, please upload a proof-of-identity document so our team can verify
            that you are the designated executor.</p>
            <p style="text-align: center;">
                <a class="button" href="{{.UploadURL}}">Upload Verification Document</a>
            </p>
            <p>If you believe this message was sent in error, no action is required.</p>
        </div>
        <div class="footer">
            <p>Endura Legacy System</p>
        </div>
    </div>
</body>
</html>
`

const accessGrantedTemplate = `
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #ddd; border-radius: 5px; }
        .header { background-color: #1a2332; color: white; padding: 10px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { padding: 20px; }
        .footer { margin-top: 20px; font-size: 0.8em; color: #777; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Endura Legacy System</h1>
        </div>
        <div class="content">
            <p>Dear {{.ExecutorName}},</p>
            <p>Your identity has been verified. As the designated executor for
            {{.OwnerName}}, you have now been granted access to their vault and letters.</p>
            <p>Our team will contact you with instructions for retrieving the entrusted
            materials.</p>
            <p>We are sorry for your loss.</p>
        </div>
        <div class="footer">
            <p>Endura Legacy System</p>
        </div>
    </div>
</body>
</html>
`

// SendDeadManNotice emails the executor asking for identity verification.
func (s *SMTPSender) SendDeadManNotice(executor *models.Executor, ownerName string) error {
	return s.send(executor.Email, "Action required: digital legacy verification", deadManTemplate, map[string]string{
		"ExecutorName": executor.Name,
		"OwnerName":    ownerName,
		"UploadURL":    s.UploadURL,
	})
}

// SendAccessGranted emails the executor that access has been released.
func (s *SMTPSender) SendAccessGranted(executor *models.Executor, ownerName string) error {
	return s.send(executor.Email, "Digital legacy access granted", accessGrantedTemplate, map[string]string{
		"ExecutorName": executor.Name,
		"OwnerName":    ownerName,
	})
}

func renderMail(tmpl string, data map[string]string) (string, error) {
	t, err := template.New("mail").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parsing mail template: %w", err)
	}
	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return "", fmt.Errorf("rendering mail template: %w", err)
	}
	return body.String(), nil
}

func (s *SMTPSender) send(to, subject, tmpl string, data map[string]string) error {
	body, err := renderMail(tmpl, data)
	if err != nil {
		return err
	}

	headers := map[string]string{
		"From":         s.From,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": `text/html; charset="UTF-8"`,
	}
	message := ""
	for k, v := range headers {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + body

	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)
	return smtp.SendMail(addr, auth, s.From, []string{to}, []byte(message))
}
