package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
)

//go:embed templates/*.html
var templateFS embed.FS

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type SMTPProvider struct {
	cfg Config
}

func NewSMTP(cfg Config) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

func (p *SMTPProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	auth := smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	addr := fmt.Sprintf("%s:%s", p.cfg.Host, p.cfg.Port)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n%s\r\n%s", to[0], subject, mime, htmlBody))

	return smtp.SendMail(addr, auth, p.cfg.From, to, msg)
}

func (p *SMTPProvider) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	t, err := template.ParseFS(templateFS, "templates/"+templateName+".html")
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	subject := subjectFor(templateName, data)
	return p.Send(ctx, to, subject, body.String())
}

func subjectFor(templateName string, data interface{}) string {
	dataMap, _ := data.(map[string]interface{})
	if dataMap != nil {
		if subj, ok := dataMap["subject"].(string); ok && subj != "" {
			return subj
		}
	}

	switch templateName {
	case "enrollment_purchase":
		if course, ok := dataMap["course_title"].(string); ok && course != "" {
			return fmt.Sprintf("You're enrolled in %s", course)
		}
		return "Your enrollment is confirmed"
	case "enrollment_grant":
		return "Your sponsored enrollment is confirmed"
	case "enrollment_referral":
		return "Your enrollment is confirmed"
	}
	return "Enrollment update"
}
