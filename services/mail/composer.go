package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmlTemplate "html/template"
	textTemplate "text/template"
)

//go:embed templates/*
var templateFS embed.FS

const (
	VerifySubject = "Email confirmation link"
	ResetSubject  = "Reset your password"
)

// TemplateData is the view model shared by every mail template.
type TemplateData struct {
	Name      string
	Email     string
	Link      string
	ExpiresIn string
	Team      string
}

// Composer renders the embedded mail templates. A template may exist as
// .txt, .html or both; the available parts become the message bodies.
type Composer struct {
	html *htmlTemplate.Template
	text *textTemplate.Template
	team string
}

func NewComposer(team string) (*Composer, error) {
	html, err := htmlTemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML mail templates: %w", err)
	}
	text, err := textTemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text mail templates: %w", err)
	}
	return &Composer{html: html, text: text, team: team}, nil
}

func (c *Composer) Compose(name, to, subject string, data TemplateData) (*Message, error) {
	if data.Team == "" {
		data.Team = c.team
	}

	msg := &Message{To: []string{to}, Subject: subject}

	if t := c.text.Lookup(name + ".txt"); t != nil {
		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("failed to execute text template %s: %w", name, err)
		}
		msg.TextBody = buf.String()
	}

	if t := c.html.Lookup(name + ".html"); t != nil {
		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("failed to execute HTML template %s: %w", name, err)
		}
		msg.HTMLBody = buf.String()
	}

	if msg.TextBody == "" && msg.HTMLBody == "" {
		return nil, fmt.Errorf("mail template '%s' not found", name)
	}
	return msg, nil
}

func (c *Composer) Verification(to, name, link string) (*Message, error) {
	return c.Compose("verify_email", to, VerifySubject, TemplateData{
		Name:  name,
		Email: to,
		Link:  link,
	})
}

func (c *Composer) PasswordReset(to, name, link, expiresIn string) (*Message, error) {
	return c.Compose("reset_password", to, ResetSubject, TemplateData{
		Name:      name,
		Email:     to,
		Link:      link,
		ExpiresIn: expiresIn,
	})
}
