package auth

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/NordCoder/crewcruise/internal/domain/mail"
)

type emailData struct {
	Names string
	Link  string
	TTL   time.Duration
}

type emailTemplate struct {
	subject string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

var (
	verifyEmailTemplate = emailTemplate{
		subject: "Verify your email",
		text: texttemplate.Must(texttemplate.New("verify.txt").Parse(
			`Hi {{.Names}},

Confirm your email address by opening the link below:
{{.Link}}

The link expires in {{.TTL}}.
`)),
		html: htmltemplate.Must(htmltemplate.New("verify.html").Parse(
			`<p>Hi {{.Names}},</p>
<p>Confirm your email address by clicking <a href="{{.Link}}">this link</a>.</p>
<p>The link expires in {{.TTL}}.</p>
`)),
	}

	forgotPasswordEmailTemplate = emailTemplate{
		subject: "Reset your password",
		text: texttemplate.Must(texttemplate.New("reset.txt").Parse(
			`Hi {{.Names}},

We received a request to reset your password. Open the link below to choose a new one:
{{.Link}}

The link expires in {{.TTL}}. If you did not ask for this, ignore this email.
`)),
		html: htmltemplate.Must(htmltemplate.New("reset.html").Parse(
			`<p>Hi {{.Names}},</p>
<p>We received a request to reset your password. Click <a href="{{.Link}}">here</a> to choose a new one.</p>
<p>The link expires in {{.TTL}}. If you did not ask for this, ignore this email.</p>
`)),
	}
)

func (t emailTemplate) render(to string, d emailData) (mail.Message, error) {
	var text, html bytes.Buffer
	if err := t.text.Execute(&text, d); err != nil {
		return mail.Message{}, fmt.Errorf("render %s: %w", t.text.Name(), err)
	}
	if err := t.html.Execute(&html, d); err != nil {
		return mail.Message{}, fmt.Errorf("render %s: %w", t.html.Name(), err)
	}
	return mail.Message{
		To:      []string{to},
		Subject: t.subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
