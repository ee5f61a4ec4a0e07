package email

import (
	"bytes"
	"fmt"
	"html/template"
)

// Template is a predefined email template type.
type Template string

const (
	// TemplateMembershipInvite is the organization membership
	// invitation template.
	TemplateMembershipInvite Template = "membership_invite"
)

// MembershipInviteData holds data for the membership invite template.
type MembershipInviteData struct {
	OrganizationName string
	RoleName         string
	AcceptURL        string
	AppName          string
}

// TemplateEngine renders email templates.
type TemplateEngine struct {
	templates map[Template]*templateDef
}

type templateDef struct {
	subjectTmpl *template.Template
	bodyTmpl    *template.Template
}

// NewTemplateEngine creates a template engine with all predefined
// templates parsed.
func NewTemplateEngine() *TemplateEngine {
	engine := &TemplateEngine{templates: make(map[Template]*templateDef)}
	engine.register(TemplateMembershipInvite, membershipInviteSubject, membershipInviteBody)
	return engine
}

// Render renders a template with the given data.
func (e *TemplateEngine) Render(tmpl Template, data any) (subject, body string, err error) {
	def, ok := e.templates[tmpl]
	if !ok {
		return "", "", fmt.Errorf("template %s not found", tmpl)
	}

	var subjectBuf bytes.Buffer
	if err := def.subjectTmpl.Execute(&subjectBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute subject template: %w", err)
	}

	var bodyBuf bytes.Buffer
	if err := def.bodyTmpl.Execute(&bodyBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute body template: %w", err)
	}

	return subjectBuf.String(), bodyBuf.String(), nil
}

func (e *TemplateEngine) register(name Template, subject, body string) {
	e.templates[name] = &templateDef{
		subjectTmpl: template.Must(template.New(string(name) + "_subject").Parse(subject)),
		bodyTmpl:    template.Must(template.New(string(name) + "_body").Parse(body)),
	}
}

const membershipInviteSubject = `You've been invited to join {{.OrganizationName}} on {{.AppName}}`

const membershipInviteBody = `<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, Helvetica, Arial, sans-serif; color: #333;">
  <h2>Join {{.OrganizationName}}</h2>
  <p>{{.OrganizationName}} has invited you to help manage their events on {{.AppName}}{{if .RoleName}} as <strong>{{.RoleName}}</strong>{{end}}.</p>
  <p>
    <a href="{{.AcceptURL}}" style="display: inline-block; padding: 12px 24px; background: #4f46e5; color: #fff; border-radius: 6px; text-decoration: none;">
      Accept invitation
    </a>
  </p>
  <p style="color: #666; font-size: 13px;">
    If the button does not work, copy this link into your browser:<br>
    {{.AcceptURL}}
  </p>
  <p style="color: #666; font-size: 13px;">
    If you were not expecting this invitation you can ignore this email.
  </p>
</body>
</html>`
