package email

import (
	"bytes"
	"fmt"
	"html/template"

	"todo_service/internal/models"
)

const (
	SubjectVerify   = "Verify your account"
	SubjectResend   = "Verification Code"
	SubjectVerified = "Account Verified Successfully"
)

var (
	verifyHTML = template.Must(template.New("verify").Parse(`<div>
  <h2>Hello {{.LastName}},</h2>
  <p>Your verification code is <strong>{{.Code}}</strong></p>
  <p>This code expires in 10 minutes.</p>
</div>`))

	resendHTML = template.Must(template.New("resend").Parse(
		`<p>Your verification code is <strong>{{.Code}}</strong></p>`))

	verifiedHTML = template.Must(template.New("verified").Parse(`<div>
  <h2>Hello {{.LastName}},</h2>
  <p>Your account has been <strong>successfully verified</strong>.</p>
  <p>You can now log in.</p>
</div>`))
)

type templateData struct {
	LastName string
	Code     string
}

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("email.render %s: %w", t.Name(), err)
	}

	return buf.String(), nil
}

// * VerificationEmail: письмо с кодом после регистрации
func VerificationEmail(to, lastName, code string) (models.EmailMessage, error) {
	html, err := render(verifyHTML, templateData{LastName: lastName, Code: code})
	if err != nil {
		return models.EmailMessage{}, err
	}

	return models.EmailMessage{
		To:      to,
		Subject: SubjectVerify,
		Text:    fmt.Sprintf("Hello %s, your verification code is: %s", lastName, code),
		HTML:    html,
	}, nil
}

func ResendEmail(to, code string) (models.EmailMessage, error) {
	html, err := render(resendHTML, templateData{Code: code})
	if err != nil {
		return models.EmailMessage{}, err
	}

	return models.EmailMessage{
		To:      to,
		Subject: SubjectResend,
		Text:    fmt.Sprintf("Your verification code is %s", code),
		HTML:    html,
	}, nil
}

func VerifiedEmail(to, lastName string) (models.EmailMessage, error) {
	html, err := render(verifiedHTML, templateData{LastName: lastName})
	if err != nil {
		return models.EmailMessage{}, err
	}

	return models.EmailMessage{
		To:      to,
		Subject: SubjectVerified,
		Text:    fmt.Sprintf("Hello %s, your account has been verified.", lastName),
		HTML:    html,
	}, nil
}
