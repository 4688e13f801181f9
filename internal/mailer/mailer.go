package mailer

import "gopkg.in/gomail.v2"

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// * Send отправляет письмо с текстовой и HTML частью
func (m *Mailer) Send(to, subject, text, html string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("To", to)
	msg.SetHeader("From", m.from())
	msg.SetHeader("Subject", subject)

	msg.SetBody("text/plain", text)
	if html != "" {
		msg.AddAlternative("text/html", html)
	}

	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	return dialer.DialAndSend(msg)
}

func (m *Mailer) from() string {
	if m.From != "" {
		return m.From
	}

	return m.Username
}
