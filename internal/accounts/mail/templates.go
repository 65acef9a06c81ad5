package mail

import (
	"bytes"
	"net/url"
	"strings"
	"text/template"
)

var (
	activationTmpl = template.Must(template.New("activation").Parse(`Hello {{.Name}},

Thanks for registering. Activate your account within 24 hours using the link below:

{{.Link}}

If you did not register, you can ignore this message.
`))

	resetTmpl = template.Must(template.New("reset").Parse(`Hello {{.Name}},

We received a request to reset your password. The link below is valid for 10 minutes:

{{.Link}}

If you did not ask for this, your password has not been changed.
`))
)

const (
	ActivationSubject    = "Activate your account"
	PasswordResetSubject = "Reset your password"
)

// Link builds baseURL + path with the token as a query parameter.
func Link(baseURL, path, token string) string {
	return strings.TrimRight(baseURL, "/") + path + "?token=" + url.QueryEscape(token)
}

// ActivationBody renders the activation mail.
func ActivationBody(name, link string) (string, error) {
	return render(activationTmpl, name, link)
}

// PasswordResetBody renders the reset mail.
func PasswordResetBody(name, link string) (string, error) {
	return render(resetTmpl, name, link)
}

func render(t *template.Template, name, link string) (string, error) {
	var buf bytes.Buffer
	err := t.Execute(&buf, struct{ Name, Link string }{name, link})
	return buf.String(), err
}
