package email

import (
	"bytes"
	"context"
	"fmt"
	htemplate "html/template"
	"time"

	"github.com/dropDatabas3/gatekit/internal/observability/logger"
)

const loginSubject = "Nuevo inicio de sesión desde la CLI"

var loginHTMLTmpl = htemplate.Must(htemplate.New("login_html").Parse(`<!doctype html>
<html><body>
<p>Hola,</p>
<p>Se inició una sesión de CLI en tu cuenta <b>{{.Email}}</b> vía <b>{{.Provider}}</b> el {{.When}}.</p>
<p>Si no fuiste vos, revocá tus sesiones activas cuanto antes.</p>
</body></html>`))

const loginTextTmpl = `Hola,

Se inició una sesión de CLI en tu cuenta %s vía %s el %s.

Si no fuiste vos, revocá tus sesiones activas cuanto antes.
`

// LoginNotifier envía un aviso por email cuando se completa un login de CLI.
// El envío corre en una goroutine propia: nunca bloquea ni hace fallar el
// request de login.
type LoginNotifier struct {
	Sender  Sender
	Timeout time.Duration
}

// NewLoginNotifier crea el notificador. Con sender nil no hace nada.
func NewLoginNotifier(sender Sender) *LoginNotifier {
	return &LoginNotifier{Sender: sender, Timeout: 15 * time.Second}
}

// LoginSucceeded despacha el aviso en background.
func (n *LoginNotifier) LoginSucceeded(ctx context.Context, email, provider string) {
	if n == nil || n.Sender == nil || email == "" {
		return
	}
	log := logger.From(ctx).With(
		logger.Component("email.login_notifier"),
		logger.Email(email),
		logger.Provider(provider),
	)

	go func() {
		when := time.Now().UTC().Format("2006-01-02 15:04 UTC")

		var html bytes.Buffer
		data := struct{ Email, Provider, When string }{email, provider, when}
		if err := loginHTMLTmpl.Execute(&html, data); err != nil {
			log.Error("render login email", logger.Err(err))
			return
		}
		text := fmt.Sprintf(loginTextTmpl, email, provider, when)

		done := make(chan error, 1)
		go func() { done <- n.Sender.Send(email, loginSubject, html.String(), text) }()

		select {
		case err := <-done:
			if err != nil {
				log.Warn("login notification failed", logger.Err(err))
			}
		case <-time.After(n.Timeout):
			log.Warn("login notification timed out")
		}
	}()
}
