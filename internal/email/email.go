// Package email implementa el envío de notificaciones por SMTP.
package email

import "errors"

// ─── Errors ───

var (
	ErrSendFailed   = errors.New("email: send failed")
	ErrInvalidInput = errors.New("email: invalid input")
)

// Sender envía un email ya renderizado.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}

// ─── Configuración SMTP ───

// SMTPConfig contiene la configuración para conectarse a un servidor SMTP.
type SMTPConfig struct {
	Host      string // Host del servidor SMTP
	Port      int    // Puerto (default 587)
	Username  string // Usuario para autenticación
	Password  string // Password en claro
	FromEmail string // Email del remitente
	TLSMode   string // "auto" | "starttls" | "ssl" | "none"
}

// Enabled indica si hay configuración suficiente para enviar.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.FromEmail != ""
}
