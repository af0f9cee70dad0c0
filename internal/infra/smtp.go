package infra

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"restopos/internal/config"
	"restopos/internal/model"

	"github.com/jordan-wright/email"
)

// ErrMailerDisabled is returned when SMTP_HOST is not configured.
var ErrMailerDisabled = errors.New("mailer: SMTP not configured")

// Mailer sends day-end reports over SMTP through a circuit breaker.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
	breaker  *CircuitBreaker
	send     func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		breaker:  NewCircuitBreaker("smtp", DefaultCBConfig()),
		send:     func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
	}
}

func (m *Mailer) Enabled() bool { return m.host != "" }

// Breaker exposes the SMTP circuit breaker for health checks and the
// dead-letter replay loop.
func (m *Mailer) Breaker() *CircuitBreaker { return m.breaker }

// SendDayEndReport mails the Z-Report summary to recipients with the PDF attached.
func (m *Mailer) SendDayEndReport(to []string, rep *model.DayEndReport, pdfPath string) error {
	if !m.Enabled() {
		return ErrMailerDisabled
	}
	if len(to) == 0 {
		return errors.New("mailer: no recipients")
	}

	e := email.NewEmail()
	e.From = m.user
	e.To = to
	e.Subject = fmt.Sprintf("Z-Report %s (%s)", rep.ReportNumber, rep.BusinessDate.Format("2006-01-02"))
	e.Text = []byte(dayEndSummaryText(rep))

	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return m.breaker.Execute(func() error { return m.send(e, m.addr, auth) })
}

func dayEndSummaryText(rep *model.DayEndReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s closed at %s by %s.\n\n",
		rep.SessionNumber, rep.SessionClosedAt.Format("2006-01-02 15:04"), rep.GeneratedBy)
	fmt.Fprintf(&b, "Orders:        %d\n", rep.TotalOrders)
	fmt.Fprintf(&b, "Total sales:   %s\n", rep.TotalSales.StringFixed(2))
	fmt.Fprintf(&b, "Expected cash: %s\n", rep.ExpectedCash.StringFixed(2))
	fmt.Fprintf(&b, "Closing cash:  %s\n", rep.ClosingCash.StringFixed(2))
	fmt.Fprintf(&b, "Difference:    %s (%s)\n", rep.CashDifference.StringFixed(2), rep.CashStatus)
	if rep.ClosingCashAssumed {
		b.WriteString("\nNo drawer count was entered; closing cash was assumed equal to expected cash.\n")
	}
	return b.String()
}
