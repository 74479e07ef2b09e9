package providers

import (
	"context"
	"fmt"

	"subscription-report-service/internal/config"
	"subscription-report-service/internal/logging"
	"subscription-report-service/internal/models"
	"subscription-report-service/pkg/email"
)

// EmailProvider sends the upsell offer mail over SMTP.
type EmailProvider struct {
	cfg    config.Config
	logger *logging.Logger
}

func NewEmailProvider(cfg config.Config, logger *logging.Logger) *EmailProvider {
	return &EmailProvider{cfg: cfg, logger: logger}
}

// SendUpsell composes and sends the upselling opportunity email. Disabled
// mail is logged and skipped without error.
func (p *EmailProvider) SendUpsell(_ context.Context, alert models.UpsellAlert) error {
	e := p.cfg.Email
	if !e.Enabled {
		p.logger.Warnf("Email sending disabled, set EMAIL_ENABLED=true to enable it")
		return nil
	}

	if e.SMTPServer == "" || e.SMTPPort == 0 || e.From == "" || e.To == "" {
		return fmt.Errorf("missing email configuration: SMTP server, port, from, or to is empty")
	}

	subject := fmt.Sprintf("Upselling opportunity for customer %s", alert.CustomerID)
	body := fmt.Sprintf("Customer %s has been subscribed to the %s service for more than %d years, "+
		"it is time to offer them an upselling subscription.",
		alert.CustomerID, alert.ServiceType, p.cfg.Rules.UpsellYears)

	if err := email.Send(e.SMTPServer, e.SMTPPort, e.Username, e.Password, e.From, e.To, subject, body); err != nil {
		return fmt.Errorf("failed to send upselling email to %s: %w", e.To, err)
	}
	p.logger.Infof("Upselling email sent to %s for customer %s", e.To, alert.CustomerID)
	return nil
}
