package services

import (
	"fmt"

	"github.com/shadabtanjeed/UniListing-sub000/internal/config"
	"gopkg.in/gomail.v2"
)

// Mailer sends signup verification codes. Delivery itself is an external
// collaborator; the interface keeps handlers testable.
type Mailer interface {
	SendVerificationCode(to, code string) error
}

// SMTPMailer delivers mail through the configured SMTP relay.
type SMTPMailer struct{}

func (SMTPMailer) SendVerificationCode(to, code string) error {
	cfg := config.AppConfig

	m := gomail.NewMessage()
	m.SetHeader("From", cfg.SMTPFrom)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Your UniListing verification code")
	m.SetBody("text/plain", fmt.Sprintf(
		"Your verification code is %s. It expires in 10 minutes.", code))

	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	return d.DialAndSend(m)
}
