package email

import (
	"crypto/tls"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Sender delivers a single email message.
type Sender interface {
	Send(to, subject, body string) error
}

type Config struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	From       string `mapstructure:"from"`
	SkipVerify bool   `mapstructure:"skip_verify"`
}

type smtpSender struct {
	cfg    Config
	dialer *gomail.Dialer
}

func NewSMTPSender(cfg Config) Sender {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.SkipVerify {
		dialer.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &smtpSender{cfg: cfg, dialer: dialer}
}

func (s *smtpSender) Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
