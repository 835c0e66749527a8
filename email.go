package loginhub

import "log"

// SendEmail interface allows applications to provide their own email sending implementation
type SendEmail interface {
	SendPasswordResetEmail(to string, resetToken string) error
}

// ConsoleEmailSender is a development implementation that logs emails to console
type ConsoleEmailSender struct{}

func (c *ConsoleEmailSender) SendPasswordResetEmail(to string, resetToken string) error {
	log.Printf("\n=== EMAIL: Password Reset ===")
	log.Printf("To: %s", to)
	log.Printf("Subject: Reset your password")
	log.Printf("Body: Use this code to reset your password: %s", resetToken)
	log.Printf("==============================\n")
	return nil
}
