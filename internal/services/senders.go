package services

import "bolso/internal/logger"

// logPushSender is the default push backend: it logs instead of
// delivering. Production deployments plug in a real provider through
// the PushSender interface.
type logPushSender struct{}

// NewLogPushSender creates a PushSender that only logs.
func NewLogPushSender() PushSender { return &logPushSender{} }

func (s *logPushSender) SendPush(userID, title, body string, tokens []string) error {
	logger.Get().Infow("push notification",
		"user_id", userID,
		"title", title,
		"devices", len(tokens),
	)
	return nil
}

// logEmailSender is the default email backend: it logs instead of
// delivering.
type logEmailSender struct{}

// NewLogEmailSender creates an EmailSender that only logs.
func NewLogEmailSender() EmailSender { return &logEmailSender{} }

func (s *logEmailSender) SendEmail(to, subject, body string) error {
	logger.Get().Infow("email notification", "to", to, "subject", subject)
	return nil
}
