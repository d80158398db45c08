package notice

import (
	"embed"
	"log/slog"

	"github.com/tendant/admin-auth/pkg/notification"
)

// Notice kinds sent by the auth lifecycle engine.
const (
	EmailConfirmationNotice notification.NoticeType = "email_confirmation"
	ForgotPasswordNotice    notification.NoticeType = "forgot_password"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		slog.Error("Error reading template file!", "err", err, "filename", filename)
		return ""
	}
	return string(content)
}

// NewNotificationManager creates a notification manager with the email
// notifier and the notice templates used by the auth service.
func NewNotificationManager(baseUrl string, smtpConfig notification.SMTPConfig) (*notification.NotificationManager, error) {
	notificationManager := notification.NewNotificationManager(baseUrl)

	emailNotifier, err := notification.NewEmailNotifier(smtpConfig)
	if err != nil {
		return nil, err
	}
	notificationManager.RegisterNotifier(notification.EmailSystem, emailNotifier)

	err = notificationManager.RegisterNotification(EmailConfirmationNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Confirm Your Email Address",
		Html:    loadTemplate("templates/email/email_confirmation.html"),
	})
	if err != nil {
		return nil, err
	}

	err = notificationManager.RegisterNotification(ForgotPasswordNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Password Reset Request",
		Html:    loadTemplate("templates/email/forgot_password.html"),
	})
	if err != nil {
		return nil, err
	}

	return notificationManager, nil
}
