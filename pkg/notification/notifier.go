package notification

// NotificationSystem represents a delivery channel (e.g., email).
type NotificationSystem string

// NoticeType represents a kind of notice (e.g., "email_confirmation").
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"
)

// NotificationData carries the recipient and template data for one notice.
type NotificationData struct {
	To   string            // Recipient identifier (e.g., email address)
	Data map[string]string // Template data (e.g., token link)
}

// NoticeTemplate holds the renderable content registered for a notice.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
