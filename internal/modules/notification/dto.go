package notification

const (
	SkippedOptedOut = "opted_out"

	defaultSubject = "Notification from UW Resource Finder"
	defaultBody    = "This is a notification from UW Resource Finder."
)

// SendRequest names the recipient. Subject and message fall back to a
// generic notification when empty.
type SendRequest struct {
	Email   string `json:"email" binding:"required,email,max=254"`
	Subject string `json:"subject" binding:"omitempty,max=200"`
	Message string `json:"message" binding:"omitempty,max=5000"`
}

type SendResult struct {
	Sent    bool   `json:"sent"`
	Skipped string `json:"skipped,omitempty"`
}
