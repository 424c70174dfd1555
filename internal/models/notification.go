package models

// Notification kinds understood by the notifications service.
const (
	NotificationKindRegistration = "registration"
	NotificationKindCancellation = "cancellation"
	NotificationKindCheckin      = "checkin"
)

// Notification is a transient user-facing message. It exists only in flight:
// delivered best-effort with bounded retries, then dropped.
type Notification struct {
	Kind      string `json:"kind"`
	Recipient string `json:"recipient"`
	Name      string `json:"name"`
	EventName string `json:"event_name"`
}
