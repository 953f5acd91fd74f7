package domain

// NoticeLevel is the severity a notice is rendered with.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// NoticeAuthRequired is the stable key of the "please sign in" notice shown
// by the guard and the protected action dispatcher.
const NoticeAuthRequired = "auth-required"

// Notice is a user-facing notification waiting to be rendered.
type Notice struct {
	Key     string      `json:"key"`
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}
