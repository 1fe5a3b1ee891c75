package middleware

// Notifier delivers plain text notices to a chat
type Notifier interface {
	Send(chatID int64, text string, markup interface{}) error
}
