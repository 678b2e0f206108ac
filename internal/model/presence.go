package model

const (
	ConnectionTagPending = "online-pending"
	connectionTagOffline = "offline-"
)

// PresenceEntry is the cached, display-only view of a user together with the
// connection it is currently associated with.
type PresenceEntry struct {
	ID       UserID `json:"_id"`
	SocketID string `json:"socketId"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

func NewPresenceEntry(user *User, tag string) PresenceEntry {
	return PresenceEntry{
		ID:       user.ID,
		SocketID: tag,
		Email:    user.Email,
		Name:     user.DisplayName(),
	}
}

func IsOfflineTag(tag string) bool {
	return len(tag) > len(connectionTagOffline) && tag[:len(connectionTagOffline)] == connectionTagOffline
}

func (e PresenceEntry) IsOnline() bool {
	return e.SocketID != ConnectionTagPending && !IsOfflineTag(e.SocketID)
}
