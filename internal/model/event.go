package model

// Channel event names.
const (
	EventInitialUsers    = "initialUsers"
	EventUserAdded       = "userAdded"
	EventPresenceUpdated = "presenceUpdated"
	EventAnnounceLogin   = "announceLogin"
	EventRefreshUsers    = "refreshUsers"
)

type AnnounceLoginParams struct {
	UserID UserID `json:"userId"`
	Token  string `json:"token,omitempty"`
}
