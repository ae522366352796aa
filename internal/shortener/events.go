package shortener

import "time"

// Topics for entry lifecycle events.
const (
	TopicEntryCreated = "entry.created"
	TopicEntryUpdated = "entry.updated"
	TopicEntryDeleted = "entry.deleted"
)

// EntryCreated is published after a new entry is stored.
type EntryCreated struct {
	Code      string     `json:"code"`
	Address   string     `json:"address"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// EntryUpdated is published after an entry's address or expiry changed.
type EntryUpdated struct {
	Code      string     `json:"code"`
	Address   string     `json:"address"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// EntryDeleted is published after an entry is removed from the store.
type EntryDeleted struct {
	Code      string    `json:"code"`
	DeletedAt time.Time `json:"deletedAt"`
}
