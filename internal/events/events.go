package events

import (
	"context"
	"time"

	"github.com/yungbote/kinview-backend/internal/person"
)

const (
	PersonUpdated  = "person.updated"
	SessionClosed  = "session.closed"
	SubjectChanged = "session.subject_changed"
)

type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	PersonID  person.ID `json:"person_id,omitempty"`
	Richness  []string  `json:"richness,omitempty"`
	At        time.Time `json:"at"`
}

// Bus fans session events out to subscribers. Delivery is best-effort: a
// slow subscriber misses events instead of blocking publishers.
type Bus interface {
	Publish(ctx context.Context, e Event) error
	// Subscribe returns a channel of events for one session. The channel is
	// closed after cancel is called or ctx ends.
	Subscribe(ctx context.Context, sessionID string) (ch <-chan Event, cancel func(), err error)
	Close() error
}

const subscriberBuffer = 64
