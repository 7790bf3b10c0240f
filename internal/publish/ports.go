package publish

import (
	"context"

	"github.com/dexlab-run/mintscan/internal/domain"
)

// PublishHook observes terminal outcomes. A paper or live trader plugs
// in here without the pipeline knowing anything about order flow.
type PublishHook interface {
	// OnPublish fires after a token clears the gates and the score
	// threshold, cooldown notwithstanding.
	OnPublish(ctx context.Context, s *domain.Summary)
	// OnRug fires when a published token trips the liquidity-drop alert.
	OnRug(ctx context.Context, mint string)
}

// TraderView is the read side exposed over the /trading endpoint.
type TraderView interface {
	Snapshot() []Position
	Len() int
}

var _ TraderView = (*PositionBook)(nil)

// EventArchiver receives every event record for long-term storage.
// Implementations must not block the dispatch path.
type EventArchiver interface {
	ArchiveEvent(ctx context.Context, rec domain.EventRecord)
}
