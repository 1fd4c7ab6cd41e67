// Package chatstore defines the persistent conversation history store.
package chatstore

import (
	"context"

	"github.com/aqua777/docqa/schema"
)

// ConversationStore persists question/answer turns keyed by session.
type ConversationStore interface {
	// AppendTurn stores one completed turn.
	AppendTurn(ctx context.Context, turn schema.ConversationTurn) error

	// RecentTurns returns the latest limit turns of a session, oldest
	// first, so they can be prepended to a prompt in conversation order.
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]schema.ConversationTurn, error)

	// SessionHistory returns every turn of a session, oldest first.
	SessionHistory(ctx context.Context, sessionID string) ([]schema.ConversationTurn, error)

	// ClearSession removes all turns of a session. Clearing an unknown
	// session is not an error.
	ClearSession(ctx context.Context, sessionID string) error
}
