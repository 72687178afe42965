package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeCredentialShared = "credential.shared"
	EventTypeShareRedeemed    = "share.redeemed"
	EventTypeShareConsumed    = "share.consumed"
)

// Share target kinds.
const (
	TargetEmail      = "email"
	TargetDepartment = "department"
)

type CredentialSharedEvent struct {
	BaseEvent
	CredentialID string `json:"credential_id"`
	ShareTokenID string `json:"share_token_id"`
	OwnerID      string `json:"owner_id"`
	Target       string `json:"target"`
	Recipients   int    `json:"recipients"`
	Notified     int    `json:"notified"`
	Reissued     bool   `json:"reissued"`
}

func NewCredentialSharedEvent(credentialID, shareTokenID, ownerID, target string, recipients, notified int, reissued bool) *CredentialSharedEvent {
	return &CredentialSharedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeCredentialShared,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"credential_id":  credentialID,
				"share_token_id": shareTokenID,
				"owner_id":       ownerID,
				"target":         target,
				"recipients":     recipients,
				"notified":       notified,
				"reissued":       reissued,
			},
		},
		CredentialID: credentialID,
		ShareTokenID: shareTokenID,
		OwnerID:      ownerID,
		Target:       target,
		Recipients:   recipients,
		Notified:     notified,
		Reissued:     reissued,
	}
}

// ShareRedeemedEvent fires on every successful redemption, including repeat department reads.
type ShareRedeemedEvent struct {
	BaseEvent
	ShareTokenID string `json:"share_token_id"`
	CredentialID string `json:"credential_id"`
	UserID       string `json:"user_id"`
	Target       string `json:"target"`
	Accessed     int    `json:"accessed"`
	Members      int    `json:"members"`
}

func NewShareRedeemedEvent(shareTokenID, credentialID, userID, target string, accessed, members int) *ShareRedeemedEvent {
	return &ShareRedeemedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeShareRedeemed,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"share_token_id": shareTokenID,
				"credential_id":  credentialID,
				"user_id":        userID,
				"target":         target,
				"accessed":       accessed,
				"members":        members,
			},
		},
		ShareTokenID: shareTokenID,
		CredentialID: credentialID,
		UserID:       userID,
		Target:       target,
		Accessed:     accessed,
		Members:      members,
	}
}

// ShareConsumedEvent fires once, when a token flips to accessed.
type ShareConsumedEvent struct {
	BaseEvent
	ShareTokenID string `json:"share_token_id"`
	CredentialID string `json:"credential_id"`
	Target       string `json:"target"`
}

func NewShareConsumedEvent(shareTokenID, credentialID, target string) *ShareConsumedEvent {
	return &ShareConsumedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeShareConsumed,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"share_token_id": shareTokenID,
				"credential_id":  credentialID,
				"target":         target,
			},
		},
		ShareTokenID: shareTokenID,
		CredentialID: credentialID,
		Target:       target,
	}
}

// RegisterAuditLog writes one structured audit line per share lifecycle event.
func RegisterAuditLog(bus *EventBus, logger *slog.Logger) {
	audit := logger.With("component", "audit")
	handler := func(ctx context.Context, event Event) error {
		attrs := []any{"event_type", event.EventType(), "event_id", event.EventID(), "occurred_at", event.OccurredAt()}
		if data, ok := event.Payload().(map[string]interface{}); ok {
			for k, v := range data {
				attrs = append(attrs, k, v)
			}
		}
		audit.InfoContext(ctx, "share lifecycle", attrs...)
		return nil
	}
	for _, t := range []string{EventTypeCredentialShared, EventTypeShareRedeemed, EventTypeShareConsumed} {
		bus.Subscribe(t, handler)
	}
}
