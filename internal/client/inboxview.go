package client

import (
	"context"
	"encoding/json"
	"time"
)

// RemoteInbox mirrors the server's inbox projection.
type RemoteInbox struct {
	New      []RemoteEntry `json:"new"`
	Later    []RemoteEntry `json:"later"`
	Accepted []RemoteEntry `json:"accepted"`
}

type RemoteEntry struct {
	Proposal RemoteProposal `json:"proposal"`
	Item     RemoteItem     `json:"item"`
}

type RemoteProposal struct {
	ID             string    `json:"id"`
	ItemID         string    `json:"item_id"`
	State          string    `json:"state"`
	CreatedAt      time.Time `json:"created_at"`
	StateChangedAt time.Time `json:"state_changed_at"`
}

type RemoteItem struct {
	ID        string          `json:"id"`
	TribeID   string          `json:"tribe_id"`
	CreatedBy string          `json:"created_by"`
	ItemType  string          `json:"item_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// SyncState distinguishes what the server has confirmed from what is only
// promised by the local journal. The UI renders pending entries differently
// instead of lying about them being settled.
type SyncState string

const (
	SyncConfirmed SyncState = "confirmed"
	SyncPending   SyncState = "pending"
	SyncFailed    SyncState = "failed"
)

// ViewEntry is one inbox row as the user should see it.
type ViewEntry struct {
	Entry RemoteEntry
	// State the proposal will be in once the journal drains, or its server
	// state when no local operation touches it.
	EffectiveState string
	Sync           SyncState
}

type InboxView struct {
	New      []ViewEntry
	Later    []ViewEntry
	Accepted []ViewEntry
}

type InboxFetcher interface {
	GetInbox(ctx context.Context, tribeID string) (*RemoteInbox, error)
}

// BuildInboxView fetches the server inbox and overlays unacknowledged journal
// operations: a locally actioned proposal moves to its target bucket
// immediately, marked pending until the server confirms.
func BuildInboxView(ctx context.Context, api InboxFetcher, journal *Journal, tribeID string) (*InboxView, error) {
	remote, err := api.GetInbox(ctx, tribeID)
	if err != nil {
		return nil, err
	}

	overlays := localTransitions(journal, tribeID)

	view := &InboxView{}
	for _, bucket := range []struct {
		entries []RemoteEntry
	}{{remote.New}, {remote.Later}, {remote.Accepted}} {
		for _, entry := range bucket.entries {
			view.place(entry, overlays)
		}
	}
	return view, nil
}

type overlay struct {
	targetState string
	sync        SyncState
}

func localTransitions(journal *Journal, tribeID string) map[string]overlay {
	overlays := make(map[string]overlay)
	for _, op := range journal.All() {
		if op.Type != OpTransition || op.TribeID != tribeID {
			continue
		}
		sync := SyncPending
		target := stateForAction(op.Action)
		if op.Status == OpStatusFailed {
			sync = SyncFailed
			// A suppressed-item rejection means the user already deleted
			// this item once; surface it as a dismissal, not a failure.
			if op.ErrorCode == "item_suppressed" {
				sync = SyncPending
				target = "dismissed"
			}
		}
		overlays[op.ProposalID] = overlay{
			targetState: target,
			sync:        sync,
		}
	}
	return overlays
}

func stateForAction(action string) string {
	switch action {
	case "accept":
		return "accepted"
	case "not-now":
		return "not_now"
	case "maybe":
		return "maybe"
	case "dismiss":
		return "dismissed"
	default:
		return ""
	}
}

// LocallyDeleted returns the IDs of personal items with an unacknowledged
// delete in the journal. Views hide these immediately instead of waiting for
// the server to confirm.
func LocallyDeleted(journal *Journal) map[string]bool {
	deleted := make(map[string]bool)
	for _, op := range journal.All() {
		if op.Type == OpDeletePersonal && op.Status == OpStatusPending {
			deleted[op.ItemID] = true
		}
	}
	return deleted
}

func (v *InboxView) place(entry RemoteEntry, overlays map[string]overlay) {
	state := entry.Proposal.State
	sync := SyncConfirmed

	if o, ok := overlays[entry.Proposal.ID]; ok && o.targetState != "" {
		if o.sync == SyncFailed {
			// The local action will never apply; show the server's truth
			// but flag the failure.
			sync = SyncFailed
		} else {
			state = o.targetState
			sync = SyncPending
		}
	}

	row := ViewEntry{Entry: entry, EffectiveState: state, Sync: sync}
	switch state {
	case "proposed":
		v.New = append(v.New, row)
	case "not_now", "maybe":
		v.Later = append(v.Later, row)
	case "accepted":
		v.Accepted = append(v.Accepted, row)
	case "dismissed":
		// Locally dismissed entries disappear right away.
	}
}
