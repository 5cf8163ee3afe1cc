package tui

import "github.com/bilgisen/newsfeed/internal/syncer"

// SnapshotMsg carries a new controller snapshot.
type SnapshotMsg struct {
	Snapshot syncer.Snapshot
}

// SubscriptionClosedMsg is sent once the controller stops publishing.
type SubscriptionClosedMsg struct{}

// ActionResultMsg reports the outcome of a user action sent to the controller.
type ActionResultMsg struct {
	Action string
	Err    error
}
