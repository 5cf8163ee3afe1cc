package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bilgisen/newsfeed/internal/syncer"
)

const actionTimeout = 5 * time.Second

// waitForSnapshot blocks on the subscription until the next snapshot arrives.
func waitForSnapshot(snapshots <-chan syncer.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-snapshots
		if !ok {
			return SubscriptionClosedMsg{}
		}
		return SnapshotMsg{Snapshot: snap}
	}
}

func refresh(ctrl Controller) tea.Cmd {
	return runAction("refresh", ctrl.Refresh)
}

func clearCache(ctrl Controller) tea.Cmd {
	return runAction("clear", ctrl.ClearCache)
}

func setCacheEnabled(ctrl Controller, enabled bool) tea.Cmd {
	return runAction("toggle", func(ctx context.Context) error {
		return ctrl.SetCacheEnabled(ctx, enabled)
	})
}

func runAction(action string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return ActionResultMsg{Action: action, Err: fn(ctx)}
	}
}
