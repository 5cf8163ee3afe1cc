package syncer

import (
	"time"

	"github.com/bilgisen/newsfeed/internal/models"
)

// Phase is the controller's sync state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseFetching Phase = "fetching"
	PhaseCached   Phase = "cached"
)

// Snapshot is an immutable view of the controller state handed to renderers.
type Snapshot struct {
	Phase    Phase                   `json:"phase"`
	Articles []models.DisplayArticle `json:"articles"`

	Refreshing bool `json:"refreshing"`
	// ConnectivityKnown is false until the first connectivity report arrives.
	ConnectivityKnown bool `json:"connectivity_known"`
	Connected         bool `json:"connected"`
	OfflineBanner     bool `json:"offline"`
	CacheEnabled      bool `json:"cache_enabled"`

	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   uint64    `json:"version"`
}

// state is owned by the controller loop. Nothing outside Run touches it.
type state struct {
	phase             Phase
	articles          []models.DisplayArticle
	refreshing        bool
	connectivityKnown bool
	connected         bool
	cacheEnabled      bool
	// pendingRefresh marks a reconnect that arrived while a fetch was running.
	pendingRefresh    bool
	lastError         string
	version           uint64
}

func (s *state) snapshot() Snapshot {
	articles := make([]models.DisplayArticle, len(s.articles))
	copy(articles, s.articles)
	return Snapshot{
		Phase:             s.phase,
		Articles:          articles,
		Refreshing:        s.refreshing,
		ConnectivityKnown: s.connectivityKnown,
		Connected:         s.connected,
		OfflineBanner:     s.connectivityKnown && !s.connected,
		CacheEnabled:      s.cacheEnabled,
		LastError:         s.lastError,
		UpdatedAt:         time.Now(),
		Version:           s.version,
	}
}
