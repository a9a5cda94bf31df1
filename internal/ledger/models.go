package ledger

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an episode row.
type Status string

const (
	StatusPending      Status = "pending"
	StatusDownloading  Status = "downloading"
	StatusTranscribing Status = "transcribing"
	StatusAligning     Status = "aligning"
	StatusNaming       Status = "naming"
	StatusExporting    Status = "exporting"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusDownloading,
	StatusTranscribing,
	StatusAligning,
	StatusNaming,
	StatusExporting,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// inFlightStatuses lists the stages between pending and a terminal state, in
// pipeline order.
var inFlightStatuses = []Status{
	StatusDownloading,
	StatusTranscribing,
	StatusAligning,
	StatusNaming,
	StatusExporting,
}

var processingStatuses = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(inFlightStatuses))
	for _, status := range inFlightStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Episode is one per-episode bookkeeping row. Rows are keyed by
// (podcast, episode_guid) and survive across runs; artifact presence on
// disk, not row status, decides whether an episode is reprocessed.
type Episode struct {
	ID           int64
	RunID        string
	Podcast      string
	EpisodeGUID  string
	Title        string
	Identifier   string
	AudioURL     string
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Run records one batch invocation and its outcome counts.
type Run struct {
	ID         int64
	RunID      string
	Mode       string
	StartedAt  time.Time
	FinishedAt *time.Time
	Processed  int
	Skipped    int
	Failed     int
}

// Summary aggregates episode counts for the key lifecycle states.
type Summary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsProcessing returns true when the row reflects an in-flight stage.
func (e Episode) IsProcessing() bool {
	return IsProcessingStatus(e.Status)
}
