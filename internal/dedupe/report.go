package dedupe

const (
	KeepReasonAdmin      = "admin"
	KeepReasonMostRecent = "most_recent"
)

type DeleteFailure struct {
	ID  string `json:"id"`
	Err string `json:"error"`
}

// GroupResult records the outcome for one normalized-email group that held
// more than one record.
type GroupResult struct {
	Email      string          `json:"email"`
	Size       int             `json:"size"`
	KeptID     string          `json:"keptId"`
	KeepReason string          `json:"keepReason"`
	RemovedIDs []string        `json:"removedIds,omitempty"`
	Failures   []DeleteFailure `json:"failures,omitempty"`
}

type Report struct {
	RunID   string        `json:"runId"`
	DryRun  bool          `json:"dryRun"`
	Scanned int           `json:"scanned"`
	Groups  []GroupResult `json:"groups,omitempty"`
	// Deleted counts records actually removed; a dry run reports its
	// selections under WouldDelete instead.
	Deleted     int `json:"deleted"`
	WouldDelete int `json:"wouldDelete,omitempty"`
	Failed      int `json:"failed"`
}
