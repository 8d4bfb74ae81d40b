package model

import "time"

// Stage names a pipeline step, used in failure reporting.
type Stage string

const (
	StageGathering Stage = "gathering"
	StageBrief     Stage = "brief"
	StageMessaging Stage = "messaging"
)

// Outcome is the terminal result for one prospect. Exactly one of Failure
// being set distinguishes the two variants; every input row produces exactly
// one Outcome.
type Outcome struct {
	Prospect  Prospect         `json:"prospect"`
	Brief     *ProspectBrief   `json:"brief,omitempty"`
	Messaging *MessagingResult `json:"messaging,omitempty"`
	FromCache bool             `json:"from_cache,omitempty"`
	Failure   *Failure         `json:"failure,omitempty"`
}

// Failed reports whether the outcome is the failure variant.
func (o Outcome) Failed() bool {
	return o.Failure != nil
}

// Failure records which stage failed and why.
type Failure struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// CacheEntry is the persisted result of one full pipeline pass for an
// identity. Entries are written whole on success and read whole on lookup;
// the pipeline never mutates one in place.
type CacheEntry struct {
	Key       string           `json:"key"` // normalized website
	Prospect  Prospect         `json:"prospect"`
	Bundle    *ContextBundle   `json:"bundle,omitempty"`
	Brief     *ProspectBrief   `json:"brief,omitempty"`
	Messaging *MessagingResult `json:"messaging,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Complete reports whether the entry carries a full downstream result and can
// satisfy a cache hit without re-running any stage.
func (e *CacheEntry) Complete() bool {
	return e != nil && e.Brief != nil && e.Messaging != nil
}

// RunStatus tracks a batch run's lifecycle.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one batch execution recorded in the store.
type Run struct {
	ID          string    `json:"id"`
	InputFile   string    `json:"input_file"`
	Total       int       `json:"total"`
	Completed   int       `json:"completed"`
	Failed      int       `json:"failed"`
	Status      RunStatus `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}
