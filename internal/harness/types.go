package harness

// Trace event types.
const (
	EventNotify = "notify"
	EventCommit = "commit"
	EventRead   = "read"
)

// TraceEvent is one entry of a scenario trace.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Type string `json:"type"` // EventNotify, EventCommit, or EventRead
	Step int    `json:"step"` // 1-based

	// Notify and read events.
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
	Found bool   `json:"found,omitempty"`

	// Commit events.
	Persisted []string `json:"persisted,omitempty"`
	Unchanged []string `json:"unchanged,omitempty"`
	Failed    []string `json:"failed,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains notifications, commits, and reads in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the backing table contents after the last step.
	State map[string]string `json:"state,omitempty"`

	// Writes counts rows written by the store; -1 if the backend cannot
	// report it.
	Writes int `json:"writes"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]string),
		Writes: -1,
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// add appends e with the next sequence number.
func (r *Result) add(e TraceEvent) {
	e.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, e)
}

// Notified returns the keys of every notify event, in order.
func (r *Result) Notified() []string {
	keys := []string{}
	for _, e := range r.Trace {
		if e.Type == EventNotify {
			keys = append(keys, e.Key)
		}
	}
	return keys
}
