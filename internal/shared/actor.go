package shared

// Actor identifies who initiated a lifecycle operation. It is threaded
// explicitly into every confirm/revert call instead of being looked up from
// ambient request state.
type Actor struct {
	ID   int64
	Name string
}

// System is the actor recorded for background reconciliation jobs.
var System = Actor{ID: 0, Name: "system"}
