package tui

// stateChangedMsg tells the model to re-read the session state.
type stateChangedMsg struct{}

// actionResultMsg carries the outcome of a session call made off the UI loop.
type actionResultMsg struct {
	op  string
	err error
}
