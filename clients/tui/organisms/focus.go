package organisms

// Focus is the pane receiving key presses.
type Focus int

const (
	FocusInput Focus = iota
	FocusTasks
)

func (f Focus) String() string {
	if f == FocusTasks {
		return "tasks"
	}
	return "chat"
}
