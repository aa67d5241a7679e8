package astipipeline

type Status uint32

// Must be in order of execution
const (
	StatusCreated Status = iota
	StatusRunning
	StatusPaused
	StatusEnding
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusEnding:
		return "ending"
	default:
		return "done"
	}
}
