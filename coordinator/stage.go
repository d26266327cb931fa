package coordinator

type Stage int

const (
	Idle Stage = iota
	Fetching
	Cleaning
	Inferring
	Succeeded
	Failed
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Cleaning:
		return "cleaning"
	case Inferring:
		return "inferring"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions follow s.
func (s Stage) Terminal() bool {
	return s == Succeeded || s == Failed
}
