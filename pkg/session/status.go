package session

// Status is the outcome of a session check.
type Status int

const (
	StatusUnknown Status = iota
	StatusChecking
	StatusValid
	StatusRefreshing
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusChecking:
		return "checking"
	case StatusValid:
		return "valid"
	case StatusRefreshing:
		return "refreshing"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}
