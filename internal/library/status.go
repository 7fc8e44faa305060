package library

// Status is the availability of a library as seen by its caller. It is
// owned by the backend and must be queried again before each decision.
type Status int

const (
	StatusReadWrite Status = iota
	StatusReadOnly
	StatusUnauthorized
	StatusInvalid
	StatusUnavailable
)

// String returns a human-readable representation of the status
func (s Status) String() string {
	switch s {
	case StatusReadWrite:
		return "read-write"
	case StatusReadOnly:
		return "read-only"
	case StatusUnauthorized:
		return "unauthorized"
	case StatusInvalid:
		return "invalid"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// IsReady reports whether stories can at least be read.
func (s Status) IsReady() bool {
	return s == StatusReadWrite || s == StatusReadOnly
}

// IsWritable reports whether mutating operations are permitted.
func (s Status) IsWritable() bool {
	return s == StatusReadWrite
}
