package flash

import "fmt"

// Status is the FlashDevice-layer result code. It is distinct from
// simplefs.Status; the two taxonomies are combined only by callers that
// need both (see hostlink and cmd/fdutil).
type Status int

const (
	Ok Status = iota
	CommunicationFail
	Busy
	Timeout
	NotValid
)

func (s Status) String() string {
	switch s {
	case Ok:
		return "Ok"
	case CommunicationFail:
		return "CommunicationFail"
	case Busy:
		return "Busy"
	case Timeout:
		return "Timeout"
	case NotValid:
		return "NotValid"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Error implements error so a Status can be returned and compared
// directly without an extra wrapping type.
func (s Status) Error() string { return s.String() }

// IsOk reports whether s represents success.
func (s Status) IsOk() bool { return s == Ok }
