package simplefs

import "fmt"

// Status is the SimpleFS-layer result code, distinct from flash.Status.
// Operations return only this type: a FlashDevice failure met along the
// way is reported as BlockIsNotValid, and the underlying flash.Status
// is not passed on to the caller.
type Status int

const (
	Ok Status = iota
	FileEntryNotFound
	BlockIsNotValid
	InvalidData
)

func (s Status) String() string {
	switch s {
	case Ok:
		return "Ok"
	case FileEntryNotFound:
		return "FileEntryNotFound"
	case BlockIsNotValid:
		return "BlockIsNotValid"
	case InvalidData:
		return "InvalidData"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) Error() string { return s.String() }

func (s Status) IsOk() bool { return s == Ok }
