package session

// ValidationError reports malformed create-poll input. It is surfaced to the
// initiating teacher connection only; poll state is unchanged.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// StateConflictError reports an operation that conflicts with current session
// state: answering with no active poll, answering twice, or an out-of-range
// option index. Surfaced to the initiating student only.
type StateConflictError struct {
	Reason string
}

func (e *StateConflictError) Error() string { return e.Reason }

// NotFoundError reports a target that does not exist, e.g. kicking a student
// id with no live connection. Callers treat it as best-effort success.
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string { return e.Reason }
