package flow

// Error is a recoverable flow failure identified by a stable code.
type Error struct {
	code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Code returns the machine readable code logged as err_code.
func (e *Error) Code() string { return e.code }

var (
	// ErrNoActiveSession: the user has no session; the action is ignored.
	ErrNoActiveSession = &Error{code: "NO_ACTIVE_SESSION", msg: "no active session"}
	// ErrInsufficientSelection: fewer than two dates were selected.
	ErrInsufficientSelection = &Error{code: "INSUFFICIENT_SELECTION", msg: "at least two dates are required"}
	// ErrTooManyOptions: more dates than a poll can hold.
	ErrTooManyOptions = &Error{code: "TOO_MANY_OPTIONS", msg: "too many dates for one poll"}
	// ErrEmptyTitle: the submitted title is blank.
	ErrEmptyTitle = &Error{code: "EMPTY_TITLE", msg: "poll title is empty"}
	// ErrNotAwaitingTitle: free text arrived while no title was requested.
	ErrNotAwaitingTitle = &Error{code: "NOT_AWAITING_TITLE", msg: "no poll title was requested"}
	// ErrPublishInProgress: a title for this session is already being published.
	ErrPublishInProgress = &Error{code: "PUBLISH_IN_PROGRESS", msg: "poll is already being published"}
	// ErrInvalidDate: a toggle carried a malformed date.
	ErrInvalidDate = &Error{code: "INVALID_DATE", msg: "invalid date"}
)
