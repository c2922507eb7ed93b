// Package action defines the typed user actions the bot reacts to and their
// encoding as inline button data.
package action

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/datepoll/core/telegram/callbacks"
)

// Button keys registered with the callback router.
const (
	KeyNoop       = "noop"
	KeyNavigate   = "nav"
	KeyToggleDate = "day"
	KeyCreatePoll = "create_poll"
	KeyTallyPoll  = "poll_tally"
	KeyCancelPoll = "poll_cancel"
)

// DateLayout is the wire and storage format of a calendar day.
const DateLayout = "2006-01-02"

const sep = "|"

var (
	// ErrUnknownKey is returned by Decode for keys no action uses.
	ErrUnknownKey = errors.New("action: unknown key")
	// ErrBadPayload is returned by Decode when the payload does not parse.
	ErrBadPayload = errors.New("action: malformed payload")
	// ErrNotButton is returned by Encode for actions that never travel as button data.
	ErrNotButton = errors.New("action: not a button action")
)

// Action is one of the concrete action types below.
type Action interface {
	isAction()
}

// Noop is attached to inert cells (header, weekdays, blanks).
type Noop struct{}

// Navigate moves the calendar to Year/Month. Month is 0-based and may be one
// step outside 0..11.
type Navigate struct {
	Year  int
	Month int
}

// ToggleDate flips a YYYY-MM-DD date in the selection.
type ToggleDate struct {
	Date string
}

// CreatePoll asks for a title for the current selection.
type CreatePoll struct{}

// SubmitTitle carries free text typed while a title is expected.
type SubmitTitle struct {
	Text string
}

// Reset drops the caller's session.
type Reset struct{}

// GetID reports the current chat id.
type GetID struct{}

// TallyPoll closes a published poll and posts its results.
type TallyPoll struct {
	PollID string
}

// CancelPoll deletes a published poll.
type CancelPoll struct {
	PollID string
}

func (Noop) isAction()        {}
func (Navigate) isAction()    {}
func (ToggleDate) isAction()  {}
func (CreatePoll) isAction()  {}
func (SubmitTitle) isAction() {}
func (Reset) isAction()       {}
func (GetID) isAction()       {}
func (TallyPoll) isAction()   {}
func (CancelPoll) isAction()  {}

// Keys lists every button key Decode understands.
func Keys() []string {
	return []string{KeyNoop, KeyNavigate, KeyToggleDate, KeyCreatePoll, KeyTallyPoll, KeyCancelPoll}
}

// Encode returns the button key and payload for a.
func Encode(a Action) (key, payload string, err error) {
	switch v := a.(type) {
	case Noop:
		return KeyNoop, "", nil
	case Navigate:
		return KeyNavigate, strconv.Itoa(v.Year) + sep + strconv.Itoa(v.Month), nil
	case ToggleDate:
		return KeyToggleDate, v.Date, nil
	case CreatePoll:
		return KeyCreatePoll, "", nil
	case TallyPoll:
		return KeyTallyPoll, v.PollID, nil
	case CancelPoll:
		return KeyCancelPoll, v.PollID, nil
	default:
		return "", "", fmt.Errorf("%w: %T", ErrNotButton, a)
	}
}

// Decode parses button data back into an action.
func Decode(key, payload string) (Action, error) {
	switch key {
	case KeyNoop:
		return Noop{}, nil
	case KeyNavigate:
		y, m, err := callbacks.TwoInts(payload, sep)
		if err != nil {
			return nil, fmt.Errorf("%w: nav %q", ErrBadPayload, payload)
		}
		return Navigate{Year: y, Month: m}, nil
	case KeyToggleDate:
		if _, err := time.Parse(DateLayout, payload); err != nil {
			return nil, fmt.Errorf("%w: date %q", ErrBadPayload, payload)
		}
		return ToggleDate{Date: payload}, nil
	case KeyCreatePoll:
		return CreatePoll{}, nil
	case KeyTallyPoll, KeyCancelPoll:
		id := strings.TrimSpace(payload)
		if id == "" {
			return nil, fmt.Errorf("%w: empty poll id", ErrBadPayload)
		}
		if key == KeyTallyPoll {
			return TallyPoll{PollID: id}, nil
		}
		return CancelPoll{PollID: id}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}
