package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

const answeredKey = "cb_answered"

// ParseCallbackData parses Telebot's \f<unique>|<payload> encoding.
// Returns unique and payload (may be empty).
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	return SplitData(cb.Data)
}

// SplitData splits raw callback data into unique and payload parts.
func SplitData(raw string) (string, string) {
	raw = strings.TrimPrefix(raw, "\f")
	unique, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// CallbackKey returns cb.Unique if present; otherwise parses from Data.
func CallbackKey(c tele.Context) string {
	k, _ := ParseCallbackData(c.Callback())
	return k
}

// Respond answers the callback query once and marks it as answered so the
// router does not send an empty acknowledgement afterwards.
func Respond(c tele.Context, resp ...*tele.CallbackResponse) error {
	if c.Callback() == nil || Answered(c) {
		return nil
	}
	c.Set(answeredKey, true)
	return c.Respond(resp...)
}

// Notify answers the callback with a transient notice shown to the user.
func Notify(c tele.Context, text string) error {
	return Respond(c, &tele.CallbackResponse{Text: text})
}

// Answered reports whether the callback was already answered in this update.
func Answered(c tele.Context) bool {
	v, _ := c.Get(answeredKey).(bool)
	return v
}
