package bot

import (
	"strconv"

	tele "gopkg.in/telebot.v4"
)

// Messenger is the part of the Telegram API the bot calls outside of the
// current update. *tele.Bot and tele.API satisfy it.
type Messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	EditReplyMarkup(msg tele.Editable, markup *tele.ReplyMarkup) (*tele.Message, error)
	StopPoll(msg tele.Editable, opts ...interface{}) (*tele.Poll, error)
	Delete(msg tele.Editable) error
}

// pollMessage addresses a published poll by its stored coordinates.
func pollMessage(chatID int64, messageID int) tele.StoredMessage {
	return tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
}
