package bot

import (
	"fmt"

	"github.com/m3rciful/datepoll/core/telegram/keyboard"
	"github.com/m3rciful/datepoll/internal/action"
	"github.com/m3rciful/datepoll/internal/calendar"

	tele "gopkg.in/telebot.v4"
)

// GridMarkup turns a rendered month into an inline keyboard.
func GridMarkup(g calendar.Grid) (*tele.ReplyMarkup, error) {
	rows := make([][]keyboard.InlineBtn, 0, len(g.Rows))
	for _, row := range g.Rows {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, cell := range row {
			key, payload, err := action.Encode(cell.Action)
			if err != nil {
				return nil, fmt.Errorf("encode %q: %w", cell.Label, err)
			}
			btns = append(btns, keyboard.InlineBtn{Text: cell.Label, Unique: key, Data: payload})
		}
		rows = append(rows, btns)
	}
	return keyboard.InlineButtonsRows(rows...), nil
}

// ManageMarkup is the keyboard posted under a published poll.
func ManageMarkup(pollID string) *tele.ReplyMarkup {
	tallyKey, tallyData, _ := action.Encode(action.TallyPoll{PollID: pollID})
	cancelKey, cancelData, _ := action.Encode(action.CancelPoll{PollID: pollID})

	markup := &tele.ReplyMarkup{}
	tally := markup.Data(TextTallyButton, tallyKey, tallyData)
	cancel := keyboard.CancelButton(markup, cancelKey, cancelData, TextCancelButton)
	markup.Inline(markup.Row(tally, cancel))
	return markup
}
