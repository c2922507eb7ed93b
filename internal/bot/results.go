package bot

import (
	"fmt"
	"sort"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Summarize renders a stopped poll as a ranking, most voted first. Options
// with equal votes keep their poll order, which is chronological.
func Summarize(title string, poll *tele.Poll) string {
	var b strings.Builder
	fmt.Fprintf(&b, TextResultsHeader, title)
	if poll == nil || poll.VoterCount == 0 {
		b.WriteString("\n")
		b.WriteString(TextResultsNoVotes)
		return b.String()
	}

	opts := make([]tele.PollOption, len(poll.Options))
	copy(opts, poll.Options)
	sort.SliceStable(opts, func(i, j int) bool {
		return opts[i].VoterCount > opts[j].VoterCount
	})
	for i, o := range opts {
		fmt.Fprintf(&b, "\n%d. %s: %d", i+1, o.Text, o.VoterCount)
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, TextResultsVoters, poll.VoterCount)
	return b.String()
}
