// Package calendar renders a month as a grid of inline buttons and keeps the
// date selection model behind it.
package calendar

import (
	"strconv"
	"time"

	"github.com/m3rciful/datepoll/internal/action"
)

// Labels used on the grid.
const (
	HeaderPrefix    = "📅 "
	SelectedMarker  = "✅"
	TodayMarker     = "🔹"
	BlankLabel      = " "
	CreatePollLabel = "📊 Создать опрос"
	PrevMonthLabel  = "◀️"
	NextMonthLabel  = "▶️"
	MinPollOptions  = 2
	daysInWeek      = 7
)

// Cell is a single button. Inert cells carry action.Noop.
type Cell struct {
	Label  string
	Action action.Action
}

// Inert reports whether pressing the cell does nothing.
func (c Cell) Inert() bool {
	_, ok := c.Action.(action.Noop)
	return ok
}

// Grid is the rendered month: header, weekdays, weeks, optional create-poll
// row and the navigation row.
type Grid struct {
	Cursor Cursor
	Rows   [][]Cell
}

// DayCells counts cells that toggle a date.
func (g Grid) DayCells() int {
	n := 0
	for _, row := range g.Rows {
		for _, c := range row {
			if _, ok := c.Action.(action.ToggleDate); ok {
				n++
			}
		}
	}
	return n
}

// HasCreatePoll reports whether the create-poll row is present.
func (g Grid) HasCreatePoll() bool {
	for _, row := range g.Rows {
		for _, c := range row {
			if _, ok := c.Action.(action.CreatePoll); ok {
				return true
			}
		}
	}
	return false
}

// Renderer builds grids. It is stateless and safe for concurrent use.
type Renderer struct {
	format Formatter
	clock  Clock
}

// NewRenderer returns a renderer; a nil clock uses SystemClock.
func NewRenderer(format Formatter, clock Clock) *Renderer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Renderer{format: format, clock: clock}
}

// Render builds the grid for a normalized month with selected dates marked.
// Navigation cells carry raw month-1 and month+1 targets; callers normalize.
func (r *Renderer) Render(year, month int, selected Selection) (Grid, error) {
	cur := Cursor{Year: year, Month: month}
	if !cur.Valid() {
		return Grid{}, ErrMonthOutOfRange
	}

	noop := action.Noop{}
	rows := make([][]Cell, 0, 10)
	rows = append(rows, []Cell{{Label: HeaderPrefix + r.format.MonthTitle(cur), Action: noop}})

	names := r.format.Weekdays()
	weekdays := make([]Cell, daysInWeek)
	for i, n := range names {
		weekdays[i] = Cell{Label: n, Action: noop}
	}
	rows = append(rows, weekdays)

	today := r.clock.Now().Format(action.DateLayout)
	first := cur.First(time.UTC)
	last := cur.DaysIn()

	week := make([]Cell, 0, daysInWeek)
	for i := 0; i < isoWeekday(first)-1; i++ {
		week = append(week, Cell{Label: BlankLabel, Action: noop})
	}
	for d := 1; d <= last; d++ {
		day := first.AddDate(0, 0, d-1)
		date := day.Format(action.DateLayout)
		label := strconv.Itoa(d)
		switch {
		case selected.Has(date):
			label = SelectedMarker + label
		case date == today:
			label = TodayMarker + label
		}
		week = append(week, Cell{Label: label, Action: action.ToggleDate{Date: date}})

		if isoWeekday(day) == daysInWeek || d == last {
			for len(week) < daysInWeek {
				week = append(week, Cell{Label: BlankLabel, Action: noop})
			}
			rows = append(rows, week)
			week = make([]Cell, 0, daysInWeek)
		}
	}

	if selected.Len() >= MinPollOptions {
		rows = append(rows, []Cell{{Label: CreatePollLabel, Action: action.CreatePoll{}}})
	}
	prev, next := cur.Prev(), cur.Next()
	rows = append(rows, []Cell{
		{Label: PrevMonthLabel, Action: action.Navigate{Year: prev.Year, Month: prev.Month}},
		{Label: NextMonthLabel, Action: action.Navigate{Year: next.Year, Month: next.Month}},
	})

	return Grid{Cursor: cur, Rows: rows}, nil
}

// isoWeekday maps Monday..Sunday to 1..7.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return daysInWeek
	}
	return wd
}
