// Package datexpr parses the relative and absolute date expressions accepted
// as filter values on date fields, e.g. "today", "-2 weeks", "3 days ago",
// "next monday", "first day of last month" or "2024-03-15 +1 day".
package datexpr

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/jinzhu/now"
)

// CanonicalLayout is the form resolved date values are written in.
const CanonicalLayout = "2006-01-02 15:04:05"

var ErrUnrecognized = errors.New("datexpr: expression not recognized")

var (
	numberToken = regexp.MustCompile(`^([+-]?)(\d+)([a-z]*)$`)
	clockToken  = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?(am|pm)?$`)
	hourToken   = regexp.MustCompile(`^(\d{1,2})(am|pm)$`)
	yearToken   = regexp.MustCompile(`^\d{4}$`)
)

type unit int

const (
	unitSecond unit = iota
	unitMinute
	unitHour
	unitDay
	unitWeek
	unitFortnight
	unitMonth
	unitYear
)

var units = map[string]unit{
	"sec": unitSecond, "secs": unitSecond, "second": unitSecond, "seconds": unitSecond,
	"min": unitMinute, "mins": unitMinute, "minute": unitMinute, "minutes": unitMinute,
	"hour": unitHour, "hours": unitHour,
	"day": unitDay, "days": unitDay,
	"week": unitWeek, "weeks": unitWeek,
	"fortnight": unitFortnight, "fortnights": unitFortnight,
	"month": unitMonth, "months": unitMonth,
	"year": unitYear, "years": unitYear,
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// Parse resolves expr against the reference time ref. The result is in
// ref's location.
func Parse(expr string, ref time.Time) (time.Time, error) {
	raw := strings.Fields(strings.TrimSpace(expr))
	if len(raw) == 0 {
		return time.Time{}, ErrUnrecognized
	}
	lower := make([]string, len(raw))
	for i, tok := range raw {
		lower[i] = strings.ToLower(strings.TrimSuffix(tok, ","))
	}

	if t, err := applyRelative(ref, lower); err == nil {
		return t, nil
	}

	loc := ref.Location()
	for k := absolutePrefixLimit(lower); k > 0; k-- {
		base, err := dateparse.ParseIn(strings.Join(raw[:k], " "), loc)
		if err != nil {
			continue
		}
		if t, err := applyRelative(base.In(loc), lower[k:]); err == nil {
			return t, nil
		}
	}

	return time.Time{}, ErrUnrecognized
}

// absolutePrefixLimit bounds the tokens handed to dateparse. It accepts some
// absolute date plus offset strings whole and misreads them, so the absolute
// part ends before the first relative token.
func absolutePrefixLimit(toks []string) int {
	for i, tok := range toks {
		if isRelativeToken(tok) {
			return i
		}
		if i+1 < len(toks) && numberToken.MatchString(tok) && isUnit(toks[i+1]) {
			return i
		}
	}
	return len(toks)
}

func isRelativeToken(tok string) bool {
	switch tok {
	case "ago", "next", "last", "previous", "this":
		return true
	}
	if isUnit(tok) {
		return true
	}
	m := numberToken.FindStringSubmatch(tok)
	if m == nil {
		return false
	}
	return m[1] != "" || isUnit(m[3])
}

func isUnit(tok string) bool {
	_, ok := units[tok]
	return ok
}

// Format parses expr and writes the result in CanonicalLayout.
func Format(expr string, ref time.Time) (string, error) {
	t, err := Parse(expr, ref)
	if err != nil {
		return "", err
	}
	return t.Format(CanonicalLayout), nil
}

type offset struct {
	unit unit
	n    int
}

type parser struct {
	t       time.Time
	toks    []string
	pos     int
	pending []offset
}

func applyRelative(base time.Time, toks []string) (time.Time, error) {
	p := &parser{t: base, toks: toks}
	for p.pos < len(p.toks) {
		if err := p.step(); err != nil {
			return time.Time{}, err
		}
	}
	p.flush(false)
	return p.t, nil
}

func (p *parser) peek(offset int) string {
	if p.pos+offset < len(p.toks) {
		return p.toks[p.pos+offset]
	}
	return ""
}

func (p *parser) step() error {
	tok := p.toks[p.pos]

	switch tok {
	case "now":
		p.pos++
		return nil
	case "today", "midnight":
		p.t = now.With(p.t).BeginningOfDay()
		p.pos++
		return nil
	case "noon":
		p.t = now.With(p.t).BeginningOfDay().Add(12 * time.Hour)
		p.pos++
		return nil
	case "yesterday":
		p.t = now.With(p.t).BeginningOfDay().AddDate(0, 0, -1)
		p.pos++
		return nil
	case "tomorrow":
		p.t = now.With(p.t).BeginningOfDay().AddDate(0, 0, 1)
		p.pos++
		return nil
	case "ago":
		if len(p.pending) == 0 {
			return ErrUnrecognized
		}
		p.flush(true)
		p.pos++
		return nil
	case "first", "last":
		if p.peek(1) == "day" && p.peek(2) == "of" {
			return p.dayOf(tok == "first")
		}
	}

	switch tok {
	case "next", "last", "previous", "this":
		return p.relativeWord(tok)
	}

	if wd, ok := weekdays[tok]; ok {
		p.t = nearestWeekday(p.t, wd, 0)
		p.pos++
		return nil
	}

	if mo, ok := months[tok]; ok {
		day := now.With(p.t).BeginningOfDay()
		p.t = time.Date(day.Year(), mo, day.Day(), 0, 0, 0, 0, day.Location())
		p.pos++
		return nil
	}

	if h, m, s, ok := parseClock(tok); ok {
		y, mo, d := p.t.Date()
		p.t = time.Date(y, mo, d, h, m, s, 0, p.t.Location())
		p.pos++
		return nil
	}

	if m := numberToken.FindStringSubmatch(tok); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return ErrUnrecognized
		}
		if m[1] == "-" {
			n = -n
		}
		unitName := m[3]
		p.pos++
		if unitName == "" {
			unitName = p.peek(0)
			p.pos++
		}
		u, ok := units[unitName]
		if !ok {
			return ErrUnrecognized
		}
		p.pending = append(p.pending, offset{unit: u, n: n})
		return nil
	}

	return ErrUnrecognized
}

func (p *parser) flush(negate bool) {
	for _, o := range p.pending {
		n := o.n
		if negate {
			n = -n
		}
		p.t = addUnit(p.t, o.unit, n)
	}
	p.pending = p.pending[:0]
}

func (p *parser) relativeWord(word string) error {
	target := p.peek(1)
	n := 1
	switch word {
	case "last", "previous":
		n = -1
	case "this":
		n = 0
	}

	if wd, ok := weekdays[target]; ok {
		p.t = nearestWeekday(p.t, wd, n)
		p.pos += 2
		return nil
	}
	if u, ok := units[target]; ok {
		p.pending = append(p.pending, offset{unit: u, n: n})
		p.pos += 2
		return nil
	}
	return ErrUnrecognized
}

// dayOf handles "first|last day of" followed by a month reference. Any other
// tail is applied first and the day is then picked in the resulting month.
func (p *parser) dayOf(first bool) error {
	p.pos += 3

	anchor := p.t
	keepClock := true

	switch word := p.peek(0); {
	case (word == "next" || word == "last" || word == "previous" || word == "this") && isMonthUnit(p.peek(1)):
		delta := map[string]int{"next": 1, "last": -1, "previous": -1, "this": 0}[word]
		anchor = now.With(anchor).BeginningOfMonth().AddDate(0, delta, 0)
		p.pos += 2
	case months[word] != 0:
		year := anchor.Year()
		p.pos++
		if y := p.peek(0); yearToken.MatchString(y) {
			year, _ = strconv.Atoi(y)
			p.pos++
		}
		anchor = time.Date(year, months[word], 1, 0, 0, 0, 0, anchor.Location())
		keepClock = false
	default:
		for p.pos < len(p.toks) {
			if err := p.step(); err != nil {
				return err
			}
		}
		p.flush(false)
		anchor = p.t
	}

	var day time.Time
	if first {
		day = now.With(anchor).BeginningOfMonth()
	} else {
		day = now.With(now.With(anchor).EndOfMonth()).BeginningOfDay()
	}

	if keepClock {
		h, m, s := p.t.Clock()
		day = time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, day.Location())
	}
	p.t = day
	return nil
}

func isMonthUnit(tok string) bool {
	return tok == "month"
}

// nearestWeekday returns midnight of weekday wd. dir 0 includes today, 1 is
// strictly after today and -1 strictly before.
func nearestWeekday(t time.Time, wd time.Weekday, dir int) time.Time {
	day := now.With(t).BeginningOfDay()
	diff := (int(wd) - int(day.Weekday()) + 7) % 7

	switch dir {
	case 1:
		if diff == 0 {
			diff = 7
		}
	case -1:
		diff -= 7
		if diff == 0 {
			diff = -7
		}
	}
	return day.AddDate(0, 0, diff)
}

func addUnit(t time.Time, u unit, n int) time.Time {
	switch u {
	case unitSecond:
		return t.Add(time.Duration(n) * time.Second)
	case unitMinute:
		return t.Add(time.Duration(n) * time.Minute)
	case unitHour:
		return t.Add(time.Duration(n) * time.Hour)
	case unitDay:
		return t.AddDate(0, 0, n)
	case unitWeek:
		return t.AddDate(0, 0, 7*n)
	case unitFortnight:
		return t.AddDate(0, 0, 14*n)
	case unitMonth:
		return t.AddDate(0, n, 0)
	default:
		return t.AddDate(n, 0, 0)
	}
}

func parseClock(tok string) (h, m, s int, ok bool) {
	var meridiem string
	if mm := clockToken.FindStringSubmatch(tok); mm != nil {
		h, _ = strconv.Atoi(mm[1])
		m, _ = strconv.Atoi(mm[2])
		if mm[3] != "" {
			s, _ = strconv.Atoi(mm[3])
		}
		meridiem = mm[4]
	} else if mm := hourToken.FindStringSubmatch(tok); mm != nil {
		h, _ = strconv.Atoi(mm[1])
		meridiem = mm[2]
	} else {
		return 0, 0, 0, false
	}

	switch meridiem {
	case "am":
		if h < 1 || h > 12 {
			return 0, 0, 0, false
		}
		if h == 12 {
			h = 0
		}
	case "pm":
		if h < 1 || h > 12 {
			return 0, 0, 0, false
		}
		if h != 12 {
			h += 12
		}
	}

	if h > 23 || m > 59 || s > 59 {
		return 0, 0, 0, false
	}
	return h, m, s, true
}
