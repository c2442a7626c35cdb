// Package dates parses the loosely written dates found in scrim tracking
// sheets ("3/1", "March 3", "Mon 3rd March 2025", "2025-03-01").
//
// Convention: ambiguous numeric dates are read month first, so "03/04" is
// March 4. When the first number cannot be a month ("13/04", "25.12.2024")
// the date is read day first. A date written without a year takes the year
// of the reference time passed by the caller. Bare integers (other than an
// 8-digit YYYYMMDD) and times of day are never dates.
package dates

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ISOLayout is the calendar date layout used throughout the cleaned table.
const ISOLayout = "2006-01-02"

// ErrNotADate is returned for text that carries no recognizable date.
var ErrNotADate = errors.New("not a date")

var (
	hasDigit    = regexp.MustCompile(`\d`)
	bareInt     = regexp.MustCompile(`^\d+$`)
	hasYear     = regexp.MustCompile(`(^|\D)\d{4}(\D|$)`)
	slashNoYear = regexp.MustCompile(`^\d{1,2}[/.\-]\d{1,2}$`)
	ordinal     = regexp.MustCompile(`(?i)^(\d{1,2})(st|nd|rd|th)$`)
	numericDMY  = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{2}|\d{4})$`)
	timeOfDay   = regexp.MustCompile(`(?i)^\d{1,2}:\d{2}(:\d{2})?\s*([ap]\.?m\.?)?$`)
)

var monthNames = map[string]bool{
	"jan": true, "january": true, "feb": true, "february": true, "mar": true, "march": true,
	"apr": true, "april": true, "may": true, "jun": true, "june": true, "jul": true, "july": true,
	"aug": true, "august": true, "sep": true, "sept": true, "september": true, "oct": true,
	"october": true, "nov": true, "november": true, "dec": true, "december": true,
}

// Parse reads s as a calendar date. ref supplies the year when s has none.
// Words that are neither numbers nor month names are ignored, so
// "Scrims vs Team X - March 3" still parses.
func Parse(s string, ref time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || !hasDigit.MatchString(s) {
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrNotADate)
	}
	if (bareInt.MatchString(s) && len(s) != 8) || timeOfDay.MatchString(s) {
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrNotADate)
	}
	fuzzy := fuzzyTokens(s)
	if fuzzy == "" {
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrNotADate)
	}

	if t, err := parseWithYear(s, ref); err == nil && t.Year() > 0 {
		return t, nil
	}
	if fuzzy == s {
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrNotADate)
	}
	t, err := parseWithYear(fuzzy, ref)
	if err != nil || t.Year() == 0 {
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrNotADate)
	}
	return t, nil
}

// ISO parses s and formats it as YYYY-MM-DD.
func ISO(s string, ref time.Time) (string, error) {
	t, err := Parse(s, ref)
	if err != nil {
		return "", err
	}
	return t.Format(ISOLayout), nil
}

// parseWithYear tries s as written, then with the reference year appended
// when s does not carry a four-digit year.
func parseWithYear(s string, ref time.Time) (time.Time, error) {
	if !hasYear.MatchString(s) {
		year := strconv.Itoa(ref.Year())
		var candidate string
		if slashNoYear.MatchString(s) {
			sep := s[strings.IndexAny(s, "/.-")]
			candidate = s + string(sep) + year
		} else {
			candidate = s + ", " + year
		}
		if t, err := parseAny(candidate); err == nil {
			return t, nil
		}
	}
	return parseAny(s)
}

func parseAny(s string) (t time.Time, err error) {
	// dateparse indexes past the end of some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			t, err = time.Time{}, fmt.Errorf("%q: %w", s, ErrNotADate)
		}
	}()
	t, err = dateparse.ParseIn(s, time.UTC, dateparse.RetryAmbiguousDateWithSwap(true))
	if err != nil {
		if alt, ok := numericFallback(s); ok {
			return parseAny(alt)
		}
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// numericFallback rewrites a numeric date with any separator in the
// month-first slash form dateparse reads ("25.12.2024" becomes "12/25/2024",
// "03-04-24" becomes "03/04/24"). Day and month are swapped only when the
// first number cannot be a month.
func numericFallback(s string) (string, bool) {
	m := numericDMY.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	var out string
	switch {
	case first >= 1 && first <= 12:
		out = m[1] + "/" + m[2] + "/" + m[3]
	case second >= 1 && second <= 12:
		out = m[2] + "/" + m[1] + "/" + m[3]
	default:
		return "", false
	}
	if out == s {
		return "", false
	}
	return out, true
}

// fuzzyTokens keeps only the tokens that can belong to a date: numbers,
// numeric date fragments and month names. Ordinal suffixes are dropped.
func fuzzyTokens(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '(' || r == ')' || r == '|' || r == ':'
	})
	var keep []string
	for _, f := range fields {
		if m := ordinal.FindStringSubmatch(f); m != nil {
			keep = append(keep, m[1])
			continue
		}
		lower := strings.ToLower(strings.TrimSuffix(f, "."))
		switch {
		case monthNames[lower]:
			keep = append(keep, lower)
		case hasDigit.MatchString(f) && strings.IndexFunc(f, isLetter) < 0:
			keep = append(keep, f)
		}
	}
	if len(keep) == 0 {
		return ""
	}
	if len(keep) == 1 && bareInt.MatchString(keep[0]) && len(keep[0]) != 8 {
		return ""
	}
	// "3 march" reads more reliably month first.
	if len(keep) == 2 && bareInt.MatchString(keep[0]) && monthNames[keep[1]] {
		keep[0], keep[1] = keep[1], keep[0]
	}
	return strings.Join(keep, " ")
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
