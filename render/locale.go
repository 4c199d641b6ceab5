package render

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/vigie-covid/vigie/schema"
)

var frPrinter = message.NewPrinter(language.French)

var frDays = [...]string{
	"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi",
}

var frMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// FormatDayLong renders a day the way the reports display it,
// e.g. "mardi 9 mars 2024".
func FormatDayLong(t time.Time) string {
	return frDays[int(t.Weekday())] + " " +
		strconv.Itoa(t.Day()) + " " +
		frMonths[int(t.Month())-1] + " " +
		strconv.Itoa(t.Year())
}

// FormatPercent renders a coverage value with the locale decimal comma,
// e.g. "91,3%".
func FormatPercent(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1) + "%"
}

// FormatCount renders an absolute count with locale digit grouping.
func FormatCount(v float64) string {
	return frPrinter.Sprintf("%d", int64(v))
}

// FormatSigned renders a delta with an explicit sign, e.g. "+12".
func FormatSigned(v float64) string {
	if v >= 0 {
		return "+" + FormatCount(v)
	}
	return FormatCount(v)
}

// FormatValue picks the percentage or count formatting per the report
// configuration.
func FormatValue(cfg schema.RenderConfig, v float64) string {
	if cfg.Percent {
		return FormatPercent(v)
	}
	return FormatCount(v)
}
