package cashcount

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cadPrinter = message.NewPrinter(language.MustParse("en-CA"))

// FormatCAD renders cents the way en-CA formats CAD, e.g. "-$5.00" or
// "$1,234.50".
func FormatCAD(cents int64) string {
	d := decimal.New(cents, -2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole := d.IntPart()
	frac := d.Sub(decimal.NewFromInt(whole)).Shift(2).IntPart()
	return sign + "$" + cadPrinter.Sprintf("%d", whole) + fmt.Sprintf(".%02d", frac)
}

// ParseCAD converts a dollar amount such as "12.5", "-3" or "$1,020.75" to
// cents. More than two decimal places is an error.
func ParseCAD(s string) (int64, error) {
	clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if !d.Equal(d.Round(2)) {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	return d.Shift(2).IntPart(), nil
}

// Initials returns the upper-cased first letters of the given names.
func Initials(first, last string) string {
	var b strings.Builder
	for _, n := range []string{first, last} {
		for _, r := range strings.TrimSpace(n) {
			b.WriteRune(unicode.ToUpper(r))
			break
		}
	}
	if b.Len() == 0 {
		return placeholder
	}
	return b.String()
}

const placeholder = "—"
