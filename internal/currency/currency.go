// Package currency converts integer minor-unit amounts to locale-formatted
// strings and back. Amounts stay integral end to end; decimals only appear
// at the display boundary.
package currency

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	xcurrency "golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var ErrNotAnAmount = errors.New("string contains no numeric amount")

var symbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"JPY": "¥",
}

// Format renders a minor-unit amount using the currency's implied decimal
// digits and the locale's separators, e.g. Format(4000, "EUR", es) -> "40,00 €".
func Format(amount int64, code string, tag language.Tag) (string, error) {
	unit, err := xcurrency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("unknown currency %q: %w", code, err)
	}
	scale, _ := xcurrency.Standard.Rounding(unit)

	// The integer and fraction parts are formatted separately; a float64
	// round trip cannot represent amounts past 2^53 minor units.
	units := amount
	var frac int64
	if scale > 0 {
		div := int64(1)
		for range scale {
			div *= 10
		}
		units = amount / div
		if frac = amount % div; frac < 0 {
			frac = -frac
		}
	}

	p := message.NewPrinter(tag)
	num := p.Sprintf("%v", number.Decimal(units))
	if amount < 0 && units == 0 && !strings.HasPrefix(num, "-") {
		num = "-" + num
	}
	if scale > 0 {
		_, dec := separators(tag)
		num += string(dec) + fmt.Sprintf("%0*d", scale, frac)
	}

	sym, ok := symbols[unit.String()]
	if !ok {
		sym = unit.String()
	}

	sign := ""
	if strings.HasPrefix(num, "-") {
		sign, num = "-", num[1:]
	}

	// Locales writing decimals with a comma put the symbol after the
	// amount; the rest put it in front.
	if _, dec := separators(tag); dec == ',' {
		return sign + num + " " + sym, nil
	}
	if !ok {
		return sign + sym + " " + num, nil
	}
	return sign + sym + num, nil
}

// Parse is the inverse of Format: it reads a locale-formatted amount back
// into minor units. Currency symbols and spacing are ignored; group and
// decimal separators are interpreted per the locale.
func Parse(s, code string, tag language.Tag) (int64, error) {
	unit, err := xcurrency.ParseISO(code)
	if err != nil {
		return 0, fmt.Errorf("unknown currency %q: %w", code, err)
	}
	scale, _ := xcurrency.Standard.Rounding(unit)
	group, dec := separators(tag)

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == dec:
			b.WriteRune('.')
		case r == group:
			// group separators carry no value
		}
	}
	if b.Len() == 0 {
		return 0, ErrNotAnAmount
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}

	shifted := d.Shift(int32(scale))
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %q exceeds %d decimal digits for %s", s, scale, unit)
	}
	return shifted.IntPart(), nil
}

var sepCache sync.Map // language.Tag -> [2]rune{group, decimal}

// separators derives the locale's group and decimal separators by
// formatting a sentinel number, so they always agree with what Format
// produced.
func separators(tag language.Tag) (group, dec rune) {
	if v, ok := sepCache.Load(tag); ok {
		s := v.([2]rune)
		return s[0], s[1]
	}

	group, dec = ',', '.'
	formatted := message.NewPrinter(tag).Sprintf("%v", number.Decimal(11111.1, number.Scale(1)))
	runes := []rune(formatted)
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] >= '0' && runes[i] <= '9' {
			continue
		}
		dec = runes[i]
		for j := i - 1; j >= 0; j-- {
			if runes[j] < '0' || runes[j] > '9' {
				group = runes[j]
				break
			}
		}
		break
	}

	sepCache.Store(tag, [2]rune{group, dec})
	return group, dec
}
