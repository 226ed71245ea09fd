package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var priceNumber = regexp.MustCompile(`\d[\d.,]*\d|\d`)

// ParsePrice turns a displayed price such as "od 1 299 Kč" or "2.499,90 Kč"
// into a number. Whitespace of any kind is treated as a thousands separator.
// A comma or dot followed by one or two trailing digits is a decimal mark,
// any other comma or dot separates thousands.
func ParsePrice(text string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	number := priceNumber.FindString(cleaned)
	if number == "" {
		return 0, fmt.Errorf("%w in %q", ErrNoPrice, text)
	}

	decimal := decimalSeparator(number)

	var b strings.Builder
	for i := 0; i < len(number); i++ {
		c := number[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == decimal && i == strings.LastIndexByte(number, decimal):
			b.WriteByte('.')
		}
	}

	value, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", text, err)
	}

	return value, nil
}

func decimalSeparator(number string) byte {
	lastComma := strings.LastIndexByte(number, ',')
	lastDot := strings.LastIndexByte(number, '.')

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			return ','
		}
		return '.'
	case lastComma >= 0:
		if strings.Count(number, ",") == 1 && len(number)-lastComma-1 <= 2 {
			return ','
		}
	case lastDot >= 0:
		if strings.Count(number, ".") == 1 && len(number)-lastDot-1 <= 2 {
			return '.'
		}
	}

	return 0
}
