// Package price parses and renders the free-text asking prices found on
// listings. Prices use German notation: "." groups thousands, "," separates
// decimals, and a "VB" marker flags the price as negotiable.
package price

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Negotiable is the display value for a missing or unparseable price.
const Negotiable = "VB"

const currency = "€"

var (
	negotiableRe = regexp.MustCompile(`(?i)VB`)
	// leadingNumber matches the numeric prefix of a normalised price, so
	// trailing text such as "50 oder Tausch" still yields 50.
	leadingNumber = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)`)

	printer = message.NewPrinter(language.German)
)

// IsNegotiable reports whether text carries the negotiable marker.
func IsNegotiable(text string) bool {
	return len(markerSpans(text)) > 0
}

// markerSpans returns the byte ranges of standalone "VB" markers. Digits and
// punctuation may touch a marker ("300VB"), letters may not ("DVB-T").
func markerSpans(text string) [][]int {
	var spans [][]int
	for _, loc := range negotiableRe.FindAllStringIndex(text, -1) {
		before, _ := utf8.DecodeLastRuneInString(text[:loc[0]])
		after, _ := utf8.DecodeRuneInString(text[loc[1]:])
		if unicode.IsLetter(before) || unicode.IsLetter(after) {
			continue
		}
		spans = append(spans, loc)
	}
	return spans
}

// ParseValue returns the numeric value of a price text such as
// "1.250,00 € VB". It returns 0 for empty or non-numeric input.
func ParseValue(text string) float64 {
	v, ok := parse(text)
	if !ok {
		return 0
	}
	return v
}

// Format renders a price text for display, e.g. "1.250,00 € VB". Empty or
// unparseable input renders as Negotiable.
func Format(text string) string {
	if strings.TrimSpace(text) == "" {
		return Negotiable
	}
	v, ok := parse(text)
	if !ok {
		return Negotiable
	}
	out := printer.Sprint(number.Decimal(v, number.Scale(2))) + " " + currency
	if IsNegotiable(text) {
		out += " " + Negotiable
	}
	return out
}

func parse(text string) (float64, bool) {
	cleaned := text
	spans := markerSpans(text)
	for i := len(spans) - 1; i >= 0; i-- {
		cleaned = cleaned[:spans[i][0]] + cleaned[spans[i][1]:]
	}
	cleaned = strings.ReplaceAll(cleaned, currency, "")
	cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, "\u00a0", ""))
	if cleaned == "" {
		return 0, false
	}

	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.Replace(cleaned, ",", ".", 1)

	m := leadingNumber.FindString(cleaned)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
