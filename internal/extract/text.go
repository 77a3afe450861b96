package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/klanavo/klanavo/internal/model"
)

const placeChars = `A-Za-zÄÖÜäöüß .'-`

var (
	descPlaceRe   = regexp.MustCompile(`(\d{5})\s+[` + placeChars + `]{1,80}`)
	hyphenSplitRe = regexp.MustCompile(`\s+-\s+|-`)
	postalPlaceRe = regexp.MustCompile(`(\d{5})[^-]{0,50}-\s*([` + placeChars + `]{2,})`)
	postalKeyRe   = regexp.MustCompile(`(?i)"(?:postalCode|postcode|zip|zipCode|zipcode)"\s*:\s*"?(\d{5})"?`)
	bodyPlaceRe   = regexp.MustCompile(`\b\d{5}[^\n]{0,200}?[-–—]\s*([A-ZÄÖÜ][` + placeChars + `]{1,})`)
	bareCodeRe    = regexp.MustCompile(`\b(\d{5})\b`)
	codePriceRe   = regexp.MustCompile(`(\d{5})[\s/,.-]*€`)
	addressWordRe = regexp.MustCompile(`(?i)(\bplz\b|postleitzahl|postal(?:code)?|adresse|address|standort|ort|stadt|gemeinde|wohnort)`)
	rawLatRe      = regexp.MustCompile(`(?i)"(?:latitude|lat)"\s*:\s*([0-9.+-]+)`)
	rawLonRe      = regexp.MustCompile(`(?i)"(?:longitude|lon|lng)"\s*:\s*([0-9.+-]+)`)
)

// contextWindow is how far around a bare postal code we look for address
// vocabulary.
const contextWindow = 100

// rejected reports whether a place candidate is the word "Anzeige" (listing)
// rather than a place name.
func rejected(candidate string) bool {
	return strings.Contains(strings.ToLower(candidate), "anzeige")
}

func lastSegment(parts []string) string {
	for i := len(parts) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(parts[i]); s != "" {
			return s
		}
	}
	return ""
}

// fromText applies textual heuristics over the description meta tags, the
// markup and the rendered body text.
func fromText(p *page, r *model.ExtractionResult) {
	desc := p.description()

	if r.CityText == "" && desc != "" {
		if m := descPlaceRe.FindStringSubmatch(desc); m != nil {
			setPostal(r, m[1])
			rest := strings.TrimSpace(strings.Replace(m[0], m[1], "", 1))
			parts := hyphenSplitRe.Split(rest, -1)
			if city := strings.TrimSpace(parts[len(parts)-1]); city != "" && !rejected(city) {
				setCity(r, city)
			}
		}
	}

	if r.CityText == "" {
		if loc := p.meta(`meta[property="og:locality"]`); loc != "" {
			parts := strings.Split(loc, "-")
			city := strings.ReplaceAll(strings.TrimSpace(parts[len(parts)-1]), "_", " ")
			if city != "" && !rejected(city) {
				setCity(r, city)
			}
		}
	}

	if (r.CityText == "" || r.PostalCode == "") && desc != "" {
		if m := postalPlaceRe.FindStringSubmatch(desc); m != nil {
			setPostal(r, m[1])
			if city := strings.TrimSpace(m[2]); city != "" && !rejected(city) {
				setCity(r, city)
			}
		}
	}

	if r.PostalCode == "" {
		if m := postalKeyRe.FindStringSubmatch(p.raw); m != nil {
			setPostal(r, m[1])
		}
	}

	if r.CityText == "" {
		if m := bodyPlaceRe.FindStringSubmatch(p.bodyText()); m != nil {
			city := strings.TrimSpace(m[1])
			if strings.Contains(city, "-") {
				city = lastSegment(strings.Split(city, "-"))
			}
			if len([]rune(city)) > 1 && !rejected(city) {
				setCity(r, city)
			}
		}
	}

	if r.PostalCode == "" {
		setPostal(r, postalInContext(p.raw))
	}
}

// postalInContext returns the first free-standing five digit code that sits
// near address vocabulary and is not part of a price.
func postalInContext(raw string) string {
	for _, m := range bareCodeRe.FindAllStringSubmatchIndex(raw, -1) {
		idx, end := m[2], m[3]
		code := raw[idx:end]

		if idx > 0 && isWordOrHyphen(raw[idx-1]) {
			continue
		}
		if end < len(raw) && isWordOrHyphen(raw[end]) {
			continue
		}

		win := raw[max(0, idx-contextWindow):min(len(raw), idx+contextWindow)]
		if looksLikePrice(win, code) || !addressWordRe.MatchString(win) {
			continue
		}
		return code
	}
	return ""
}

func looksLikePrice(win, code string) bool {
	for _, m := range codePriceRe.FindAllStringSubmatch(win, -1) {
		if m[1] == code {
			return true
		}
	}
	return false
}

func isWordOrHyphen(c byte) bool {
	return c == '-' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// fromRawCoordinates is the last resort for coordinates: any latitude and
// longitude keys anywhere in the markup.
func fromRawCoordinates(p *page, r *model.ExtractionResult) {
	if r.Position != nil {
		return
	}
	latM := rawLatRe.FindStringSubmatch(p.raw)
	lonM := rawLonRe.FindStringSubmatch(p.raw)
	if latM == nil || lonM == nil {
		return
	}
	lat, errLat := strconv.ParseFloat(latM[1], 64)
	lon, errLon := strconv.ParseFloat(lonM[1], 64)
	setPosition(r, lat, lon, errLat == nil && errLon == nil)
}
