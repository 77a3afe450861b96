package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/klanavo/klanavo/internal/model"
)

const stateMarker = "__INITIAL_STATE__"

// fromInitialState reads the application state object some pages embed in
// an inline script.
func fromInitialState(p *page, r *model.ExtractionResult) {
	if r.PostalCode != "" && r.CityText != "" && r.Position != nil {
		return
	}
	p.doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		src := s.Text()
		i := strings.Index(src, stateMarker)
		if i < 0 {
			return
		}
		literal, ok := balancedObject(src, i+len(stateMarker))
		if !ok {
			return
		}
		var st map[string]any
		if err := json.Unmarshal([]byte(literal), &st); err != nil {
			return
		}
		applyState(st, r)
	})
}

func applyState(st map[string]any, r *model.ExtractionResult) {
	a := dig(st, "ad", "adAddress")
	if a == nil {
		a = dig(st, "adInfo", "address")
	}
	if a == nil {
		a = dig(st, "adData", "address")
	}
	if a == nil {
		return
	}
	setPostal(r, text(a, "postalCode", "postcode", "zipCode"))
	setCity(r, text(a, "city", "town", "addressLocality"))

	lat, lon, ok := coordinates(child(a, "geo", "coordinates", "location"),
		[]string{"lat", "latitude"}, []string{"lon", "lng", "longitude"})
	setPosition(r, lat, lon, ok)
}

// balancedObject returns the first complete {...} literal at or after from,
// honouring braces inside quoted strings.
func balancedObject(s string, from int) (string, bool) {
	start := strings.IndexByte(s[from:], '{')
	if start < 0 {
		return "", false
	}
	start += from

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
