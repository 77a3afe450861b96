package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/klanavo/klanavo/internal/model"
)

var (
	ldLatKeys = []string{"latitude", "lat"}
	ldLonKeys = []string{"longitude", "lon", "lng"}
)

// fromJSONLD reads schema.org structured data blocks.
func fromJSONLD(p *page, r *model.ExtractionResult) {
	p.doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &data); err != nil {
			return
		}
		walkLD(data, func(obj map[string]any) { applyLD(obj, r) })
	})
}

// walkLD visits every object of a JSON-LD payload, including arrays and
// @graph members.
func walkLD(v any, visit func(map[string]any)) {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			walkLD(item, visit)
		}
	case map[string]any:
		visit(t)
		if graph, ok := t["@graph"].([]any); ok {
			walkLD(graph, visit)
		}
	}
}

func applyLD(obj map[string]any, r *model.ExtractionResult) {
	addr := child(obj, "address")
	if addr == nil {
		addr = dig(obj, "itemOffered", "address")
	}
	if addr == nil {
		addr = dig(obj, "offers", "seller", "address")
	}
	if addr != nil {
		setPostal(r, text(addr, "postalCode", "postcode", "zip"))
		setCity(r, text(addr, "addressLocality", "city", "town"))
	}

	if r.ImageURL == "" {
		switch img := obj["image"].(type) {
		case string:
			r.ImageURL = strings.TrimSpace(img)
		case []any:
			if len(img) > 0 {
				if s, ok := img[0].(string); ok {
					r.ImageURL = strings.TrimSpace(s)
				}
			}
		}
	}

	g := child(obj, "geo", "location")
	if g == nil {
		g = dig(obj, "address", "geo")
	}
	lat, lon, ok := coordinates(g, ldLatKeys, ldLonKeys)
	setPosition(r, lat, lon, ok)
}
