// Package extract recovers location, price, image and category details from
// a listing's detail page. Extraction never fails: every strategy that finds
// nothing simply leaves its fields unset.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/klanavo/klanavo/internal/model"
)

// page is a parsed detail page. Strategies read the DOM through doc and fall
// back to regular expressions over raw where markup is not well-formed.
type page struct {
	raw string
	doc *goquery.Document
}

// strategy fills fields of r that are still unset. Strategies run in a fixed
// order so the first one to find a field wins.
type strategy struct {
	name string
	fn   func(p *page, r *model.ExtractionResult)
}

var strategies = []strategy{
	{"meta", fromMeta},
	{"jsonld", fromJSONLD},
	{"state", fromInitialState},
	{"text", fromText},
	{"price", fromPrice},
	{"breadcrumbs", fromBreadcrumbs},
	{"coordinates", fromRawCoordinates},
}

// Extract runs all strategies over markup and returns whatever was found.
func Extract(markup string) (res model.ExtractionResult) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("extract: strategy panicked", zap.Any("panic", r))
		}
	}()

	p := newPage(markup)
	for _, s := range strategies {
		s.fn(p, &res)
	}
	return res
}

func newPage(markup string) *page {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		zap.L().Debug("extract: parse markup", zap.Error(err))
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	return &page{raw: markup, doc: doc}
}

// meta returns the content attribute of the first element matching sel.
func (p *page) meta(sel string) string {
	v, _ := p.doc.Find(sel).First().Attr("content")
	return strings.TrimSpace(v)
}

func (p *page) description() string {
	return p.meta(`meta[property="og:description"], meta[name="description"]`)
}

// bodyText approximates the rendered text of the page body.
func (p *page) bodyText() string {
	body := p.doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	if text := body.Text(); strings.TrimSpace(text) != "" {
		return text
	}
	return p.raw
}

func fromMeta(p *page, r *model.ExtractionResult) {
	if r.Title == "" {
		r.Title = p.meta(`meta[property="og:title"]`)
	}
	if r.Title == "" {
		r.Title = strings.TrimSpace(p.doc.Find("title").First().Text())
	}
	if r.ImageURL == "" {
		r.ImageURL = p.meta(`meta[property="og:image"]`)
	}
}

func fromBreadcrumbs(p *page, r *model.ExtractionResult) {
	if len(r.CategoryPath) > 0 {
		return
	}
	p.doc.Find(".breadcrump-link, .breadcrumb-link").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			r.CategoryPath = append(r.CategoryPath, text)
		}
	})
}

func setPostal(r *model.ExtractionResult, v string) {
	if r.PostalCode == "" {
		r.PostalCode = strings.TrimSpace(v)
	}
}

func setCity(r *model.ExtractionResult, v string) {
	if r.CityText == "" {
		r.CityText = strings.TrimSpace(v)
	}
}

func setPosition(r *model.ExtractionResult, lat, lon float64, ok bool) {
	if r.Position == nil && ok && validPosition(lat, lon) {
		r.Position = &model.Point{Lat: lat, Lon: lon}
	}
}

func validPosition(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
