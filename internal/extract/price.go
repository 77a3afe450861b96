package extract

import (
	"regexp"
	"strings"

	"github.com/klanavo/klanavo/internal/model"
	"github.com/klanavo/klanavo/internal/price"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	jsonPriceRe  = regexp.MustCompile(`(?i)"price":"([^"]+)"`)
	euroAmountRe = regexp.MustCompile(`([0-9][0-9\., ]* ?€)`)
)

// fromPrice finds the asking price text. Normalisation happens downstream.
func fromPrice(p *page, r *model.ExtractionResult) {
	if r.PriceText != "" {
		return
	}

	if v := p.doc.Find("#viewad-price").First().Text(); price.IsNegotiable(v) {
		r.PriceText = strings.TrimSpace(whitespaceRe.ReplaceAllString(v, " "))
		return
	}
	if m := jsonPriceRe.FindStringSubmatch(p.raw); m != nil {
		r.PriceText = strings.TrimSpace(m[1])
		return
	}
	if v := p.meta(`meta[property="product:price:amount"]`); v != "" {
		r.PriceText = v
		return
	}
	if m := euroAmountRe.FindStringSubmatch(p.raw); m != nil {
		r.PriceText = strings.TrimSpace(m[1])
	}
}
