package run

import (
	"context"
	"strings"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/klanavo/klanavo/internal/extract"
	"github.com/klanavo/klanavo/internal/geo"
	"github.com/klanavo/klanavo/internal/model"
	"github.com/klanavo/klanavo/internal/price"
)

// enrich turns one raw listing into an EnrichedListing. Fetch, extraction and
// geocoding failures degrade the listing instead of failing the run. The
// second return value is false when ctx was cancelled mid-listing, in which
// case the partial result must not be committed.
func (o *Orchestrator) enrich(ctx context.Context, log *zap.Logger, raw model.RawListing, route *geom.LineString) (model.EnrichedListing, bool) {
	log = log.With(zap.String("url", raw.URL))

	var ext model.ExtractionResult
	if raw.URL != "" {
		markup, err := o.pages.Fetch(ctx, raw.URL)
		switch {
		case ctx.Err() != nil:
			return model.EnrichedListing{}, false
		case err != nil:
			log.Warn("run: fetch listing page", zap.Error(err))
		default:
			ext = extract.Extract(markup)
		}
	}

	out := model.EnrichedListing{
		URL:          raw.URL,
		Title:        firstNonEmpty(ext.Title, raw.Title),
		ImageURL:     ext.ImageURL,
		CategoryPath: ext.CategoryPath,
		Category:     model.CategoryOf(ext.CategoryPath),
	}

	priceText := firstNonEmpty(ext.PriceText, raw.PriceText)
	out.PriceDisplay = price.Format(priceText)
	out.PriceValue = price.ParseValue(priceText)

	postal := firstNonEmpty(ext.PostalCode, strings.TrimSpace(raw.PostalCode))
	city := strings.TrimSpace(ext.CityText)
	out.PostalCode = postal

	pos, ok := o.locate(ctx, log, ext.Position, postal, city, raw)
	if !ok {
		return model.EnrichedListing{}, false
	}
	out.Position = pos
	out.Label = labelFor(postal, city, raw.Label)

	if pos != nil {
		if d, ok := geo.DistanceToRoute(route, pos.Lat, pos.Lon); ok {
			out.RouteDistanceM = &d
		}
	}
	return out, true
}

// locate applies the coordinate precedence: embedded position, postal code
// geocode, city geocode, then the listing's route sample. A nil position
// means the listing stays unmapped.
func (o *Orchestrator) locate(ctx context.Context, log *zap.Logger, embedded *model.Point, postal, city string, raw model.RawListing) (*model.Point, bool) {
	if embedded != nil {
		return embedded, true
	}

	if postal != "" {
		res, err := o.geocoder.ResolvePostal(ctx, postal)
		switch {
		case ctx.Err() != nil:
			return nil, false
		case err != nil:
			log.Warn("run: geocode postal code", zap.String("postal_code", postal), zap.Error(err))
		case res.Position != nil:
			return res.Position, true
		}
	}

	if city != "" {
		res, err := o.geocoder.ResolveText(ctx, city)
		switch {
		case ctx.Err() != nil:
			return nil, false
		case err != nil:
			log.Warn("run: geocode city", zap.String("city", city), zap.Error(err))
		case res.Position != nil:
			return res.Position, true
		}
	}

	if p := raw.RoutePosition(); p != nil {
		log.Debug("run: using route sample position")
		return p, true
	}
	return nil, true
}

// labelFor picks the display label: postal and city, city, postal, then the
// backend's label.
func labelFor(postal, city, rawLabel string) string {
	switch {
	case postal != "" && city != "":
		return postal + " " + city
	case city != "":
		return city
	case postal != "":
		return postal
	case strings.TrimSpace(rawLabel) != "":
		return strings.TrimSpace(rawLabel)
	default:
		return "?"
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
