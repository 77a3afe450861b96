package extract

import (
	"strconv"
	"strings"
)

// child returns the first of keys under m that holds an object.
func child(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if v, ok := m[k].(map[string]any); ok {
			return v
		}
	}
	return nil
}

// dig follows a path of object keys.
func dig(m map[string]any, path ...string) map[string]any {
	for _, k := range path {
		if m == nil {
			return nil
		}
		m = child(m, k)
	}
	return m
}

// text returns the first non-empty scalar under keys as a string.
func text(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// number returns the first numeric value under keys. Numeric strings count.
func number(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func coordinates(g map[string]any, latKeys, lonKeys []string) (float64, float64, bool) {
	if g == nil {
		return 0, 0, false
	}
	lat, okLat := number(g, latKeys...)
	lon, okLon := number(g, lonKeys...)
	return lat, lon, okLat && okLon
}
