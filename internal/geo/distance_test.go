package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineMeters(t *testing.T) {
	// Stuttgart to Munich is roughly 190km.
	d := HaversineMeters(48.7758, 9.1829, 48.1351, 11.5820)
	assert.InDelta(t, 190000, d, 5000)

	assert.InDelta(t, 0, HaversineMeters(48.7, 9.18, 48.7, 9.18), 0.001)

	// One thousandth of a degree of latitude is about 111m.
	assert.InDelta(t, 111.2, HaversineMeters(48.0, 9.0, 48.001, 9.0), 0.5)
}

func TestHaversineMeters_Symmetric(t *testing.T) {
	a := HaversineMeters(48.70, 9.18, 48.7015, 9.1810)
	b := HaversineMeters(48.7015, 9.1810, 48.70, 9.18)
	assert.InDelta(t, a, b, 1e-9)
	assert.Less(t, a, 200.0)
}
