package utils

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"campusfinder/internal/domain"
)

func TestCoordinatesRoundTrip(t *testing.T) {
	in := &domain.Coordinates{Lat: 47.6553, Lng: -122.3035}

	out := JSONToCoordinates(CoordinatesToJSON(in))
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("coordinates mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONToCoordinates_Absent(t *testing.T) {
	assert.Nil(t, CoordinatesToJSON(nil))
	assert.Nil(t, JSONToCoordinates(nil))
	assert.Nil(t, JSONToCoordinates([]byte("null")))
	assert.Nil(t, JSONToCoordinates([]byte("{broken")))
}

func TestParseCoordinates(t *testing.T) {
	c, err := ParseCoordinates(`{"lat": 47.65, "lng": -122.30}`)
	assert.NoError(t, err)
	assert.Equal(t, &domain.Coordinates{Lat: 47.65, Lng: -122.30}, c)

	c, err = ParseCoordinates("  ")
	assert.NoError(t, err)
	assert.Nil(t, c)

	_, err = ParseCoordinates("47.6,-122.3")
	assert.Error(t, err)
}
