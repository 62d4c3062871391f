package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	loc := Resolve("stockholm")
	assert.InDelta(t, 59.33, loc.Lat, 1e-9)
	assert.InDelta(t, 18.07, loc.Lon, 1e-9)
	assert.Equal(t, "Europe/Stockholm", loc.Timezone)

	// case and whitespace insensitive
	assert.Equal(t, "lulea", Resolve("  LULEA ").Name)

	// unknown falls back to Stockholm
	fallback := Resolve("narnia")
	assert.Equal(t, "stockholm", fallback.Name)
}

func TestValidRegion(t *testing.T) {
	for _, r := range []string{"SE1", "SE2", "SE3", "SE4"} {
		assert.True(t, ValidRegion(r))
	}
	assert.False(t, ValidRegion("SE5"))
	assert.False(t, ValidRegion("se3"))
	assert.False(t, ValidRegion(""))
}
