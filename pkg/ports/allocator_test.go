package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/aviary/errors"
	"github.com/grovetools/aviary/pkg/models"
)

func sessionWithRange(start, end int) *models.Session {
	return &models.Session{PortRange: models.PortRange{Start: start, End: end}}
}

func TestCalculatePortRange(t *testing.T) {
	a := NewAllocator(10, 100)

	assert.Equal(t, models.PortRange{Start: 3000, End: 3009}, a.CalculatePortRange(3000, 0))
	assert.Equal(t, models.PortRange{Start: 3010, End: 3019}, a.CalculatePortRange(3000, 1))
	assert.Equal(t, models.PortRange{Start: 3050, End: 3059}, a.CalculatePortRange(3000, 5))
}

func TestAllocateFirstWindow(t *testing.T) {
	a := NewAllocator(10, 100)

	r, err := a.AllocatePortRange(nil, 3000)
	require.NoError(t, err)
	assert.Equal(t, models.PortRange{Start: 3000, End: 3009}, r)
}

func TestAllocateSkipsOccupiedWindows(t *testing.T) {
	a := NewAllocator(10, 100)

	existing := []*models.Session{
		sessionWithRange(3000, 3009),
		sessionWithRange(3010, 3019),
	}

	r, err := a.AllocatePortRange(existing, 3000)
	require.NoError(t, err)
	assert.Equal(t, models.PortRange{Start: 3020, End: 3029}, r)
}

func TestAllocateSkipsPartialOverlap(t *testing.T) {
	a := NewAllocator(10, 100)

	// A foreign range straddling two windows blocks both.
	existing := []*models.Session{sessionWithRange(3005, 3014)}

	r, err := a.AllocatePortRange(existing, 3000)
	require.NoError(t, err)
	assert.Equal(t, models.PortRange{Start: 3020, End: 3029}, r)
}

func TestSequentialAllocationsAreDisjoint(t *testing.T) {
	a := NewAllocator(10, 100)

	var sessions []*models.Session
	var ranges []models.PortRange
	for i := 0; i < 20; i++ {
		r, err := a.AllocatePortRange(sessions, 3000)
		require.NoError(t, err)
		ranges = append(ranges, r)
		sessions = append(sessions, sessionWithRange(r.Start, r.End))
	}

	for i := range ranges {
		for j := i + 1; j < len(ranges); j++ {
			assert.False(t, ranges[i].Overlaps(ranges[j]),
				"ranges %s and %s must be disjoint", ranges[i], ranges[j])
		}
	}
}

func TestAllocateExhaustion(t *testing.T) {
	a := NewAllocator(10, 3)

	existing := []*models.Session{
		sessionWithRange(3000, 3009),
		sessionWithRange(3010, 3019),
		sessionWithRange(3020, 3029),
	}

	_, err := a.AllocatePortRange(existing, 3000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodePortExhausted))
}

func TestAllocateStopsAtPortCeiling(t *testing.T) {
	a := NewAllocator(100, 1000)

	_, err := a.AllocatePortRange(nil, 65500)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodePortExhausted))
}

func TestIsPortRangeAvailable(t *testing.T) {
	existing := []*models.Session{sessionWithRange(3000, 3009)}

	assert.False(t, IsPortRangeAvailable(models.PortRange{Start: 3000, End: 3009}, existing))
	assert.False(t, IsPortRangeAvailable(models.PortRange{Start: 3009, End: 3018}, existing))
	assert.True(t, IsPortRangeAvailable(models.PortRange{Start: 3010, End: 3019}, existing))
	assert.True(t, IsPortRangeAvailable(models.PortRange{Start: 2990, End: 2999}, existing))
}
