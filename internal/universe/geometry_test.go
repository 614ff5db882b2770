package universe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want int
	}{
		{"same point", Point{0, 0}, Point{0, 0}, 0},
		{"pythagorean triple", Point{0, 0}, Point{3, 4}, 5},
		{"diagonal truncates", Point{0, 0}, Point{1, 1}, 1},
		{"negative coordinates", Point{-3, -4}, Point{0, 0}, 5},
		{"just inside visibility", Point{0, 0}, Point{106, 106}, 149},
		{"truncation keeps boundary", Point{0, 0}, Point{150, 1}, 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Distance(tt.a, tt.b))
			require.Equal(t, tt.want, Distance(tt.b, tt.a), "distance must be symmetric")
		})
	}
}

func TestSpawnRadius(t *testing.T) {
	tests := []struct {
		population int
		want       int
	}{
		{0, 200},
		{4, 200},
		{5, 500},
		{14, 500},
		{15, 1000},
		{49, 1000},
		{50, 2000},
		{10000, 2000},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, SpawnRadius(tt.population), "population %d", tt.population)
	}
}

func TestCenterOfTruncatesTowardZero(t *testing.T) {
	require.Equal(t, Point{}, centerOf(nil))
	require.Equal(t, Point{X: 1, Y: -1}, centerOf([]Point{{0, 0}, {3, -3}}))
	require.Equal(t, Point{X: -2, Y: 2}, centerOf([]Point{{-1, 1}, {-4, 4}}))
}

func TestBetweenIsInclusive(t *testing.T) {
	low := &scriptedRandom{values: []int{0}}
	high := &scriptedRandom{values: []int{240}}

	require.Equal(t, -120, between(low, -120, -60))
	require.Equal(t, 120, between(high, -120, 120))
	require.Equal(t, []int{61}, low.asked)
	require.Equal(t, 7, between(high, 7, 7))
}
