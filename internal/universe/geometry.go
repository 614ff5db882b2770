package universe

import "math"

const (
	// VisibilityRadius is the distance under which a newcomer joins an
	// existing participant's cluster directly.
	VisibilityRadius = 150

	gravityMinDX = -120
	gravityMaxDX = -60
	gravityMinDY = 60
	gravityMaxDY = 120
)

// Distance returns the Euclidean distance between a and b truncated toward
// zero. Distance((0,0),(1,1)) is 1.
func Distance(a, b Point) int {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	return int(math.Sqrt(dx*dx + dy*dy))
}

// SpawnRadius returns the half-width of the square new participants are
// sampled from, given the number of participants already present.
func SpawnRadius(population int) int {
	switch {
	case population < 5:
		return 200
	case population < 15:
		return 500
	case population < 50:
		return 1000
	default:
		return 2000
	}
}

// centerOf is the componentwise mean of points, truncated toward zero.
func centerOf(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var sx, sy int64
	for _, p := range points {
		sx += int64(p.X)
		sy += int64(p.Y)
	}
	n := int64(len(points))
	return Point{X: int(sx / n), Y: int(sy / n)}
}
