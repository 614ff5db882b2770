// Package server generates the display names handed to connecting clients.
package server

import (
	"fmt"
	"math/rand/v2"

	"github.com/Tyrowin/gravitychat/internal/universe"
)

var (
	namePrefixes   = []string{"neo", "hyper", "sky", "lil", "big", "ghost", "x", "drip", "vibe", "glitch", "omega", "nano", "zero"}
	nameAdjectives = []string{"chill", "savage", "dope", "wavy", "lit", "snazzy", "quirky", "spooky", "rad", "slick", "frosty"}
	nameNouns      = []string{"pixel", "ninja", "panda", "rider", "vortex", "ghost", "comet", "mango", "wizard", "droid", "burrito"}
)

// NameGenerator produces display names for new connections.
type NameGenerator func() string

// NewNameGenerator returns a generator of names like "neo-chillpanda42".
// A nil source uses the global math/rand/v2 generator.
func NewNameGenerator(r universe.Random) NameGenerator {
	intN := rand.IntN
	if r != nil {
		intN = r.IntN
	}
	return func() string {
		return fmt.Sprintf("%s-%s%s%d",
			namePrefixes[intN(len(namePrefixes))],
			nameAdjectives[intN(len(nameAdjectives))],
			nameNouns[intN(len(nameNouns))],
			1+intN(998),
		)
	}
}
