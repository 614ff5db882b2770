package universe

import "github.com/samber/lo"

// Point is a position in the universe.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Participant is a connected user placed in the universe.
type Participant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Position  Point  `json:"position"`
	ClusterID string `json:"clusterId"`
}

// ClusterView is a read-only copy of a cluster.
type ClusterView struct {
	ID      string   `json:"id"`
	Center  Point    `json:"center"`
	Members []string `json:"members"`
}

// Universe is a consistent copy of the whole store.
type Universe struct {
	Population int           `json:"population"`
	Clusters   []ClusterView `json:"clusters"`
}

// cluster is the internal record. Members keep join order and never repeat.
type cluster struct {
	id      string
	members []string
	center  Point
}

func (c *cluster) contains(id string) bool {
	return lo.Contains(c.members, id)
}

func (c *cluster) remove(id string) {
	c.members = lo.Without(c.members, id)
}
