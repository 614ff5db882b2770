package universe

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Store holds participants and clusters and keeps them consistent.
// All methods are safe for concurrent use; each runs under one mutex.
type Store struct {
	mu           sync.Mutex
	participants map[string]*Participant
	clusters     map[string]*cluster
	random       Random
	newID        func() string
	log          *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithRandom sets the source used for spawn and gravity sampling.
func WithRandom(r Random) Option {
	return func(s *Store) {
		if r != nil {
			s.random = r
		}
	}
}

// WithIDGenerator sets the function that names new clusters.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLogger sets the logger used for placement decisions.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		participants: make(map[string]*Participant),
		clusters:     make(map[string]*cluster),
		random:       newDefaultRandom(),
		newID:        uuid.NewString,
		log:          slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddUser places a new participant and assigns it to a cluster.
//
// The participant joins the cluster of the nearest participant within
// VisibilityRadius of its spawn point (lowest ID wins a tie). Failing that it
// is moved next to the nearest cluster center and joins that cluster. With no
// clusters at all it founds a new one. If id is already present the existing
// record is returned and nothing changes.
func (s *Store) AddUser(id, name string) Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.participants[id]; ok {
		s.log.Warn("participant already placed", "participant", id, "cluster", existing.ClusterID)
		return *existing
	}

	// The newcomer counts toward the population that sizes its spawn area.
	radius := SpawnRadius(len(s.participants) + 1)
	p := &Participant{
		ID:   id,
		Name: name,
		Position: Point{
			X: between(s.random, -radius, radius),
			Y: between(s.random, -radius, radius),
		},
	}

	if neighbour, ok := s.nearestParticipant(p.Position); ok {
		s.participants[id] = p
		s.assign(p, neighbour.ClusterID)
		s.log.Debug("participant joined nearby cluster",
			"participant", id, "neighbour", neighbour.ID, "cluster", p.ClusterID)
		return *p
	}

	if target, ok := s.nearestCluster(p.Position); ok {
		p.Position = Point{
			X: target.center.X + between(s.random, gravityMinDX, gravityMaxDX),
			Y: target.center.Y + between(s.random, gravityMinDY, gravityMaxDY),
		}
		s.participants[id] = p
		s.assign(p, target.id)
		s.log.Debug("participant pulled toward cluster", "participant", id, "cluster", target.id)
		return *p
	}

	c := &cluster{
		id:      s.newID(),
		members: []string{id},
		center:  p.Position,
	}
	s.clusters[c.id] = c
	p.ClusterID = c.id
	s.participants[id] = p
	s.log.Debug("participant founded cluster", "participant", id, "cluster", c.id)
	return *p
}

// RemoveUser deletes a participant. Unknown ids are ignored.
func (s *Store) RemoveUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[id]
	if !ok {
		return
	}

	// The cluster is repaired while p is still known so that the center can
	// be recomputed from the remaining members.
	if c, ok := s.clusters[p.ClusterID]; ok {
		c.remove(id)
		s.dropStale(c)
		if len(c.members) == 0 {
			delete(s.clusters, c.id)
			s.log.Debug("cluster dissolved", "cluster", c.id)
		} else {
			s.recenter(c)
		}
	}

	delete(s.participants, id)
}

// GetUser returns a copy of the participant with the given id.
func (s *Store) GetUser(id string) (Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[id]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// GetUserCluster returns the id of the cluster the participant belongs to.
func (s *Store) GetUserCluster(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[id]
	if !ok || p.ClusterID == "" {
		return "", false
	}
	return p.ClusterID, true
}

// GetClusterMembers returns the cluster's members in join order. Member ids
// that no longer name a participant are dropped; a cluster left empty by
// that is deleted and an empty list is returned.
func (s *Store) GetClusterMembers(clusterID string) []Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clusters[clusterID]
	if !ok {
		return []Participant{}
	}

	if s.dropStale(c) {
		if len(c.members) == 0 {
			delete(s.clusters, c.id)
			return []Participant{}
		}
		s.recenter(c)
	}

	return lo.Map(c.members, func(id string, _ int) Participant {
		return *s.participants[id]
	})
}

// Len returns the number of participants.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants)
}

// Snapshot returns a copy of every cluster ordered by id.
func (s *Store) Snapshot() Universe {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := lo.MapToSlice(s.clusters, func(_ string, c *cluster) ClusterView {
		return ClusterView{
			ID:      c.id,
			Center:  c.center,
			Members: append([]string(nil), c.members...),
		}
	})
	slices.SortFunc(views, func(a, b ClusterView) int { return strings.Compare(a.ID, b.ID) })

	return Universe{Population: len(s.participants), Clusters: views}
}

// CheckInvariants reports every inconsistency between participants and
// clusters. It returns nil for a healthy store.
func (s *Store) CheckInvariants() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for id, c := range s.clusters {
		if len(c.members) == 0 {
			errs = append(errs, fmt.Errorf("cluster %s has no members", id))
			continue
		}
		if dup := lo.FindDuplicates(c.members); len(dup) > 0 {
			errs = append(errs, fmt.Errorf("cluster %s lists members twice: %v", id, dup))
		}
		positions := make([]Point, 0, len(c.members))
		for _, m := range c.members {
			p, ok := s.participants[m]
			if !ok {
				errs = append(errs, fmt.Errorf("cluster %s references unknown participant %s", id, m))
				continue
			}
			if p.ClusterID != id {
				errs = append(errs, fmt.Errorf("cluster %s lists %s which belongs to %q", id, m, p.ClusterID))
			}
			positions = append(positions, p.Position)
		}
		if want := centerOf(positions); want != c.center {
			errs = append(errs, fmt.Errorf("cluster %s center %v, want %v", id, c.center, want))
		}
	}
	for id, p := range s.participants {
		c, ok := s.clusters[p.ClusterID]
		if !ok {
			errs = append(errs, fmt.Errorf("participant %s points at missing cluster %q", id, p.ClusterID))
			continue
		}
		if !c.contains(id) {
			errs = append(errs, fmt.Errorf("participant %s missing from cluster %s", id, c.id))
		}
	}
	return errors.Join(errs...)
}

// nearestParticipant finds the closest participant within VisibilityRadius
// of at. Ties go to the lowest id.
func (s *Store) nearestParticipant(at Point) (*Participant, bool) {
	var best *Participant
	bestDist := 0
	for _, p := range s.participants {
		d := Distance(p.Position, at)
		if d > VisibilityRadius {
			continue
		}
		if best == nil || d < bestDist || (d == bestDist && p.ID < best.ID) {
			best, bestDist = p, d
		}
	}
	return best, best != nil
}

// nearestCluster finds the cluster whose center is closest to at. Ties go to
// the lowest cluster id.
func (s *Store) nearestCluster(at Point) (*cluster, bool) {
	var best *cluster
	bestDist := 0
	for _, c := range s.clusters {
		d := Distance(c.center, at)
		if best == nil || d < bestDist || (d == bestDist && c.id < best.id) {
			best, bestDist = c, d
		}
	}
	return best, best != nil
}

// assign adds p to an existing cluster and recomputes its center.
// p must already be in s.participants.
func (s *Store) assign(p *Participant, clusterID string) {
	c := s.clusters[clusterID]
	if !c.contains(p.ID) {
		c.members = append(c.members, p.ID)
	}
	p.ClusterID = clusterID
	s.dropStale(c)
	s.recenter(c)
}

// dropStale removes member ids with no participant record and reports
// whether anything was removed.
func (s *Store) dropStale(c *cluster) bool {
	before := len(c.members)
	c.members = lo.Filter(c.members, func(id string, _ int) bool {
		_, ok := s.participants[id]
		return ok
	})
	if dropped := before - len(c.members); dropped > 0 {
		s.log.Warn("dropped stale cluster members", "cluster", c.id, "count", dropped)
		return true
	}
	return false
}

func (s *Store) recenter(c *cluster) {
	c.center = centerOf(lo.Map(c.members, func(id string, _ int) Point {
		return s.participants[id].Position
	}))
}
