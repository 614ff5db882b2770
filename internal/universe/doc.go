// Package universe implements the spatial clustering store behind Gravity Chat.
//
// Every participant occupies an integer point in an unbounded 2D plane.
// Participants within the visibility radius of one another share a cluster,
// and a newcomer that lands far from everyone is pulled next to the nearest
// existing cluster instead of founding a new one. Clusters act as chat rooms
// for the transport layer.
//
// The Store owns both the participant and the cluster collections and
// serializes every operation behind a single mutex. Values returned to
// callers are copies, so nothing outside the package can observe a
// half-applied mutation.
package universe
