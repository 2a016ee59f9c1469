// Package tpspace implements closed-form parameterized trajectory generators
// used by reactive local planners to reason about obstacles and goals in
// TP-space, the discretized (direction index, normalized distance) space.
package tpspace

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/r2"
)

// PTG is a Parameterized Trajectory Generator, which defines how to map back
// and forth from cartesian space to TP (direction index k plus distance d).
// Forwards queries convert (k, step) to workspace poses; WorldSpaceToTP
// converts a workspace point back to a TP-space coord.
//
// Queries that can fail geometrically report it via an explicit found bool.
// A non-nil error always means a precondition was violated by the caller.
type PTG interface {
	// PathPose returns the trajectory sample along path k at the given step.
	PathPose(k, step uint) (*TrajNode, error)

	// PathDist returns the arclength traveled along path k after the given step.
	PathDist(k, step uint) (float64, error)

	// PathStepCount returns the number of steps along path k before RefDistance is reached.
	PathStepCount(k uint) (uint, error)

	// PathStepForDist returns the step at which path k has traveled dist meters.
	// found is false when no non-negative time reaches dist.
	PathStepForDist(k uint, dist float64) (step uint, found bool, err error)

	// WorldSpaceToTP converts an x, y workspace coord to a k, d TP-space coord,
	// choosing the path of globally minimum arclength through the point.
	// found is false when no discretized path passes near the point.
	WorldSpaceToTP(x, y float64) (k uint, d float64, found bool, err error)

	// IsIntoDomain reports whether a workspace point maps into TP-space at all.
	IsIntoDomain(x, y float64) (bool, error)

	// DirectionToMotionCommand returns the low-level velocity command for path k:
	// [target speed (m/s), direction (rad), ramp time (s), rotational speed (rad/s)].
	DirectionToMotionCommand(k uint) ([]float64, error)

	// UpdateCurrentVelocity sets the robot-local velocity that all queries
	// blend from. The owning planner calls this once per control cycle,
	// before any queries for that cycle.
	UpdateCurrentVelocity(vel Twist2D)

	// UpdateTPObstacle scores an obstacle against every path. Not all PTG
	// variants support this.
	UpdateTPObstacle(ox, oy float64, tpObstacles []float64) error

	// AlphaCount returns the number of discretized paths.
	AlphaCount() uint

	// RefDistance returns the normalization constant converting raw arclength
	// into the [0,1]-scaled distance used in TP-space.
	RefDistance() float64

	// Description returns a short human-readable parameter summary.
	Description() string
}

// TrajNode is a snapshot of a single point in time along a PTG trajectory,
// including the distance along that trajectory and the elapsed time.
type TrajNode struct {
	Point r3.Vector // workspace position in meters; z is always 0
	Phi   float64   // heading at this node, radians
	Time  float64   // elapsed time on trajectory
	Dist  float64   // distance travelled down trajectory
	K     uint      // path index of this node
}

// Twist2D is a robot-local velocity: linear components in m/s plus an
// angular rate in rad/s.
type Twist2D struct {
	Linear  r2.Vec
	Angular float64
}

// TPPoint is a TP-space coordinate: path index K and normalized distance D.
type TPPoint struct {
	K uint
	D float64
}

// discretized path to alpha.
// The inverse of this, which may be useful, looks like this:
// alpha = wrapTo2Pi(alpha)
// k := int(math.Round(0.5 * (float64(numPaths)*(1.0+alpha/math.Pi) - 1.0))).
func index2alpha(k, numPaths uint) float64 {
	if k >= numPaths {
		return math.NaN()
	}
	if numPaths == 0 {
		return math.NaN()
	}
	return math.Pi * (-1.0 + 2.0*(float64(k)+0.5)/float64(numPaths))
}

// Returns a given angle in the [0, 2pi) range.
func wrapTo2Pi(theta float64) float64 {
	return theta - 2*math.Pi*math.Floor(theta/(2*math.Pi))
}
