package tpspace

import (
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/spatial/r2"
)

func newTestHoloBlend(t *testing.T, alphaCount uint, refDist, tRamp, vMax, wMax float64) *ptgHoloBlend {
	t.Helper()
	p, err := NewHoloBlendPTG(alphaCount, refDist, tRamp, vMax, wMax)
	test.That(t, err, test.ShouldBeNil)
	return p.(*ptgHoloBlend)
}

func TestHoloBlendValidation(t *testing.T) {
	_, err := NewHoloBlendPTG(0, -1, 0, 0, 0)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewHoloBlendPTG(91, 10, 0.6, 1.0, -0.5)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewHoloBlendPTG(91, 10, 0.6, 1.0, 1.0)
	test.That(t, err, test.ShouldBeNil)
}

func TestPathPoseFromRest(t *testing.T) {
	// alpha(45) == 0 for 91 paths; ramp from rest to 1 m/s over 0.6s.
	ptg := newTestHoloBlend(t, 91, 10, 0.6, 1.0, 1.0)

	// During the ramp x(t) = t^2/(2*0.6); at the ramp end x = 0.3, then the
	// robot continues at 1 m/s.
	node, err := ptg.PathPose(45, 60)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, node.Point.X, test.ShouldAlmostEqual, 0.3, 1e-9)
	test.That(t, node.Point.Y, test.ShouldAlmostEqual, 0, 1e-9)

	node, err = ptg.PathPose(45, 100)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, node.Point.X, test.ShouldAlmostEqual, 0.7, 1e-9)
	test.That(t, node.Point.Y, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, node.Phi, test.ShouldAlmostEqual, 0, 1e-9)

	dist, err := ptg.PathDist(45, 100)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dist, test.ShouldAlmostEqual, 0.7, 1e-9)

	_, err = ptg.PathPose(91, 0)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPathStepForDistFromRest(t *testing.T) {
	ptg := newTestHoloBlend(t, 91, 10, 0.6, 1.0, 1.0)

	// dist 0.5 exceeds the 0.3 ramp arclength, so t = 0.6 + 0.2/1.0 = 0.8s.
	step, found, err := ptg.PathStepForDist(45, 0.5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, step, test.ShouldEqual, 80)

	// Negative arclength is unreachable but not a caller error.
	_, found, err = ptg.PathStepForDist(45, -0.1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldBeFalse)

	_, _, err = ptg.PathStepForDist(200, 0.5)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestHeadingRotation(t *testing.T) {
	// alpha(7) == pi/2 for 10 paths. At 1 rad/s the heading reaches pi/2
	// after ~1.5708s and holds.
	ptg := newTestHoloBlend(t, 10, 10, 0.6, 1.0, 1.0)

	node, err := ptg.PathPose(7, 50)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, node.Phi, test.ShouldAlmostEqual, 0.5, 1e-9)

	node, err = ptg.PathPose(7, 200)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, node.Phi, test.ShouldAlmostEqual, math.Pi/2, 1e-12)
}

func TestArclengthMonotonic(t *testing.T) {
	ptg := newTestHoloBlend(t, 16, 5, 0.6, 1.0, 1.0)
	ptg.UpdateCurrentVelocity(Twist2D{Linear: r2.Vec{X: 0.3, Y: -0.2}})

	for k := uint(0); k < ptg.AlphaCount(); k++ {
		prev := 0.0
		for s := uint(0); s <= 200; s++ {
			dist, err := ptg.PathDist(k, s)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, dist, test.ShouldBeGreaterThanOrEqualTo, prev-1e-12)
			prev = dist
		}
	}
}

func TestRampBoundaryContinuity(t *testing.T) {
	ptg := newTestHoloBlend(t, 16, 5, 0.6, 1.0, 1.0)
	ptg.UpdateCurrentVelocity(Twist2D{Linear: r2.Vec{X: 0.3, Y: -0.2}})

	const dt = 1e-9
	for k := uint(0); k < ptg.AlphaCount(); k++ {
		alpha := index2alpha(k, ptg.AlphaCount())

		before := ptg.poseAt(alpha, ptg.tRamp-dt)
		after := ptg.poseAt(alpha, ptg.tRamp)
		test.That(t, before.Point.X, test.ShouldAlmostEqual, after.Point.X, 1e-6)
		test.That(t, before.Point.Y, test.ShouldAlmostEqual, after.Point.Y, 1e-6)

		test.That(t, ptg.distAt(alpha, ptg.tRamp-dt), test.ShouldAlmostEqual, ptg.distAt(alpha, ptg.tRamp), 1e-6)
	}
}

func TestStepDistRoundTripFromRest(t *testing.T) {
	ptg := newTestHoloBlend(t, 16, 5, 0.6, 1.0, 1.0)

	for k := uint(0); k < ptg.AlphaCount(); k++ {
		for s := uint(1); s <= 150; s++ {
			dist, err := ptg.PathDist(k, s)
			test.That(t, err, test.ShouldBeNil)
			step, found, err := ptg.PathStepForDist(k, dist)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, found, test.ShouldBeTrue)
			test.That(t, float64(step), test.ShouldAlmostEqual, float64(s), 1)
		}
	}
}

func TestStepDistRoundTripMoving(t *testing.T) {
	// A nonzero initial velocity exercises the Newton inversion of the
	// general arclength integral. Paths roughly aligned with the initial
	// velocity keep the speed bounded away from zero within the ramp.
	ptg := newTestHoloBlend(t, 16, 5, 0.6, 1.0, 1.0)
	ptg.UpdateCurrentVelocity(Twist2D{Linear: r2.Vec{X: 0.1, Y: 0.05}})

	for k := uint(6); k <= 10; k++ {
		for s := uint(1); s <= 150; s++ {
			dist, err := ptg.PathDist(k, s)
			test.That(t, err, test.ShouldBeNil)
			step, found, err := ptg.PathStepForDist(k, dist)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, found, test.ShouldBeTrue)
			test.That(t, float64(step), test.ShouldAlmostEqual, float64(s), 1)
		}
	}
}

func TestPathStepCount(t *testing.T) {
	ptg := newTestHoloBlend(t, 91, 10, 0.6, 1.0, 1.0)

	// From rest: refDist 10 = 0.3 ramp + 9.7 at 1 m/s -> t = 10.3s.
	steps, err := ptg.PathStepCount(45)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, steps, test.ShouldEqual, 1030)
}

func TestWorldSpaceToTPFromRest(t *testing.T) {
	// alpha(56) = 159 degrees for 60 paths: comfortably away from the
	// diagonal crossings where neighboring paths become ambiguous.
	ptg := newTestHoloBlend(t, 60, 10, 0.9, 1.0, 1.0)

	node, err := ptg.PathPose(56, 120)
	test.That(t, err, test.ShouldBeNil)
	wantDist, err := ptg.PathDist(56, 120)
	test.That(t, err, test.ShouldBeNil)

	k, d, found, err := ptg.WorldSpaceToTP(node.Point.X, node.Point.Y)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, k, test.ShouldEqual, 56)
	test.That(t, d, test.ShouldAlmostEqual, wantDist/ptg.RefDistance(), 1e-9)

	into, err := ptg.IsIntoDomain(node.Point.X, node.Point.Y)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, into, test.ShouldBeTrue)
}

func TestWorldSpaceToTPMoving(t *testing.T) {
	// alpha(50) = 123 degrees for 60 paths; the initial velocity makes the
	// x component reverse inside the ramp, exercising quadratic root
	// selection on both axes.
	ptg := newTestHoloBlend(t, 60, 10, 0.9, 1.0, 1.0)
	ptg.UpdateCurrentVelocity(Twist2D{Linear: r2.Vec{X: 0.2, Y: 0.1}})

	node, err := ptg.PathPose(50, 40)
	test.That(t, err, test.ShouldBeNil)
	wantDist, err := ptg.PathDist(50, 40)
	test.That(t, err, test.ShouldBeNil)

	k, d, found, err := ptg.WorldSpaceToTP(node.Point.X, node.Point.Y)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, k, test.ShouldEqual, 50)
	test.That(t, d, test.ShouldAlmostEqual, wantDist/ptg.RefDistance(), 1e-9)
}

func TestWorldSpaceToTPStationaryAxis(t *testing.T) {
	// With two paths straight up and down and a purely-vertical initial
	// velocity, the x axis is stationary: any time satisfies it and the y
	// axis alone determines the solution.
	ptg := newTestHoloBlend(t, 2, 10, 0.6, 1.0, 1.0)
	ptg.UpdateCurrentVelocity(Twist2D{Linear: r2.Vec{Y: 0.5}})

	node, err := ptg.PathPose(1, 30)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, node.Point.X, test.ShouldAlmostEqual, 0, 1e-12)
	wantDist, err := ptg.PathDist(1, 30)
	test.That(t, err, test.ShouldBeNil)

	k, d, found, err := ptg.WorldSpaceToTP(node.Point.X, node.Point.Y)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, k, test.ShouldEqual, 1)
	test.That(t, d, test.ShouldAlmostEqual, wantDist/ptg.RefDistance(), 1e-9)
}

func TestWorldSpaceToTPOrigin(t *testing.T) {
	ptg := newTestHoloBlend(t, 60, 10, 0.9, 1.0, 1.0)

	_, _, _, err := ptg.WorldSpaceToTP(0, 0)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ptg.IsIntoDomain(0, 0)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDirectionToMotionCommand(t *testing.T) {
	ptg := newTestHoloBlend(t, 91, 10, 0.6, 1.0, 2.0)

	cmd, err := ptg.DirectionToMotionCommand(45)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(cmd), test.ShouldEqual, 4)
	test.That(t, cmd[0], test.ShouldAlmostEqual, 1.0)
	test.That(t, cmd[1], test.ShouldAlmostEqual, 0)
	test.That(t, cmd[2], test.ShouldAlmostEqual, 0.6)
	test.That(t, cmd[3], test.ShouldAlmostEqual, 2.0)

	_, err = ptg.DirectionToMotionCommand(91)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestUpdateTPObstacleUnsupported(t *testing.T) {
	ptg := newTestHoloBlend(t, 91, 10, 0.6, 1.0, 1.0)
	err := ptg.UpdateTPObstacle(1.0, 1.0, make([]float64, 91))
	test.That(t, err, test.ShouldBeError, ErrTPObstaclesUnsupported)
}

func TestDescription(t *testing.T) {
	ptg := newTestHoloBlend(t, 91, 10, 0.6, 1.0, 1.0)
	test.That(t, ptg.Description(), test.ShouldEqual, "PTG_Holo_Blend_Tramp=0.600_Vmax=1.000_Wmax=1.000")
}
