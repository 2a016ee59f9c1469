package tpspace

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const (
	// pathTimeStep is the fixed duration of one discrete trajectory step.
	pathTimeStep = 10e-3 // 10 ms

	// blendEps gates the numerically-degenerate regimes of the blend algebra.
	blendEps = 1e-5

	// Bounded Newton iteration inverting the in-ramp arclength.
	newtonMaxIters = 10
	newtonDistTol  = 1e-3  // meters of arclength
	newtonDerivMin = 1e-14 // below this the speed is degenerate

	// defaultTurningRadiusRef approximates the robot dimension. Not used in
	// the kinematic formulas.
	defaultTurningRadiusRef = 0.30 // m
)

// ErrTPObstaclesUnsupported is returned by the holonomic blend PTG's obstacle
// hook: this variant does not compute per-obstacle trajectory clearance.
var ErrTPObstaclesUnsupported = errors.New("holonomic blend PTG does not compute per-obstacle trajectory clearance")

// ptgHoloBlend generates trajectories for a holonomic robot which blend the
// current velocity into vMax along each discretized direction. The velocity
// interpolates linearly over a fixed ramp time, giving a quadratic-in-time
// position law, then the robot continues straight at vMax while the heading
// turns toward the direction at wMax.
type ptgHoloBlend struct {
	alphaCount uint    // number of discretized paths
	refDist    float64 // m
	tRamp      float64 // s
	vMax       float64 // m/s
	wMax       float64 // rad/s
	turnRadRef float64 // m, informational only

	// curVel is refreshed by the owning planner once per control cycle and
	// read by every query in that cycle. Single writer, no internal locking.
	curVel Twist2D
}

// NewHoloBlendPTG creates a holonomic blend PTG with the given path
// discretization, normalization distance, ramp time, top linear speed and
// top angular speed. All parameters must be positive.
func NewHoloBlendPTG(alphaCount uint, refDist, tRamp, vMax, wMax float64) (PTG, error) {
	ptg := &ptgHoloBlend{
		alphaCount: alphaCount,
		refDist:    refDist,
		tRamp:      tRamp,
		vMax:       vMax,
		wMax:       wMax,
		turnRadRef: defaultTurningRadiusRef,
	}
	if err := ptg.validate(); err != nil {
		return nil, err
	}
	return ptg, nil
}

func (ptg *ptgHoloBlend) validate() error {
	var err error
	if ptg.alphaCount == 0 {
		err = multierr.Combine(err, errors.New("alpha count must be greater than zero"))
	}
	if ptg.refDist <= 0 {
		err = multierr.Combine(err, errors.New("reference distance must be greater than zero"))
	}
	if ptg.tRamp <= 0 {
		err = multierr.Combine(err, errors.New("ramp time must be greater than zero"))
	}
	if ptg.vMax <= 0 {
		err = multierr.Combine(err, errors.New("max linear speed must be greater than zero"))
	}
	if ptg.wMax <= 0 {
		err = multierr.Combine(err, errors.New("max angular speed must be greater than zero"))
	}
	return err
}

func (ptg *ptgHoloBlend) UpdateCurrentVelocity(vel Twist2D) {
	ptg.curVel = vel
}

func (ptg *ptgHoloBlend) AlphaCount() uint {
	return ptg.alphaCount
}

func (ptg *ptgHoloBlend) RefDistance() float64 {
	return ptg.refDist
}

func (ptg *ptgHoloBlend) Description() string {
	return fmt.Sprintf("PTG_Holo_Blend_Tramp=%.03f_Vmax=%.03f_Wmax=%.03f", ptg.tRamp, ptg.vMax, ptg.wMax)
}

// blendCoeffs returns the target velocity for direction alpha, plus the
// quadratic position coefficients k2 = (vxf-vxi)/(2*tRamp) and k4 likewise
// for y. Position within the ramp is vi*t + k*t*t per axis.
func (ptg *ptgHoloBlend) blendCoeffs(alpha float64) (vxf, vyf, k2, k4 float64) {
	tr2inv := 1.0 / (2 * ptg.tRamp)
	vxf = ptg.vMax * math.Cos(alpha)
	vyf = ptg.vMax * math.Sin(alpha)
	k2 = (vxf - ptg.curVel.Linear.X) * tr2inv
	k4 = (vyf - ptg.curVel.Linear.Y) * tr2inv
	return vxf, vyf, k2, k4
}

func (ptg *ptgHoloBlend) checkK(k uint) error {
	if k >= ptg.alphaCount {
		return errors.Errorf("path index %d out of range [0, %d)", k, ptg.alphaCount)
	}
	return nil
}

func (ptg *ptgHoloBlend) PathPose(k, step uint) (*TrajNode, error) {
	if err := ptg.checkK(k); err != nil {
		return nil, err
	}
	alpha := index2alpha(k, ptg.alphaCount)
	t := float64(step) * pathTimeStep
	node := ptg.poseAt(alpha, t)
	node.K = k
	return node, nil
}

// poseAt evaluates the closed-form motion law for direction alpha at time t.
// Translation and rotation are independent.
func (ptg *ptgHoloBlend) poseAt(alpha, t float64) *TrajNode {
	vxi, vyi := ptg.curVel.Linear.X, ptg.curVel.Linear.Y
	vxf, vyf, k2, k4 := ptg.blendCoeffs(alpha)

	var x, y float64
	if t < ptg.tRamp {
		x = vxi*t + t*t*k2
		y = vyi*t + t*t*k4
	} else {
		x = ptg.tRamp*0.5*(vxi+vxf) + (t-ptg.tRamp)*vxf
		y = ptg.tRamp*0.5*(vyi+vyf) + (t-ptg.tRamp)*vyf
	}

	// The heading turns toward alpha at wMax and holds once it gets there.
	tRot := math.Abs(alpha) / ptg.wMax
	phi := alpha
	if t < tRot {
		phi = t * alpha / tRot
	}

	return &TrajNode{
		Point: r3.Vector{X: x, Y: y},
		Phi:   phi,
		Time:  t,
		Dist:  ptg.distAt(alpha, t),
	}
}

func (ptg *ptgHoloBlend) PathDist(k, step uint) (float64, error) {
	if err := ptg.checkK(k); err != nil {
		return 0, err
	}
	return ptg.distAt(index2alpha(k, ptg.alphaCount), float64(step)*pathTimeStep), nil
}

// distAt is the arclength traveled along direction alpha after time t. Past
// the ramp the speed is exactly vMax.
func (ptg *ptgHoloBlend) distAt(alpha, t float64) float64 {
	vxi, vyi := ptg.curVel.Linear.X, ptg.curVel.Linear.Y
	_, _, k2, k4 := ptg.blendCoeffs(alpha)
	if t < ptg.tRamp {
		return rampDist(k2, k4, vxi, vyi, t)
	}
	return (t-ptg.tRamp)*ptg.vMax + rampDist(k2, k4, vxi, vyi, ptg.tRamp)
}

// rampDist is the arclength traveled during the blend, for t within the
// ramp. The speed magnitude squared is the quadratic a*t^2 + b*t + c with
// a = 4*(k2^2+k4^2), b = 4*(k2*vxi+k4*vyi), c = vxi^2+vyi^2, and the
// integral splits into three regimes to avoid numerical blow-up.
func rampDist(k2, k4, vxi, vyi, t float64) float64 {
	c := vxi*vxi + vyi*vyi
	if math.Abs(k2) <= blendEps && math.Abs(k4) <= blendEps {
		// No relative acceleration: constant speed.
		return math.Sqrt(c) * t
	}
	a := 4 * (k2*k2 + k4*k4)
	b := 4 * (k2*vxi + k4*vyi)
	if math.Abs(b) < blendEps && math.Abs(c) < blendEps {
		// Starting from rest.
		return math.Sqrt(a) * t * t * 0.5
	}
	return rampDistABC(t, a, b, c)
}

// rampDistABC is the definite integral over [0, t] of sqrt(a*u^2 + b*u + c).
// The raw antiderivative has a removable singularity at t=0, so its analytic
// limit there is subtracted instead of the naive evaluation.
func rampDistABC(t, a, b, c float64) float64 {
	q := c + b*t + a*t*t
	intT := (t*0.5+b/(4*a))*math.Sqrt(q) +
		(a*c-b*b*0.25)/(2*math.Pow(a, 1.5))*math.Log((b*0.5+a*t)/math.Sqrt(a)+math.Sqrt(q))
	intT0 := b*math.Sqrt(c)/(4*a) +
		(a*c-b*b*0.25)/(2*math.Pow(a, 1.5))*math.Log((b+2*math.Sqrt(a)*math.Sqrt(c))/(2*math.Sqrt(a)))
	return intT - intT0
}

func (ptg *ptgHoloBlend) PathStepCount(k uint) (uint, error) {
	step, found, err := ptg.PathStepForDist(k, ptg.refDist)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, errors.Errorf("could not solve closed-form distance for path %d", k)
	}
	return step, nil
}

func (ptg *ptgHoloBlend) PathStepForDist(k uint, dist float64) (uint, bool, error) {
	if err := ptg.checkK(k); err != nil {
		return 0, false, err
	}
	alpha := index2alpha(k, ptg.alphaCount)
	vxi, vyi := ptg.curVel.Linear.X, ptg.curVel.Linear.Y
	_, _, k2, k4 := ptg.blendCoeffs(alpha)

	distRamp := rampDist(k2, k4, vxi, vyi, ptg.tRamp)

	tSolved := -1.0
	switch {
	case dist >= distRamp:
		// Past the blend the speed is exactly vMax.
		tSolved = ptg.tRamp + (dist-distRamp)/ptg.vMax
	case math.Abs(k2) < blendEps && math.Abs(k4) < blendEps:
		// Target velocity equals the current one: straight line at vMax.
		tSolved = dist / ptg.vMax
	default:
		a := 4 * (k2*k2 + k4*k4)
		b := 4 * (k2*vxi + k4*vyi)
		c := vxi*vxi + vyi*vyi
		if math.Abs(b) < blendEps && math.Abs(c) < blendEps {
			// Starting from rest: dist = sqrt(a)*t^2/2.
			tSolved = math.Sqrt2 * math.Sqrt(dist) / math.Pow(a, 0.25)
		} else {
			// The general case has no closed-form inverse. Newton on the
			// antiderivative; the derivative is the instantaneous speed,
			// well-defined and non-negative in this regime.
			tSolved = 0.6 * ptg.tRamp
			for i := 0; i < newtonMaxIters; i++ {
				residual := rampDistABC(tSolved, a, b, c) - dist
				if math.Abs(residual) < newtonDistTol {
					break
				}
				deriv := math.Sqrt(a*tSolved*tSolved + b*tSolved + c)
				if math.Abs(deriv) <= newtonDerivMin {
					return 0, false, errors.Errorf(
						"degenerate blend for path %d: speed vanished while inverting arclength %f", k, dist)
				}
				tSolved -= residual / deriv
			}
		}
	}
	if tSolved < 0 || math.IsNaN(tSolved) {
		return 0, false, nil
	}
	return uint(math.Round(tSolved / pathTimeStep)), true, nil
}

func (ptg *ptgHoloBlend) WorldSpaceToTP(x, y float64) (uint, float64, bool, error) {
	if x == 0 && y == 0 {
		return 0, 0, false, errors.New("workspace target must not be the origin")
	}

	// Keep the shortest path over all alpha values. Both tolerances scale
	// with the angular quantization and the target distance, since a finite
	// alpha discretization cannot hit arbitrary points exactly.
	norm := math.Hypot(x, y)
	timeMismatchTol := 2.0 * (2 * math.Pi / float64(ptg.alphaCount)) * norm / ptg.vMax
	epsDistance := 2.1 * (2 * math.Pi / float64(ptg.alphaCount)) * norm

	vxi, vyi := ptg.curVel.Linear.X, ptg.curVel.Linear.Y

	foundMinDist := math.Inf(1)
	foundK := -1

	for k := uint(0); k < ptg.alphaCount; k++ {
		alpha := index2alpha(k, ptg.alphaCount)
		vxf, vyf, k2, k4 := ptg.blendCoeffs(alpha)

		// Each translational axis blends independently, so solve a
		// per-axis time equation and require the two to agree.
		txSolve, txAny, ok := solveBlendAxisTime(x, vxi, vxf, ptg.tRamp, epsDistance)
		if !ok {
			continue
		}
		tySolve, tyAny, ok := solveBlendAxisTime(y, vyi, vyf, ptg.tRamp, epsDistance)
		if !ok {
			continue
		}

		xInRamp := txAny || (txSolve >= 0 && txSolve <= ptg.tRamp)
		yInRamp := tyAny || (tySolve >= 0 && tySolve <= ptg.tRamp)
		if !xInRamp || !yInRamp {
			// No intersection within the ramp; retry on the straight
			// continuation at the final velocity.
			txSolve, txAny = solvePostRampAxisTime(x, vxi, vxf, ptg.tRamp, epsDistance)
			tySolve, tyAny = solvePostRampAxisTime(y, vyi, vyf, ptg.tRamp, epsDistance)
		}

		var tSolve float64
		switch {
		case !txAny && !tyAny:
			// Axis agreement within the quantization tolerance is required.
			if math.Abs(txSolve-tySolve) > timeMismatchTol {
				continue
			}
			tSolve = txSolve
		case txAny && tyAny:
			// Initial velocity equals the target: the point lies on the ray.
			tSolve = norm / ptg.vMax
		case tyAny:
			tSolve = txSolve
		default:
			tSolve = tySolve
		}

		if tSolve < 0 {
			continue
		}

		var distTrans float64
		if tSolve < ptg.tRamp {
			distTrans = rampDist(k2, k4, vxi, vyi, tSolve)
		} else {
			distTrans = (tSolve-ptg.tRamp)*ptg.vMax + rampDist(k2, k4, vxi, vyi, ptg.tRamp)
		}
		if distTrans < foundMinDist {
			foundMinDist = distTrans
			foundK = int(k)
		}
	}

	if foundK < 0 {
		return 0, 0, false, nil
	}
	return uint(foundK), foundMinDist / ptg.refDist, true, nil
}

// solveBlendAxisTime solves p(t) = target within the ramp for one
// translational axis, where p(t) = vi*t + t*t*(vf-vi)/(2*tRamp). anyT is
// true when the axis is stationary at a matching coordinate, so any time
// satisfies it. ok is false when the quadratic has no real root, which rules
// the whole direction out. A solution of -1 means no valid time on this axis.
func solveBlendAxisTime(target, vi, vf, tRamp, epsDist float64) (t float64, anyT, ok bool) {
	if math.Abs(vf-vi) < blendEps {
		if math.Abs(vi) < blendEps {
			if math.Abs(target) < epsDist {
				return 0, true, true
			}
			return -1, false, true
		}
		// Constant velocity: target = vi * t.
		return target / vi, false, true
	}
	discr := (vf*target*2 - vi*target*2 + tRamp*vi*vi) / tRamp
	if discr < 0 {
		return 0, false, false
	}
	sq := math.Sqrt(discr)
	t = -(tRamp * (vi + sq)) / (vf - vi)
	if t <= 0 {
		t = -(tRamp * (vi - sq)) / (vf - vi)
	}
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 || t > tRamp {
		return -1, false, true
	}
	return t, false, true
}

// solvePostRampAxisTime solves for t >= tRamp, where the axis moves at its
// constant final velocity from the ramp-end position tRamp*(vi+vf)/2.
func solvePostRampAxisTime(target, vi, vf, tRamp, epsDist float64) (t float64, anyT bool) {
	if math.Abs(vf) < blendEps {
		finalP := tRamp * 0.5 * (vi + vf)
		if math.Abs(target-finalP) < epsDist {
			return 0, true
		}
		return -1, false
	}
	return tRamp + (target-tRamp*(vf+vi)*0.5)/vf, false
}

func (ptg *ptgHoloBlend) IsIntoDomain(x, y float64) (bool, error) {
	_, _, found, err := ptg.WorldSpaceToTP(x, y)
	return found, err
}

func (ptg *ptgHoloBlend) DirectionToMotionCommand(k uint) ([]float64, error) {
	if err := ptg.checkK(k); err != nil {
		return nil, err
	}
	alpha := index2alpha(k, ptg.alphaCount)
	// [target speed, local direction, ramp time, rotational speed]
	return []float64{ptg.vMax, alpha, ptg.tRamp, ptg.wMax}, nil
}

func (ptg *ptgHoloBlend) UpdateTPObstacle(ox, oy float64, tpObstacles []float64) error {
	return ErrTPObstaclesUnsupported
}
