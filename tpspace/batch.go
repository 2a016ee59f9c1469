package tpspace

import (
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/spatial/r2"
)

// TPSolution is the TP-space mapping of one workspace point. Found is false
// when no discretized path passes near the point.
type TPSolution struct {
	TPPoint
	Found bool
}

type tpSolutionAndError struct {
	idx int
	sol TPSolution
	err error
}

// WorldSpaceToTPBatch maps a set of workspace points into TP-space
// concurrently. Per-point searches share nothing beyond the PTG's velocity
// snapshot, so results are index-aligned with points and identical to
// sequential WorldSpaceToTP calls.
func WorldSpaceToTPBatch(ptg PTG, points []r2.Vec) ([]TPSolution, error) {
	solutions := make([]TPSolution, len(points))
	solutionChan := make(chan *tpSolutionAndError, len(points))
	for i := range points {
		j := i
		utils.PanicCapturingGo(func() {
			k, d, found, err := ptg.WorldSpaceToTP(points[j].X, points[j].Y)
			solutionChan <- &tpSolutionAndError{j, TPSolution{TPPoint{K: k, D: d}, found}, err}
		})
	}
	var allErr error
	for range points {
		ret := <-solutionChan
		solutions[ret.idx] = ret.sol
		allErr = multierr.Combine(allErr, ret.err)
	}
	if allErr != nil {
		return nil, allErr
	}
	return solutions, nil
}
