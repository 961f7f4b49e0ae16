package physics

import (
	"context"
	"fmt"
)

// Result summarizes a [Run].
type Result struct {
	Steps  int  // steps taken by this call
	Stable bool // whether the last step converged
}

// Run steps sim until it reports stable, maxSteps steps have been taken,
// ctx is cancelled, or a step fails. maxSteps <= 0 means no cap, so the
// loop then ends only on convergence, cancellation, or error.
//
// Reaching the cap without converging is not an error; check Result.Stable.
func Run(ctx context.Context, sim *Simulator, maxSteps int) (Result, error) {
	var res Result
	for maxSteps <= 0 || res.Steps < maxSteps {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("layout cancelled after %d steps: %w", res.Steps, err)
		}
		stable, err := sim.Step()
		res.Steps++
		res.Stable = stable
		if err != nil {
			return res, err
		}
		if stable {
			break
		}
	}
	return res, nil
}
