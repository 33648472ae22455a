// Package flux implements the flux calibration step: scaling each exposure's
// arrays into physical units by its own conversion factor.
package flux

import (
	"errors"
	"fmt"

	"github.com/stellarops/calpipe/pkg/datamodel"
	"github.com/stellarops/calpipe/pkg/stpipe"
)

// ErrNoConversion indicates a model without a usable conversion factor.
var ErrNoConversion = errors.New("model has no flux conversion factor")

// Step scales Data and Err by each member's conversion factor and the
// variance arrays by its square. Members are scaled independently; one
// member's factor never affects another's output.
type Step struct{}

// Ensure Step satisfies the stpipe.Step contract.
var _ stpipe.Step = Step{}

// Name returns the step name.
func (Step) Name() string {
	return "flux"
}

// Process applies the scaling in place and returns the input target.
func (Step) Process(sc *stpipe.Context, t *stpipe.Target) (*stpipe.Target, error) {
	err := t.Each(func(m *datamodel.DataModel) error {
		scale := m.Meta.Photometry.ConversionMegajanskys
		if scale <= 0 {
			return fmt.Errorf("%w: %q", ErrNoConversion, m.Meta.Filename)
		}
		sc.Log().Debug("scaling exposure", "file", m.Meta.Filename, "factor", scale)
		apply(m, float32(scale))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// apply scales the arrays in place. Data and err carry the factor linearly;
// variances carry its square.
func apply(m *datamodel.DataModel, scale float32) {
	scaleArray(m.Data, scale)
	scaleArray(m.Err, scale)
	scaleArray(m.VarRnoise, scale*scale)
	scaleArray(m.VarPoisson, scale*scale)
	scaleArray(m.VarFlat, scale*scale)
}

func scaleArray(arr []float32, scale float32) {
	for i := range arr {
		arr[i] *= scale
	}
}
