// Package flatfield implements the flat-field correction step: dividing each
// exposure by the matching flat reference resolved per model.
package flatfield

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/stellarops/calpipe/pkg/datamodel"
	"github.com/stellarops/calpipe/pkg/stpipe"
)

// ReferenceKind is the reference-data kind consulted by this step.
const ReferenceKind = "flat"

// ErrFlatShape indicates a flat reference whose shape differs from the exposure.
var ErrFlatShape = errors.New("flat reference shape does not match exposure")

// Step divides each exposure's science data by its resolved flat reference
// and records the reference in the model's provenance.
type Step struct{}

// Ensure Step satisfies the stpipe.Step contract.
var _ stpipe.Step = Step{}

// Name returns the step name.
func (Step) Name() string {
	return "flatfield"
}

// Process applies the correction in place and returns the input target.
func (Step) Process(sc *stpipe.Context, t *stpipe.Target) (*stpipe.Target, error) {
	err := t.Each(func(m *datamodel.DataModel) error {
		path, err := sc.GetReferenceFile(stpipe.ModelTarget(m), ReferenceKind)
		if err != nil {
			return err
		}
		flat, err := sc.OpenReference(path)
		if err != nil {
			return err
		}
		defer flat.Close()

		if flat.Shape != m.Shape {
			return fmt.Errorf("%w: flat %v, exposure %v", ErrFlatShape, flat.Shape, m.Shape)
		}

		sc.Log().Debug("applying flat", "file", m.Meta.Filename, "flat", filepath.Base(path))
		divide(m, flat)

		if m.Meta.RefFile.Files == nil {
			m.Meta.RefFile.Files = map[string]string{}
		}
		m.Meta.RefFile.Files[ReferenceKind] = filepath.Base(path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// divide applies the flat in place. Zero-valued flat pixels are left
// untouched rather than producing infinities; bad-pixel masking is a
// downstream concern.
func divide(m, flat *datamodel.DataModel) {
	for i, f := range flat.Data {
		if f == 0 {
			continue
		}
		m.Data[i] /= f
		m.Err[i] /= f
		ff := f * f
		m.VarRnoise[i] /= ff
		m.VarPoisson[i] /= ff
		m.VarFlat[i] /= ff
	}
}
