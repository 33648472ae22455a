package stpipe

import (
	"github.com/stellarops/calpipe/pkg/datamodel"
	"github.com/stellarops/calpipe/pkg/library"
	log "github.com/stellarops/calpipe/pkg/logger"
)

// Target is the normalized step input: exactly one of Model or Library is
// set. Inputs are normalized once at the step boundary; downstream logic
// branches on the tag instead of duck-typing throughout.
type Target struct {
	Model   *datamodel.DataModel
	Library *library.Library
}

// ModelTarget wraps a single model.
func ModelTarget(m *datamodel.DataModel) *Target {
	return &Target{Model: m}
}

// LibraryTarget wraps a library.
func LibraryTarget(l *library.Library) *Target {
	return &Target{Library: l}
}

// IsLibrary reports whether the target is a collection.
func (t *Target) IsLibrary() bool {
	return t.Library != nil
}

// Observatory returns the reference-resolution namespace of the target.
func (t *Target) Observatory() string {
	if t.IsLibrary() {
		return t.Library.Observatory()
	}
	return t.Model.CRDSObservatory()
}

// CRDSParameters returns the resolution parameters for the target: the single
// model's parameters, or the aggregate across library members.
func (t *Target) CRDSParameters() (map[string]interface{}, error) {
	if t.IsLibrary() {
		return t.Library.CRDSParameters()
	}
	return t.Model.CRDSParameters(), nil
}

// Each applies fn to every model in the target in ascending index order,
// borrowing and shelving library members around each application. Members are
// shelved with modify=true on success; if fn fails the member is shelved
// without persisting and the error is returned.
func (t *Target) Each(fn func(*datamodel.DataModel) error) error {
	if !t.IsLibrary() {
		return fn(t.Model)
	}
	for i := 0; i < t.Library.Len(); i++ {
		m, err := t.Library.Borrow(i)
		if err != nil {
			return err
		}
		if err := fn(m); err != nil {
			if serr := t.Library.Shelve(i, false); serr != nil {
				log.Warn("failed to shelve member after error", "index", i, "error", serr)
			}
			return err
		}
		if err := t.Library.Shelve(i, true); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the target's resources. For library targets this reconciles
// outstanding borrows and flushes dirty members; for single models it is a
// no-op.
func (t *Target) Close() error {
	if t.IsLibrary() {
		return t.Library.Close()
	}
	return nil
}
