// Package stpipe implements the step execution model: input normalization to
// a single model or a library, provenance stamping and calibration logging
// wrapped around every step invocation, and pipeline composition.
//
// Stamping is applied by an explicit wrapper (Runner.Call) around the step's
// Process, not by a base type the step inherits from, so every invocation is
// auditable no matter what the step does.
package stpipe

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	errUtils "github.com/stellarops/calpipe/errors"
	"github.com/stellarops/calpipe/pkg/crds"
	"github.com/stellarops/calpipe/pkg/datamodel"
	"github.com/stellarops/calpipe/pkg/library"
	log "github.com/stellarops/calpipe/pkg/logger"
	"github.com/stellarops/calpipe/pkg/version"
)

// ErrNoResolver indicates a reference lookup without a configured resolver.
var ErrNoResolver = errors.New("no reference resolver configured")

// Step is the unit of processing. Process receives a normalized target and
// may mutate it in place; it returns the result target (commonly the input)
// or an error, which is fatal to the surrounding run.
type Step interface {
	Name() string
	Process(sc *Context, t *Target) (*Target, error)
}

// Runner executes steps and pipelines against a reference resolver. One
// Runner corresponds to one pipeline run.
type Runner struct {
	client  crds.Client
	version string
	runID   string
}

// NewRunner creates a Runner. client may be nil for steps that never resolve
// references.
func NewRunner(client crds.Client) *Runner {
	return &Runner{
		client:  client,
		version: version.Version,
		runID:   uuid.NewString(),
	}
}

// OpenInput normalizes a pipeline input to a Target:
//   - a path to an association manifest (.json) opens as a Library;
//   - any other path opens as a single model;
//   - in-memory models, libraries and targets are used directly.
func (r *Runner) OpenInput(input interface{}) (*Target, error) {
	switch v := input.(type) {
	case *Target:
		return v, nil
	case *datamodel.DataModel:
		return ModelTarget(v), nil
	case *library.Library:
		return LibraryTarget(v), nil
	case string:
		if strings.EqualFold(filepath.Ext(v), ".json") {
			lib, err := library.NewFromManifest(v)
			if err != nil {
				return nil, err
			}
			return LibraryTarget(lib), nil
		}
		m, err := datamodel.Open(v)
		if err != nil {
			return nil, err
		}
		return ModelTarget(m), nil
	default:
		return nil, fmt.Errorf("%w: %T", errUtils.ErrInvalidInput, input)
	}
}

// GetReferenceFile resolves a reference for the target without recording a
// step consultation. Steps should prefer Context.GetReferenceFile so the
// consultation is stamped into provenance.
func (r *Runner) GetReferenceFile(t *Target, kind string) (string, error) {
	if r.client == nil {
		return "", ErrNoResolver
	}
	params, err := t.CRDSParameters()
	if err != nil {
		return "", err
	}
	return r.client.GetReferenceFile(params, kind)
}

// Call is the uniform step entry point. It normalizes the input, invokes the
// step's Process, then stamps provenance on every model in the result: the
// calibration software version (overwriting whatever was there), the resolver
// context and version if a reference was consulted, and exactly one
// calibration-log entry per model for this invocation.
func (r *Runner) Call(step Step, input interface{}) (*Target, error) {
	target, err := r.OpenInput(input)
	if err != nil {
		return nil, err
	}

	sc := newContext(r, step.Name())
	log.Debug("running step", "step", step.Name(), "run_id", r.runID, "library", target.IsLibrary())

	result, err := step.Process(sc, target)
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", step.Name(), err)
	}
	if result == nil {
		result = target
	}

	if err := r.stamp(sc, result); err != nil {
		return nil, fmt.Errorf("step %s: stamping provenance: %w", step.Name(), err)
	}
	return result, nil
}

// stamp writes provenance onto every model in the target. The version field
// always reflects the code that last touched the data, never a stale or
// forged value carried over from input.
func (r *Runner) stamp(sc *Context, t *Target) error {
	var crdsMeta datamodel.CRDSMeta
	if sc.refConsulted {
		context, err := r.client.GetContextUsed(t.Observatory())
		if err != nil {
			return err
		}
		crdsMeta = datamodel.CRDSMeta{
			Context: context,
			Version: r.client.GetSoftwareVersion(),
		}
	}

	entry := sc.calLogEntry()
	return t.Each(func(m *datamodel.DataModel) error {
		m.Meta.CalibrationSoftwareVersion = r.version
		if sc.refConsulted {
			m.Meta.RefFile.CRDS = crdsMeta
		}
		m.AppendCalLog(entry)
		return nil
	})
}
