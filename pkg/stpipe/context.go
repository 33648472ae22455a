package stpipe

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	charm "github.com/charmbracelet/log"

	"github.com/stellarops/calpipe/pkg/datamodel"
	"github.com/stellarops/calpipe/pkg/logger"
)

// Context is the step-scoped state handed to Process: a logger whose output
// is captured into the calibration log, and a record of resolver
// consultations used for provenance stamping after the step returns.
type Context struct {
	runner       *Runner
	stepName     string
	capture      *bytes.Buffer
	log          *logger.Logger
	refConsulted bool
}

func newContext(r *Runner, stepName string) *Context {
	capture := &bytes.Buffer{}
	charmLogger := charm.NewWithOptions(io.MultiWriter(capture, os.Stderr), charm.Options{
		Level:  logger.GetLevel(),
		Prefix: stepName,
	})
	return &Context{
		runner:   r,
		stepName: stepName,
		capture:  capture,
		log:      logger.NewLogger(charmLogger),
	}
}

// Log returns the step logger. Messages at any severity are captured into the
// calibration log entry for this invocation, whatever their destination.
func (c *Context) Log() *logger.Logger {
	return c.log
}

// GetReferenceFile resolves a reference of the given kind for the target and
// records the consultation so provenance is stamped when the step returns.
// Resolution failures are surfaced, not retried.
func (c *Context) GetReferenceFile(t *Target, kind string) (string, error) {
	if c.runner.client == nil {
		return "", ErrNoResolver
	}
	params, err := t.CRDSParameters()
	if err != nil {
		return "", err
	}
	path, err := c.runner.client.GetReferenceFile(params, kind)
	if err != nil {
		return "", err
	}
	c.refConsulted = true
	return path, nil
}

// OpenReference opens a resolved reference file as a model.
func (c *Context) OpenReference(path string) (*datamodel.DataModel, error) {
	return datamodel.Open(path)
}

// calLogEntry formats the single calibration-log entry for this invocation:
// the step name and outcome, with any captured step log output folded in.
func (c *Context) calLogEntry() string {
	entry := fmt.Sprintf("%s calpipe %s step %s done",
		time.Now().UTC().Format(time.RFC3339), c.runner.version, c.stepName)
	if captured := strings.TrimSpace(c.capture.String()); captured != "" {
		entry += "\n" + captured
	}
	return entry
}
