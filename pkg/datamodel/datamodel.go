// Package datamodel implements the exposure model boundary: pixel arrays plus
// a metadata tree, persisted as an opaque document. The pipeline core depends
// only on open/save/copy and the provenance fields defined here.
package datamodel

import (
	"errors"
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/stellarops/calpipe/pkg/filesystem"
)

// Observatory identifies the reference-resolution namespace that applies to
// all models produced by this pipeline.
const Observatory = "stellar"

// FileExtension is the extension used for persisted exposure models.
// Association manifests use ".json"; anything else is opened as a model.
const FileExtension = ".exp"

var (
	// ErrUnreadableModel indicates a model file that could not be read or decoded.
	ErrUnreadableModel = errors.New("unreadable model")

	// ErrShapeMismatch indicates pixel arrays whose lengths disagree with the
	// declared shape.
	ErrShapeMismatch = errors.New("array length does not match shape")
)

var json = jsoniter.ConfigDefault

// DataModel is one exposure: pixel arrays and a metadata tree. Arrays are
// stored flat in row-major order with Shape giving (rows, cols).
type DataModel struct {
	Shape      [2]int    `json:"shape"`
	Data       []float32 `json:"data"`
	Err        []float32 `json:"err"`
	VarRnoise  []float32 `json:"var_rnoise"`
	VarPoisson []float32 `json:"var_poisson"`
	VarFlat    []float32 `json:"var_flat"`
	Meta       Metadata  `json:"meta"`
}

// New allocates a zeroed model with the given shape and default metadata.
func New(shape [2]int) *DataModel {
	n := shape[0] * shape[1]
	return &DataModel{
		Shape:      shape,
		Data:       make([]float32, n),
		Err:        make([]float32, n),
		VarRnoise:  make([]float32, n),
		VarPoisson: make([]float32, n),
		VarFlat:    make([]float32, n),
		Meta: Metadata{
			Telescope: strings.ToUpper(Observatory),
		},
	}
}

// Open reads a persisted model from path.
func Open(path string) (*DataModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableModel, path, err)
	}
	var m DataModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableModel, path, err)
	}
	if err := m.validateShape(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableModel, path, err)
	}
	return &m, nil
}

// Save persists the model to path atomically.
func (m *DataModel) Save(path string) error {
	if err := m.validateShape(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", strings.Repeat(" ", 2))
	if err != nil {
		return err
	}
	return filesystem.WriteFileAtomic(path, data, 0o644)
}

// Copy returns a deep copy of the model.
func (m *DataModel) Copy() *DataModel {
	c := *m
	c.Data = append([]float32(nil), m.Data...)
	c.Err = append([]float32(nil), m.Err...)
	c.VarRnoise = append([]float32(nil), m.VarRnoise...)
	c.VarPoisson = append([]float32(nil), m.VarPoisson...)
	c.VarFlat = append([]float32(nil), m.VarFlat...)
	c.Meta.CalLogs = append([]string(nil), m.Meta.CalLogs...)
	if m.Meta.RefFile.Files != nil {
		c.Meta.RefFile.Files = make(map[string]string, len(m.Meta.RefFile.Files))
		for k, v := range m.Meta.RefFile.Files {
			c.Meta.RefFile.Files[k] = v
		}
	}
	return &c
}

// Close releases the pixel buffers. The model must not be used afterwards.
func (m *DataModel) Close() {
	m.Data = nil
	m.Err = nil
	m.VarRnoise = nil
	m.VarPoisson = nil
	m.VarFlat = nil
}

// AppendCalLog appends one entry to the model's calibration log.
// The log is append-only; entries are never removed by downstream steps.
func (m *DataModel) AppendCalLog(entry string) {
	m.Meta.CalLogs = append(m.Meta.CalLogs, entry)
}

// CRDSObservatory returns the reference-resolution namespace for this model.
func (m *DataModel) CRDSObservatory() string {
	return Observatory
}

// CRDSParameters returns the metadata fields used for reference resolution.
func (m *DataModel) CRDSParameters() map[string]interface{} {
	return map[string]interface{}{
		"meta.telescope":                  m.Meta.Telescope,
		"meta.instrument.name":            m.Meta.Instrument.Name,
		"meta.instrument.detector":        m.Meta.Instrument.Detector,
		"meta.instrument.optical_element": m.Meta.Instrument.OpticalElement,
		"meta.exposure.type":              m.Meta.Exposure.Type,
		"meta.exposure.start_time":        m.Meta.Exposure.StartTime.UTC().Format("2006-01-02T15:04:05"),
	}
}

func (m *DataModel) validateShape() error {
	n := m.Shape[0] * m.Shape[1]
	for _, arr := range [][]float32{m.Data, m.Err, m.VarRnoise, m.VarPoisson, m.VarFlat} {
		if arr != nil && len(arr) != n {
			return fmt.Errorf("%w: got %d, want %d", ErrShapeMismatch, len(arr), n)
		}
	}
	return nil
}
