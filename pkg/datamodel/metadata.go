package datamodel

import "time"

// Metadata is the model's metadata tree. Provenance fields (calibration
// software version, reference-file records, calibration log) are written by
// the step wrapper; the rest describes the observation.
type Metadata struct {
	Telescope                  string         `json:"telescope"`
	Filename                   string         `json:"filename,omitempty"`
	Instrument                 InstrumentMeta `json:"instrument"`
	Exposure                   ExposureMeta   `json:"exposure"`
	Photometry                 PhotometryMeta `json:"photometry"`
	CalibrationSoftwareVersion string         `json:"calibration_software_version,omitempty"`
	RefFile                    RefFileMeta    `json:"ref_file"`
	CalLogs                    []string       `json:"cal_logs,omitempty"`
}

// InstrumentMeta describes the instrument configuration of the exposure.
type InstrumentMeta struct {
	Name           string `json:"name"`
	Detector       string `json:"detector"`
	OpticalElement string `json:"optical_element"`
}

// ExposureMeta describes the exposure itself.
type ExposureMeta struct {
	Type      string    `json:"type"`
	StartTime time.Time `json:"start_time"`
}

// PhotometryMeta carries the physical unit conversion factor applied by the
// flux step.
type PhotometryMeta struct {
	ConversionMegajanskys float64 `json:"conversion_megajanskys"`
}

// RefFileMeta records which reference files and resolver context produced
// this model. Overwritten, never merged, on each resolver consultation.
type RefFileMeta struct {
	CRDS  CRDSMeta          `json:"crds"`
	Files map[string]string `json:"files,omitempty"`
}

// CRDSMeta records the resolver context and software version used.
type CRDSMeta struct {
	Context string `json:"context,omitempty"`
	Version string `json:"version,omitempty"`
}
