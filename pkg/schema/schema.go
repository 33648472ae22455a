// Package schema defines the calpipe configuration structures.
package schema

// Configuration is the top-level calpipe configuration, loaded from
// calpipe.yaml and CALPIPE_* environment variables.
type Configuration struct {
	Logs Logs `yaml:"logs" json:"logs" mapstructure:"logs"`
	CRDS CRDS `yaml:"crds" json:"crds" mapstructure:"crds"`
}

// Logs configures the logger.
type Logs struct {
	Level string `yaml:"level" json:"level" mapstructure:"level"`
	File  string `yaml:"file" json:"file" mapstructure:"file"`
}

// CRDS configures the reference-data resolver. Options are resolver-specific
// and decoded by the selected resolver implementation.
type CRDS struct {
	Type    string                 `yaml:"type" json:"type" mapstructure:"type"`
	Options map[string]interface{} `yaml:"options" json:"options" mapstructure:"options"`
}
