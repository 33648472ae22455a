package crds

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	goversion "github.com/hashicorp/go-version"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigDefault

// FilesystemOptions configures the filesystem resolver.
type FilesystemOptions struct {
	// Path is the reference map file; reference paths inside the map are
	// resolved relative to its directory.
	Path string `mapstructure:"path"`
}

// referenceMap is the on-disk index of available reference files.
type referenceMap struct {
	Observatory string           `json:"observatory"`
	Context     string           `json:"context"`
	CRDSVersion string           `json:"crds_version"`
	References  []referenceEntry `json:"references"`
}

// referenceEntry selects one reference file. Empty selection fields match any
// value; UseAfter is compared against the exposure start time.
type referenceEntry struct {
	Kind           string `json:"kind"`
	OpticalElement string `json:"optical_element,omitempty"`
	ExpType        string `json:"exp_type,omitempty"`
	UseAfter       string `json:"useafter,omitempty"`
	Version        string `json:"version"`
	Path           string `json:"path"`
}

// FilesystemClient resolves references from a local reference map, for
// air-gapped runs and pre-synced reference caches.
type FilesystemClient struct {
	baseDir string
	refmap  referenceMap
}

// Ensure FilesystemClient implements the Client interface.
var _ Client = (*FilesystemClient)(nil)

// NewFilesystemClient loads the reference map from disk.
func NewFilesystemClient(opts FilesystemOptions) (*FilesystemClient, error) {
	data, err := os.ReadFile(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolverUnavailable, err)
	}
	var refmap referenceMap
	if err := json.Unmarshal(data, &refmap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrResolverUnavailable, opts.Path, err)
	}
	return &FilesystemClient{
		baseDir: filepath.Dir(opts.Path),
		refmap:  refmap,
	}, nil
}

// GetReferenceFile returns the matching reference with the highest version.
func (c *FilesystemClient) GetReferenceFile(parameters map[string]interface{}, kind string) (string, error) {
	opticalElement, _ := parameters["meta.instrument.optical_element"].(string)
	expType, _ := parameters["meta.exposure.type"].(string)
	startTime, _ := parameters["meta.exposure.start_time"].(string)

	var candidates []referenceEntry
	for _, ref := range c.refmap.References {
		if ref.Kind != kind {
			continue
		}
		if ref.OpticalElement != "" && ref.OpticalElement != opticalElement {
			continue
		}
		if ref.ExpType != "" && ref.ExpType != expType {
			continue
		}
		// Timestamps are formatted so lexicographic order is chronological.
		if ref.UseAfter != "" && startTime != "" && ref.UseAfter > startTime {
			continue
		}
		candidates = append(candidates, ref)
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: kind=%s parameters=%v", ErrReferenceNotFound, kind, parameters)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		vi, erri := goversion.NewVersion(candidates[i].Version)
		vj, errj := goversion.NewVersion(candidates[j].Version)
		if erri != nil || errj != nil {
			return candidates[i].Version < candidates[j].Version
		}
		return vi.LessThan(vj)
	})

	best := candidates[len(candidates)-1]
	return filepath.Join(c.baseDir, best.Path), nil
}

// GetContextUsed returns the reference map's context identifier.
func (c *FilesystemClient) GetContextUsed(observatory string) (string, error) {
	if c.refmap.Observatory != "" && c.refmap.Observatory != observatory {
		return "", fmt.Errorf("%w: observatory %s not covered by reference map (%s)",
			ErrReferenceNotFound, observatory, c.refmap.Observatory)
	}
	return c.refmap.Context, nil
}

// GetSoftwareVersion returns the resolver version recorded in the map.
func (c *FilesystemClient) GetSoftwareVersion() string {
	return c.refmap.CRDSVersion
}
