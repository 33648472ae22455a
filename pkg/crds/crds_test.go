package crds

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarops/calpipe/pkg/schema"
)

const testReferenceMap = `{
  "observatory": "stellar",
  "context": "stellar_0042.pmap",
  "crds_version": "12.0.1",
  "references": [
    {"kind": "flat", "optical_element": "F158", "useafter": "2020-01-01T00:00:00", "version": "1.0.0", "path": "flat_f158_0001.exp"},
    {"kind": "flat", "optical_element": "F158", "useafter": "2020-01-01T00:00:00", "version": "2.1.0", "path": "flat_f158_0002.exp"},
    {"kind": "flat", "optical_element": "F213", "useafter": "2020-01-01T00:00:00", "version": "1.0.0", "path": "flat_f213_0001.exp"},
    {"kind": "dark", "useafter": "2022-06-01T00:00:00", "version": "1.0.0", "path": "dark_0001.exp"}
  ]
}`

func writeReferenceMap(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "refmap.json")
	require.NoError(t, os.WriteFile(path, []byte(testReferenceMap), 0o644))
	return path
}

func testParameters() map[string]interface{} {
	return map[string]interface{}{
		"meta.instrument.optical_element": "F158",
		"meta.exposure.type":              "science",
		"meta.exposure.start_time":        "2021-01-01T12:00:00",
	}
}

func TestNewClientRegistry(t *testing.T) {
	tests := []struct {
		name    string
		cfg     schema.CRDS
		wantErr error
	}{
		{
			name: "static",
			cfg:  schema.CRDS{Type: "static", Options: map[string]interface{}{"context": "ctx"}},
		},
		{
			name:    "unknown type",
			cfg:     schema.CRDS{Type: "remote"},
			wantErr: ErrUnknownResolver,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestNewClientFilesystem(t *testing.T) {
	client, err := NewClient(schema.CRDS{
		Type:    "filesystem",
		Options: map[string]interface{}{"path": writeReferenceMap(t)},
	})
	require.NoError(t, err)
	assert.Equal(t, "12.0.1", client.GetSoftwareVersion())
}

func TestFilesystemResolvePicksHighestVersion(t *testing.T) {
	client, err := NewFilesystemClient(FilesystemOptions{Path: writeReferenceMap(t)})
	require.NoError(t, err)

	path, err := client.GetReferenceFile(testParameters(), "flat")
	require.NoError(t, err)
	assert.Equal(t, "flat_f158_0002.exp", filepath.Base(path))
}

func TestFilesystemResolveIsPure(t *testing.T) {
	client, err := NewFilesystemClient(FilesystemOptions{Path: writeReferenceMap(t)})
	require.NoError(t, err)

	first, err := client.GetReferenceFile(testParameters(), "flat")
	require.NoError(t, err)
	second, err := client.GetReferenceFile(testParameters(), "flat")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFilesystemResolveNotFound(t *testing.T) {
	client, err := NewFilesystemClient(FilesystemOptions{Path: writeReferenceMap(t)})
	require.NoError(t, err)

	tests := []struct {
		name   string
		params map[string]interface{}
		kind   string
	}{
		{"unknown kind", testParameters(), "distortion"},
		{
			"no matching element",
			map[string]interface{}{
				"meta.instrument.optical_element": "GRISM",
				"meta.exposure.start_time":        "2021-01-01T12:00:00",
			},
			"flat",
		},
		{
			"before useafter",
			map[string]interface{}{
				"meta.exposure.start_time": "2021-01-01T12:00:00",
			},
			"dark",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.GetReferenceFile(tt.params, tt.kind)
			assert.ErrorIs(t, err, ErrReferenceNotFound)
			// Parameters are included for diagnosis.
			if tt.kind == "flat" {
				assert.Contains(t, err.Error(), "GRISM")
			}
		})
	}
}

func TestFilesystemContext(t *testing.T) {
	client, err := NewFilesystemClient(FilesystemOptions{Path: writeReferenceMap(t)})
	require.NoError(t, err)

	context, err := client.GetContextUsed("stellar")
	require.NoError(t, err)
	assert.Equal(t, "stellar_0042.pmap", context)

	_, err = client.GetContextUsed("other")
	assert.ErrorIs(t, err, ErrReferenceNotFound)
}

func TestFilesystemUnavailable(t *testing.T) {
	_, err := NewFilesystemClient(FilesystemOptions{Path: filepath.Join(t.TempDir(), "nope.json")})
	assert.ErrorIs(t, err, ErrResolverUnavailable)
}

func TestStaticClient(t *testing.T) {
	client, err := NewStaticClient(StaticOptions{
		Context:    "stellar_0001.pmap",
		Version:    "1.0.0",
		References: map[string]string{"flat": "/refs/flat.exp"},
	})
	require.NoError(t, err)

	path, err := client.GetReferenceFile(nil, "flat")
	require.NoError(t, err)
	assert.Equal(t, "/refs/flat.exp", path)

	_, err = client.GetReferenceFile(nil, "dark")
	assert.ErrorIs(t, err, ErrReferenceNotFound)

	context, err := client.GetContextUsed("stellar")
	require.NoError(t, err)
	assert.Equal(t, "stellar_0001.pmap", context)
	assert.Equal(t, "1.0.0", client.GetSoftwareVersion())
}
