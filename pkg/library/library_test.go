package library

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarops/calpipe/pkg/datamodel"
)

func makeModel(factor float64) *datamodel.DataModel {
	m := datamodel.New([2]int{2, 2})
	m.Meta.Instrument = datamodel.InstrumentMeta{Name: "WFC", Detector: "DET01", OpticalElement: "F158"}
	m.Meta.Exposure = datamodel.ExposureMeta{Type: "science", StartTime: time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC)}
	m.Meta.Photometry.ConversionMegajanskys = factor
	copy(m.Data, []float32{1, 2, 3, 4})
	return m
}

// writeAssociation persists n member models and a manifest referencing them,
// returning the manifest path.
func writeAssociation(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()

	manifest := `{"asn_pool": "pool_0001", "products": [{"members": [`
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("exposure_%04d.exp", i)
		m := makeModel(2.0)
		m.Meta.Filename = name
		require.NoError(t, m.Save(filepath.Join(dir, name)))
		if i > 0 {
			manifest += ", "
		}
		manifest += fmt.Sprintf(`{"expname": %q, "exptype": "science"}`, name)
	}
	manifest += `]}]}`

	path := filepath.Join(dir, "test_asn.json")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))
	return path
}

func TestNewFromModels(t *testing.T) {
	lib, err := NewFromModels([]*datamodel.DataModel{makeModel(2.0), makeModel(0.5)})
	require.NoError(t, err)
	defer lib.Close()

	assert.Equal(t, 2, lib.Len())
}

func TestNewFromModelsNilModel(t *testing.T) {
	_, err := NewFromModels([]*datamodel.DataModel{makeModel(2.0), nil})
	assert.ErrorIs(t, err, ErrConstruction)
}

func TestNewFromManifestMalformed(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{"not json", "not a manifest"},
		{"missing pool", `{"products": [{"members": [{"expname": "a.exp", "exptype": "science"}]}]}`},
		{"no products", `{"asn_pool": "pool", "products": []}`},
		{"empty members", `{"asn_pool": "pool", "products": [{"members": []}]}`},
		{"member missing role", `{"asn_pool": "pool", "products": [{"members": [{"expname": "a.exp"}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad_asn.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.manifest), 0o644))

			_, err := NewFromManifest(path)
			assert.ErrorIs(t, err, ErrConstruction)
		})
	}
}

func TestMemberExistenceDeferredToBorrow(t *testing.T) {
	dir := t.TempDir()
	manifest := `{"asn_pool": "pool", "products": [{"members": [{"expname": "missing.exp", "exptype": "science"}]}]}`
	path := filepath.Join(dir, "test_asn.json")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	// Construction succeeds: the manifest is well formed.
	lib, err := NewFromManifest(path)
	require.NoError(t, err)
	defer lib.Close()

	// The missing member surfaces at borrow time.
	_, err = lib.Borrow(0)
	assert.ErrorIs(t, err, datamodel.ErrUnreadableModel)
}

func TestDoubleBorrow(t *testing.T) {
	lib, err := NewFromManifest(writeAssociation(t, 2))
	require.NoError(t, err)
	defer lib.Close()

	_, err = lib.Borrow(0)
	require.NoError(t, err)

	_, err = lib.Borrow(0)
	assert.ErrorIs(t, err, ErrDoubleBorrow)

	// Other members are unaffected.
	_, err = lib.Borrow(1)
	assert.NoError(t, err)

	require.NoError(t, lib.Shelve(0, false))
	require.NoError(t, lib.Shelve(1, false))

	// Shelving clears the checkout; the member can be borrowed again.
	_, err = lib.Borrow(0)
	assert.NoError(t, err)
	require.NoError(t, lib.Shelve(0, false))
}

func TestShelveWithoutBorrow(t *testing.T) {
	lib, err := NewFromManifest(writeAssociation(t, 2))
	require.NoError(t, err)
	defer lib.Close()

	assert.ErrorIs(t, lib.Shelve(0, false), ErrNotBorrowed)
	assert.ErrorIs(t, lib.Shelve(5, false), ErrIndexOutOfRange)
	assert.ErrorIs(t, lib.Shelve(-1, true), ErrIndexOutOfRange)
}

func TestShelveNoModifyRoundTrip(t *testing.T) {
	path := writeAssociation(t, 2)
	memberPath := filepath.Join(filepath.Dir(path), "exposure_0000.exp")

	before, err := os.ReadFile(memberPath)
	require.NoError(t, err)

	lib, err := NewFromManifest(path)
	require.NoError(t, err)

	m, err := lib.Borrow(0)
	require.NoError(t, err)
	m.Data[0] = 999 // mutated, but the modify flag is authoritative
	require.NoError(t, lib.Shelve(0, false))
	require.NoError(t, lib.Close())

	after, err := os.ReadFile(memberPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestShelveModifyPersists(t *testing.T) {
	path := writeAssociation(t, 2)
	memberPath := filepath.Join(filepath.Dir(path), "exposure_0001.exp")

	lib, err := NewFromManifest(path)
	require.NoError(t, err)

	m, err := lib.Borrow(1)
	require.NoError(t, err)
	m.Data[0] = 999
	m.AppendCalLog("mutated")
	require.NoError(t, lib.Shelve(1, true))
	require.NoError(t, lib.Close())

	got, err := datamodel.Open(memberPath)
	require.NoError(t, err)
	assert.Equal(t, float32(999), got.Data[0])
	assert.Equal(t, []string{"mutated"}, got.Meta.CalLogs)
}

func TestBoundedResidency(t *testing.T) {
	lib, err := NewFromManifest(writeAssociation(t, 2))
	require.NoError(t, err)
	defer lib.Close()

	_, err = lib.Borrow(0)
	require.NoError(t, err)
	require.NoError(t, lib.Shelve(0, false))

	// Non-dirty disk-backed members are dropped after shelve.
	assert.Nil(t, lib.members[0].model)

	_, err = lib.Borrow(1)
	require.NoError(t, err)
	require.NoError(t, lib.Shelve(1, true))

	// Dirty members stay resident until flushed at close.
	assert.NotNil(t, lib.members[1].model)
}

func TestBorrowIdentityStable(t *testing.T) {
	models := []*datamodel.DataModel{makeModel(2.0), makeModel(0.5)}
	lib, err := NewFromModels(models)
	require.NoError(t, err)
	defer lib.Close()

	for i, want := range models {
		got, err := lib.Borrow(i)
		require.NoError(t, err)
		assert.Same(t, want, got)
		require.NoError(t, lib.Shelve(i, false))
	}
}

func TestCRDSParameters(t *testing.T) {
	lib, err := NewFromManifest(writeAssociation(t, 2))
	require.NoError(t, err)
	defer lib.Close()

	params, err := lib.CRDSParameters()
	require.NoError(t, err)
	assert.Equal(t, "F158", params["meta.instrument.optical_element"])
	assert.Equal(t, "science", params["meta.exposure.type"])

	// Aggregation does not leave members resident.
	assert.Nil(t, lib.members[0].model)
	assert.Nil(t, lib.members[1].model)

	assert.Equal(t, datamodel.Observatory, lib.Observatory())
}

func TestCRDSParametersEmptyLibrary(t *testing.T) {
	lib, err := NewFromModels(nil)
	require.NoError(t, err)
	defer lib.Close()

	_, err = lib.CRDSParameters()
	assert.ErrorIs(t, err, ErrEmptyLibrary)
}

func TestCloseReconcilesOutstandingBorrows(t *testing.T) {
	path := writeAssociation(t, 3)

	lib, err := NewFromManifest(path)
	require.NoError(t, err)

	m, err := lib.Borrow(1)
	require.NoError(t, err)
	m.Data[0] = 999 // never shelved with modify, must not be persisted
	require.NoError(t, lib.Close())

	// The manifest lock was released and no member is left checked out:
	// a fresh library over the same manifest can borrow every index.
	reopened, err := NewFromManifest(path)
	require.NoError(t, err)
	defer reopened.Close()

	for i := 0; i < reopened.Len(); i++ {
		got, err := reopened.Borrow(i)
		require.NoError(t, err)
		assert.NotEqual(t, float32(999), got.Data[0])
		require.NoError(t, reopened.Shelve(i, false))
	}
}

func TestCloseFlushesOnlyDirtyMembers(t *testing.T) {
	path := writeAssociation(t, 2)
	dir := filepath.Dir(path)

	before0, err := os.ReadFile(filepath.Join(dir, "exposure_0000.exp"))
	require.NoError(t, err)

	lib, err := NewFromManifest(path)
	require.NoError(t, err)

	for i := 0; i < lib.Len(); i++ {
		m, err := lib.Borrow(i)
		require.NoError(t, err)
		m.Data[0] = 999
		require.NoError(t, lib.Shelve(i, i == 1))
	}
	require.NoError(t, lib.Close())

	after0, err := os.ReadFile(filepath.Join(dir, "exposure_0000.exp"))
	require.NoError(t, err)
	assert.Equal(t, before0, after0)

	m1, err := datamodel.Open(filepath.Join(dir, "exposure_0001.exp"))
	require.NoError(t, err)
	assert.Equal(t, float32(999), m1.Data[0])
}

func TestUseAfterClose(t *testing.T) {
	lib, err := NewFromModels([]*datamodel.DataModel{makeModel(2.0)})
	require.NoError(t, err)
	require.NoError(t, lib.Close())

	_, err = lib.Borrow(0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, lib.Shelve(0, false), ErrClosed)

	// Close is idempotent.
	assert.NoError(t, lib.Close())
}

func TestManifestLockExcludesSecondLibrary(t *testing.T) {
	path := writeAssociation(t, 1)

	lib, err := NewFromManifest(path)
	require.NoError(t, err)

	// The manifest is locked for the library's lifetime.
	_, err = NewFromManifest(path)
	assert.ErrorIs(t, err, ErrConstruction)

	require.NoError(t, lib.Close())

	second, err := NewFromManifest(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}
