// Package library implements the exposure library: an ordered, fixed-length
// collection of exposure models with bounded-memory checkout/checkin access.
// All member access goes through Borrow/Shelve so the exclusivity invariant is
// enforced at a single choke point.
package library

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/samber/lo"

	"github.com/stellarops/calpipe/pkg/association"
	"github.com/stellarops/calpipe/pkg/datamodel"
	"github.com/stellarops/calpipe/pkg/filesystem"
	log "github.com/stellarops/calpipe/pkg/logger"
)

var (
	// ErrConstruction indicates a malformed manifest or unusable member list.
	ErrConstruction = errors.New("library construction failed")

	// ErrDoubleBorrow indicates a borrow on an index that is already checked out.
	ErrDoubleBorrow = errors.New("model already borrowed")

	// ErrNotBorrowed indicates a shelve on an index that is not checked out.
	ErrNotBorrowed = errors.New("model not borrowed")

	// ErrEmptyLibrary indicates an aggregate operation on a zero-member library.
	ErrEmptyLibrary = errors.New("library has no members")

	// ErrIndexOutOfRange indicates a member index outside [0, Len).
	ErrIndexOutOfRange = errors.New("member index out of range")

	// ErrClosed indicates use of a library after Close.
	ErrClosed = errors.New("library is closed")
)

// member is one library slot: a stable identity plus checkout state.
// path is empty for members constructed from in-memory models.
type member struct {
	path     string
	expType  string
	model    *datamodel.DataModel
	borrowed bool
	dirty    bool
}

// Library is an ordered collection of exposure models. Length is fixed after
// construction; members are mutated in place through the borrow/shelve
// protocol. Not safe for concurrent use without external synchronization.
type Library struct {
	members []member
	lock    filesystem.FileLock
	closed  bool
}

// NewFromModels constructs a library over in-memory models. The models stay
// resident; Close does not persist them anywhere.
func NewFromModels(models []*datamodel.DataModel) (*Library, error) {
	members := make([]member, len(models))
	for i, m := range models {
		if m == nil {
			return nil, fmt.Errorf("%w: nil model at index %d", ErrConstruction, i)
		}
		members[i] = member{model: m, expType: m.Meta.Exposure.Type}
	}
	return &Library{members: members}, nil
}

// NewFromManifest constructs a library from an association manifest. Member
// paths are resolved relative to the manifest's directory. Manifest structure
// is validated eagerly; member file existence is verified at borrow time.
// The library holds an exclusive lock beside the manifest until Close, so two
// processes cannot mutate the same association's backing store concurrently.
func NewFromManifest(path string) (*Library, error) {
	manifest, err := association.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConstruction, err)
	}

	dir := filepath.Dir(path)
	members := make([]member, 0, len(manifest.Members()))
	for _, mb := range manifest.Members() {
		members = append(members, member{
			path:    filepath.Join(dir, mb.ExpName),
			expType: mb.ExpType,
		})
	}

	lock := filesystem.NewFileLock(path)
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConstruction, err)
	}

	return &Library{members: members, lock: lock}, nil
}

// Len returns the member count, fixed for the library's lifetime.
func (l *Library) Len() int {
	return len(l.members)
}

// Borrow materializes the member at index i and checks it out. The caller
// owns the returned model exclusively until it is shelved.
func (l *Library) Borrow(i int) (*datamodel.DataModel, error) {
	if l.closed {
		return nil, ErrClosed
	}
	if i < 0 || i >= len(l.members) {
		return nil, fmt.Errorf("%w: %d (library length %d)", ErrIndexOutOfRange, i, len(l.members))
	}
	m := &l.members[i]
	if m.borrowed {
		return nil, fmt.Errorf("%w: index %d", ErrDoubleBorrow, i)
	}
	if m.model == nil {
		model, err := datamodel.Open(m.path)
		if err != nil {
			return nil, err
		}
		m.model = model
	}
	m.borrowed = true
	return m.model, nil
}

// Shelve checks the member at index i back in. The modify flag is
// authoritative: true marks the member dirty for persistence at Close; false
// drops the resident copy of disk-backed members, so mutations made during
// the borrow are not persisted. Whether bytes actually changed is not
// inspected.
func (l *Library) Shelve(i int, modify bool) error {
	if l.closed {
		return ErrClosed
	}
	if i < 0 || i >= len(l.members) {
		return fmt.Errorf("%w: %d (library length %d)", ErrIndexOutOfRange, i, len(l.members))
	}
	m := &l.members[i]
	if !m.borrowed {
		return fmt.Errorf("%w: index %d", ErrNotBorrowed, i)
	}
	m.borrowed = false
	if modify {
		m.dirty = true
	} else if !m.dirty && m.path != "" {
		// Bounded memory: non-dirty disk-backed members are dropped and
		// re-materialized on the next borrow.
		m.model = nil
	}
	return nil
}

// Observatory returns the reference-resolution namespace for the library.
// Constant for the object's lifetime.
func (l *Library) Observatory() string {
	return datamodel.Observatory
}

// CRDSParameters aggregates the reference-resolution parameters across all
// members, so a group can be resolved once instead of once per member. For
// keys present on several members the first member wins.
func (l *Library) CRDSParameters() (map[string]interface{}, error) {
	if l.closed {
		return nil, ErrClosed
	}
	if len(l.members) == 0 {
		return nil, ErrEmptyLibrary
	}

	params := map[string]interface{}{}
	for i := range l.members {
		m := &l.members[i]
		resident := m.model != nil
		if !resident {
			model, err := datamodel.Open(m.path)
			if err != nil {
				return nil, err
			}
			m.model = model
		}
		for k, v := range m.model.CRDSParameters() {
			if _, ok := params[k]; !ok {
				params[k] = v
			}
		}
		if !resident && !m.borrowed && !m.dirty {
			m.model = nil
		}
	}
	return params, nil
}

// Close reconciles any outstanding borrows, flushes dirty members and
// releases the manifest lock. Members still checked out are shelved without
// persisting, with a warning per member; state is always reconciled before
// Close returns, even when a run is aborted mid-step. Close is idempotent.
func (l *Library) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true

	for i := range l.members {
		if l.members[i].borrowed {
			log.Warn("member still borrowed at close, shelving without persisting",
				"index", i, "path", l.members[i].path)
			l.members[i].borrowed = false
			if !l.members[i].dirty && l.members[i].path != "" {
				l.members[i].model = nil
			}
		}
	}

	dirty := lo.CountBy(l.members, func(m member) bool { return m.dirty })
	if dirty > 0 {
		log.Debug("flushing modified members", "count", dirty, "total", len(l.members))
	}

	var errs []error
	for i := range l.members {
		m := &l.members[i]
		if !m.dirty || m.path == "" {
			continue
		}
		if err := m.model.Save(m.path); err != nil {
			errs = append(errs, fmt.Errorf("flush member %d: %w", i, err))
			continue
		}
		m.dirty = false
		m.model = nil
	}

	if l.lock != nil {
		if err := l.lock.Unlock(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
