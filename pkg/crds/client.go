// Package crds is the reference-data resolver boundary. Given a model's
// resolution parameters and a reference kind, a Client returns the matching
// versioned reference artifact plus the context identifiers used for
// provenance stamping. The resolution service itself is external; this
// package only queries it.
package crds

import "errors"

var (
	// ErrReferenceNotFound indicates the resolver has no reference matching the
	// given parameters. This is a configuration or data error, never retried.
	ErrReferenceNotFound = errors.New("no matching reference file")

	// ErrResolverUnavailable indicates a transport or I/O failure talking to
	// the resolver, distinct from a missing match.
	ErrResolverUnavailable = errors.New("reference resolver unavailable")

	// ErrUnknownResolver indicates an unrecognized resolver type in the configuration.
	ErrUnknownResolver = errors.New("resolver type not found")
)

// Client resolves reference data for exposure models. Resolution is a pure
// function of parameters within a run: identical parameters yield identical
// paths. Implementations are read-only and externally synchronized.
type Client interface {
	// GetReferenceFile returns the path of the best matching reference of the
	// given kind, or ErrReferenceNotFound.
	GetReferenceFile(parameters map[string]interface{}, kind string) (string, error)

	// GetContextUsed returns the resolver context identifier for an observatory.
	GetContextUsed(observatory string) (string, error)

	// GetSoftwareVersion returns the resolver's own version identifier.
	GetSoftwareVersion() string
}
