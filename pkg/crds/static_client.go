package crds

import "fmt"

// StaticOptions configures the static resolver: a fixed kind-to-path mapping.
type StaticOptions struct {
	Context    string            `mapstructure:"context"`
	Version    string            `mapstructure:"version"`
	References map[string]string `mapstructure:"references"`
}

// StaticClient resolves references from a fixed in-memory mapping, used in
// tests and for runs with pre-selected references.
type StaticClient struct {
	context    string
	version    string
	references map[string]string
}

// Ensure StaticClient implements the Client interface.
var _ Client = (*StaticClient)(nil)

// NewStaticClient initializes a static resolver.
func NewStaticClient(opts StaticOptions) (*StaticClient, error) {
	refs := opts.References
	if refs == nil {
		refs = map[string]string{}
	}
	return &StaticClient{
		context:    opts.Context,
		version:    opts.Version,
		references: refs,
	}, nil
}

// GetReferenceFile returns the fixed path for the given kind.
func (c *StaticClient) GetReferenceFile(parameters map[string]interface{}, kind string) (string, error) {
	path, ok := c.references[kind]
	if !ok {
		return "", fmt.Errorf("%w: kind=%s parameters=%v", ErrReferenceNotFound, kind, parameters)
	}
	return path, nil
}

// GetContextUsed returns the configured context identifier.
func (c *StaticClient) GetContextUsed(observatory string) (string, error) {
	return c.context, nil
}

// GetSoftwareVersion returns the configured resolver version.
func (c *StaticClient) GetSoftwareVersion() string {
	return c.version
}
