// Package association parses and validates association manifests: ordered
// lists of member exposures with roles, grouped for combined processing.
// Manifests are consumed, never produced, by this pipeline.
package association

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed asn_schema.json
var manifestSchema string

// ErrInvalidManifest indicates a manifest whose structure does not conform to
// the association schema.
var ErrInvalidManifest = errors.New("invalid association manifest")

var json = jsoniter.ConfigDefault

// Member is one exposure within an association product.
type Member struct {
	ExpName string `json:"expname"`
	ExpType string `json:"exptype"`
}

// Product groups the members that are combined into one output.
type Product struct {
	Name    string   `json:"name,omitempty"`
	Members []Member `json:"members"`
}

// Manifest is a parsed association manifest.
type Manifest struct {
	AsnPool  string    `json:"asn_pool"`
	AsnType  string    `json:"asn_type,omitempty"`
	Products []Product `json:"products"`
}

// Members returns the members of the first product, in manifest order.
// Multi-product associations are processed one product at a time; the first
// product carries the science members.
func (m *Manifest) Members() []Member {
	if len(m.Products) == 0 {
		return nil
	}
	return m.Products[0].Members
}

// MemberNames returns the expnames of the first product's members.
func (m *Manifest) MemberNames() []string {
	return lo.Map(m.Members(), func(mb Member, _ int) string {
		return mb.ExpName
	})
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func compiled() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("asn_schema.json", strings.NewReader(manifestSchema)); err != nil {
			compileErr = err
			return
		}
		compiledSchema, compileErr = compiler.Compile("asn_schema.json")
	})
	return compiledSchema, compileErr
}

// Load reads and validates a manifest from path. Malformed structure fails
// immediately; member file existence is not verified here.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, path, err)
	}
	return Parse(data)
}

// Parse validates raw manifest bytes against the association schema and
// decodes them.
func Parse(data []byte) (*Manifest, error) {
	schema, err := compiled()
	if err != nil {
		return nil, err
	}

	// jsonschema validates decoded documents, not raw bytes.
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidManifest, ve.Error())
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return &manifest, nil
}
