package crds

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/stellarops/calpipe/pkg/schema"
)

// NewClient constructs the resolver selected by the configuration.
func NewClient(cfg schema.CRDS) (Client, error) {
	switch cfg.Type {
	case "filesystem":
		var opts FilesystemOptions
		if err := parseOptions(cfg.Options, &opts); err != nil {
			return nil, fmt.Errorf("failed to parse filesystem resolver options: %w", err)
		}
		return NewFilesystemClient(opts)

	case "static":
		var opts StaticOptions
		if err := parseOptions(cfg.Options, &opts); err != nil {
			return nil, fmt.Errorf("failed to parse static resolver options: %w", err)
		}
		return NewStaticClient(opts)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownResolver, cfg.Type)
	}
}

func parseOptions(options map[string]interface{}, target interface{}) error {
	return mapstructure.Decode(options, target)
}
