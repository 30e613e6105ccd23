package location

import (
	"fmt"

	"github.com/oshokin/sos-button/internal/config"
	domain "github.com/oshokin/sos-button/internal/domain/sos"
)

// New builds the provider selected by cfg. The configuration is expected to be validated.
func New(cfg config.Location, opts ...IPLookupOption) (Provider, error) {
	switch cfg.Provider {
	case config.LocationNone, "":
		return Unavailable{}, nil
	case config.LocationStatic:
		static, err := NewStatic(domain.Coordinate{
			Latitude:  cfg.Latitude,
			Longitude: cfg.Longitude,
		})
		if err != nil {
			return nil, err
		}

		return static, nil
	case config.LocationIP:
		opts = append([]IPLookupOption{WithLookupTimeout(cfg.Timeout)}, opts...)

		lookup, err := NewIPLookup(cfg.LookupURL, opts...)
		if err != nil {
			return nil, err
		}

		return lookup, nil
	default:
		return nil, fmt.Errorf("location provider %q: %w", cfg.Provider, errUnknownProvider)
	}
}
