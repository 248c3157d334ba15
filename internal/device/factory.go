package device

import (
	"fmt"
	"strings"

	"github.com/constructorfleet/govee-ultimate-sub000/internal/catalog"
	"github.com/constructorfleet/govee-ultimate-sub000/internal/state"
)

// Factory materializes the capability states for one device family.
type Factory func(meta Metadata, cat *catalog.Catalog) (*Device, error)

// modelPrefixFactories maps model-number prefixes to device families.
// Longer prefixes are listed first; the first match wins.
var modelPrefixFactories = []struct {
	prefix  string
	factory Factory
}{
	{"H714", NewHumidifier},
	{"H600", NewRGBLight},
	{"H61", NewRGBLight},
	{"H5", NewHygrometer},
}

// Build resolves the factory for the metadata's model and constructs the
// device. Model prefixes are checked first, then category keywords.
//
// Returns:
//   - *Device: The constructed device with its states registered
//   - error: ErrUnsupportedModel when nothing matches, or a catalog failure
func Build(meta Metadata, cat *catalog.Catalog) (*Device, error) {
	if factory := resolveFactory(meta); factory != nil {
		return factory(meta, cat)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, meta.Model)
}

func resolveFactory(meta Metadata) Factory {
	model := strings.ToUpper(meta.Model)
	for _, entry := range modelPrefixFactories {
		if strings.HasPrefix(model, entry.prefix) {
			return entry.factory
		}
	}

	group := strings.ToLower(meta.CategoryGroup)
	category := strings.ToLower(meta.Category)
	if strings.Contains(group, "hygro") || strings.Contains(category, "hygro") ||
		strings.Contains(group, "thermo") || strings.Contains(category, "thermo") {
		return NewHygrometer
	}
	for _, keyword := range []string{"light", "lighting", "lamp"} {
		if strings.Contains(group, keyword) || strings.Contains(category, keyword) {
			return NewRGBLight
		}
	}
	return nil
}

// NewRGBLight builds a standard RGB light: power, active, brightness and
// colour states.
func NewRGBLight(meta Metadata, cat *catalog.Catalog) (*Device, error) {
	d := New(meta)

	power, err := state.NewPowerState(cat)
	if err != nil {
		return nil, err
	}
	d.AddState(power)

	active, err := state.NewActiveState(cat)
	if err != nil {
		return nil, err
	}
	d.AddState(active)

	brightness, err := state.NewBrightnessState(cat)
	if err != nil {
		return nil, err
	}
	d.AddState(brightness)

	color, err := state.NewColorRGBState(cat)
	if err != nil {
		return nil, err
	}
	d.AddState(color)

	return d, nil
}

// NewHumidifier builds a humidifier: power, active, humidity reading and
// the composite operating mode.
func NewHumidifier(meta Metadata, cat *catalog.Catalog) (*Device, error) {
	d := New(meta)

	power, err := state.NewPowerState(cat)
	if err != nil {
		return nil, err
	}
	d.AddState(power)

	active, err := state.NewActiveState(cat)
	if err != nil {
		return nil, err
	}
	d.AddState(active)

	humidity, err := state.NewHumidityState(cat)
	if err != nil {
		return nil, err
	}
	d.AddState(humidity)

	mode, err := state.NewHumidifierModeState(cat)
	if err != nil {
		return nil, err
	}
	d.AddState(mode)

	return d, nil
}

// NewHygrometer builds a read-only sensor device reporting humidity.
func NewHygrometer(meta Metadata, cat *catalog.Catalog) (*Device, error) {
	d := New(meta)

	humidity, err := state.NewHumidityState(cat)
	if err != nil {
		return nil, err
	}
	d.AddState(humidity)

	return d, nil
}
