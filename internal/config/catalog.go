package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vehicletracker/vehicletracker/internal/animation"
	"github.com/vehicletracker/vehicletracker/internal/geo"
)

// CatalogFile is the YAML layout of ROUTE_CATALOG_FILE:
//
//	options:
//	  - key: today
//	    label: Live Route (Today)
//	    start: {lat: 28.6139, lng: 77.2109}
//	    end:   {lat: 28.6199, lng: 77.2400}
//	    distance_km: 12
//	    estimated_minutes: 25
//	    waypoints: [{lat: 28.6139, lng: 77.2109}, ...] # optional
type CatalogFile struct {
	Options []OptionEntry `yaml:"options" validate:"required,min=1,unique=Key,dive"`
}

// OptionEntry is one option in the catalog file.
type OptionEntry struct {
	Key              string       `yaml:"key" validate:"required,alphanum,max=32"`
	Label            string       `yaml:"label" validate:"required,max=80"`
	Start            PointEntry   `yaml:"start"`
	End              PointEntry   `yaml:"end"`
	DistanceKm       float64      `yaml:"distance_km" validate:"gt=0"`
	EstimatedMinutes float64      `yaml:"estimated_minutes" validate:"gt=0"`
	Waypoints        []PointEntry `yaml:"waypoints" validate:"omitempty,min=2,dive"`
}

// PointEntry is a lat/lng pair.
type PointEntry struct {
	Lat float64 `yaml:"lat" validate:"latitude"`
	Lng float64 `yaml:"lng" validate:"longitude"`
}

func (p PointEntry) coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: p.Lat, Lng: p.Lng}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadCatalog returns the default catalog when path is empty, otherwise the parsed file.
func LoadCatalog(path string) (*animation.Catalog, error) {
	if path == "" {
		return animation.DefaultCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	return ParseCatalog(f)
}

// ParseCatalog decodes and validates a YAML catalog. Unknown fields are rejected.
func ParseCatalog(r io.Reader) (*animation.Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file CatalogFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if err := validate.Struct(file); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	opts := make([]animation.OptionConfig, 0, len(file.Options))
	for _, o := range file.Options {
		cfg := animation.OptionConfig{
			Key:              animation.Option(o.Key),
			Label:            o.Label,
			Start:            o.Start.coordinate(),
			End:              o.End.coordinate(),
			DistanceKm:       o.DistanceKm,
			EstimatedMinutes: o.EstimatedMinutes,
		}
		for _, w := range o.Waypoints {
			cfg.Waypoints = append(cfg.Waypoints, w.coordinate())
		}
		opts = append(opts, cfg)
	}
	return animation.NewCatalog(opts...)
}
