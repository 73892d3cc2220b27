package config

import (
	"agro-route-service/internal/domain"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrUnknownLocality = errors.New("unknown locality")

// Locality is a named place usable as a transporter base.
type Locality struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

type localitiesFile struct {
	Default    string     `yaml:"default"`
	Localities []Locality `yaml:"localities"`
}

// Localities is the lookup table of known bases. Unknown names resolve to
// the default locality.
type Localities struct {
	Default string
	entries []Locality
	byName  map[string]domain.Coordinates
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// NewLocalities builds a table; defaultName must be one of entries.
func NewLocalities(defaultName string, entries []Locality) (*Localities, error) {
	l := &Localities{
		Default: defaultName,
		entries: make([]Locality, 0, len(entries)),
		byName:  make(map[string]domain.Coordinates, len(entries)),
	}

	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("new localities: entry %d: name must be non-empty", i+1)
		}
		key := normalizeName(name)
		if _, dup := l.byName[key]; dup {
			return nil, fmt.Errorf("new localities: duplicate locality %q", name)
		}
		l.byName[key] = domain.Coordinates{Lat: e.Lat, Lon: e.Lon}
		l.entries = append(l.entries, Locality{Name: name, Lat: e.Lat, Lon: e.Lon})
	}

	if _, ok := l.byName[normalizeName(defaultName)]; !ok {
		return nil, fmt.Errorf("new localities: default %q: %w", defaultName, ErrUnknownLocality)
	}

	return l, nil
}

// LoadLocalities reads a YAML locality table from path.
func LoadLocalities(path string) (*Localities, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load localities: read %q: %w", path, err)
	}

	var f localitiesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("load localities: parse yaml: %w", err)
	}

	l, err := NewLocalities(f.Default, f.Localities)
	if err != nil {
		return nil, fmt.Errorf("load localities: %w", err)
	}
	return l, nil
}

// DefaultLocalities returns the Boyacá bases used when no table is configured.
func DefaultLocalities() *Localities {
	l, err := NewLocalities("Tunja", []Locality{
		{Name: "Tunja", Lat: 5.5353, Lon: -73.3678},
		{Name: "Duitama", Lat: 5.8269, Lon: -73.0347},
		{Name: "Sogamoso", Lat: 5.7147, Lon: -72.9342},
		{Name: "Paipa", Lat: 5.7808, Lon: -73.1175},
		{Name: "Chiquinquirá", Lat: 5.6181, Lon: -73.8169},
		{Name: "Villa de Leyva", Lat: 5.6378, Lon: -73.5264},
		{Name: "Nobsa", Lat: 5.7703, Lon: -72.9486},
		{Name: "Tibasosa", Lat: 5.7506, Lon: -72.9828},
		{Name: "Moniquirá", Lat: 5.8753, Lon: -73.5750},
		{Name: "Samacá", Lat: 5.4892, Lon: -73.4956},
	})
	if err != nil {
		panic(err)
	}
	return l
}

// Resolve returns the coordinates for name, falling back to the default
// locality for unknown or empty names.
func (l *Localities) Resolve(name string) (domain.Coordinates, error) {
	if c, ok := l.byName[normalizeName(name)]; ok {
		return c, nil
	}
	if c, ok := l.byName[normalizeName(l.Default)]; ok {
		return c, nil
	}
	return domain.Coordinates{}, fmt.Errorf("resolve locality %q: %w", name, ErrUnknownLocality)
}

// Entries returns the table in definition order.
func (l *Localities) Entries() []Locality {
	out := make([]Locality, len(l.entries))
	copy(out, l.entries)
	return out
}

// LocalitiesFromMap builds a table from stored name -> coordinate pairs,
// ordered by name.
func LocalitiesFromMap(defaultName string, m map[string]domain.Coordinates) (*Localities, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)

	entries := make([]Locality, 0, len(names))
	for _, name := range names {
		c := m[name]
		entries = append(entries, Locality{Name: name, Lat: c.Lat, Lon: c.Lon})
	}
	return NewLocalities(defaultName, entries)
}

// Coordinates returns the table as a name -> coordinate map.
func (l *Localities) Coordinates() map[string]domain.Coordinates {
	out := make(map[string]domain.Coordinates, len(l.entries))
	for _, e := range l.entries {
		out[e.Name] = domain.Coordinates{Lat: e.Lat, Lon: e.Lon}
	}
	return out
}
