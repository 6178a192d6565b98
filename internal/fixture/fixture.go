// Package fixture loads declarative VM test scenarios from an embedded YAML
// manifest, the way the wider corpus keeps hand-written Go test bodies thin
// and pushes per-case expectations (names, flags, expected outcomes) into a
// data file that a shared driver walks. Each scenario only carries the
// expected outcome; the bytecode program for a given scenario name is still
// built in Go (via internal/asm), since a VM program is not a reasonable
// thing to spell out as YAML data.
package fixture

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed scenarios.yaml
var manifestFS embed.FS

// Scenario is one named case: a program (identified by Name, built
// elsewhere) and the outcome it's expected to produce.
type Scenario struct {
	Name string `yaml:"name"`

	// Kind selects which of Value/Fault applies: "int", "float", or
	// "fault".
	Kind string `yaml:"kind"`

	Value float64 `yaml:"value"`
	Fault string  `yaml:"fault"`
}

// Manifest is the full set of scenarios declared in scenarios.yaml.
type Manifest struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Load parses the embedded scenario manifest.
func Load() (Manifest, error) {
	data, err := manifestFS.ReadFile("scenarios.yaml")
	if err != nil {
		return Manifest{}, fmt.Errorf("fixture: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("fixture: parsing scenarios.yaml: %w", err)
	}
	return m, nil
}

// ByName finds a scenario, panicking if a test references a name the
// manifest doesn't declare — a missing entry means the YAML and the Go test
// driver have drifted apart.
func (m Manifest) ByName(name string) Scenario {
	for _, s := range m.Scenarios {
		if s.Name == name {
			return s
		}
	}
	panic(fmt.Sprintf("fixture: no scenario named %q in scenarios.yaml", name))
}
