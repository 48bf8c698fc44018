package unit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlRosterFile is the top-level YAML structure of a unit profile file.
type yamlRosterFile struct {
	Attackers []Attacker     `yaml:"attackers"`
	Defenders []yamlDefender `yaml:"defenders"`
}

// yamlDefender records whether current_stands was present, so that an
// explicit 0 is kept while an absent value defaults to full strength.
type yamlDefender struct {
	Defender
	hasCurrentStands bool
}

// UnmarshalYAML decodes the profile and notes the presence of current_stands.
func (y *yamlDefender) UnmarshalYAML(node *yaml.Node) error {
	if err := node.Decode(&y.Defender); err != nil {
		return err
	}
	var presence struct {
		CurrentStands *int `yaml:"current_stands"`
	}
	if err := node.Decode(&presence); err != nil {
		return err
	}
	y.hasCurrentStands = presence.CurrentStands != nil
	return nil
}

// Roster holds named attacker and defender profiles.
type Roster struct {
	Attackers map[string]Attacker
	Defenders map[string]Defender
}

// NewRoster returns an empty Roster.
func NewRoster() *Roster {
	return &Roster{
		Attackers: make(map[string]Attacker),
		Defenders: make(map[string]Defender),
	}
}

// add validates and registers every profile in file.
//
// Postcondition: Returns an error on the first invalid or duplicate profile;
// profiles added before the error remain registered.
func (r *Roster) add(file yamlRosterFile) error {
	for _, a := range file.Attackers {
		if a.Name == "" {
			return fmt.Errorf("attacker profile: name must not be empty")
		}
		if _, dup := r.Attackers[a.Name]; dup {
			return fmt.Errorf("attacker profile %q: duplicate name", a.Name)
		}
		if a.Rerolls == "" {
			a.Rerolls = RerollNone
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("attacker profile %q: %w", a.Name, err)
		}
		r.Attackers[a.Name] = a
	}
	for _, yd := range file.Defenders {
		d := yd.Defender
		if d.Name == "" {
			return fmt.Errorf("defender profile: name must not be empty")
		}
		if _, dup := r.Defenders[d.Name]; dup {
			return fmt.Errorf("defender profile %q: duplicate name", d.Name)
		}
		if d.DefensiveRerolls == "" {
			d.DefensiveRerolls = RerollNone
		}
		if d.MoraleRerolls == "" {
			d.MoraleRerolls = RerollNone
		}
		if !yd.hasCurrentStands {
			d.CurrentStands = d.Stands
		}
		if err := d.Validate(); err != nil {
			return fmt.Errorf("defender profile %q: %w", d.Name, err)
		}
		r.Defenders[d.Name] = d
	}
	return nil
}

// AttackerNames returns the registered attacker names in sorted order.
func (r *Roster) AttackerNames() []string {
	return sortedKeys(r.Attackers)
}

// DefenderNames returns the registered defender names in sorted order.
func (r *Roster) DefenderNames() []string {
	return sortedKeys(r.Defenders)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadRosterFromBytes parses and validates unit profiles from YAML bytes.
//
// Postcondition: Returns a Roster of validated profiles or a non-nil error.
func LoadRosterFromBytes(data []byte) (*Roster, error) {
	var file yamlRosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing unit profile YAML: %w", err)
	}
	r := NewRoster()
	if err := r.add(file); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadRosterFromDir loads every *.yaml / *.yml file in dir, in lexicographic
// order, into a single Roster.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns the merged Roster or the first error encountered.
func LoadRosterFromDir(dir string) (*Roster, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading unit profile directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	r := NewRoster()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading unit profile file %s: %w", path, err)
		}
		var file yamlRosterFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parsing unit profile file %s: %w", path, err)
		}
		if err := r.add(file); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return r, nil
}
