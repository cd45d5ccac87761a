package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/URMC/urHL7/internal/platform/hl7v2"
)

// File is the YAML document layout:
//
//	rules:
//	  - path: PID-3
//	    rule: exist
//	  - path: OBX-5
//	    rule: numeric
type File struct {
	Rules []Rule `yaml:"rules"`
}

// Parse decodes a rule document. Unknown kinds and malformed paths are
// errors.
func Parse(data []byte) (Set, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rule file: %w", err)
	}
	set := make(Set, 0, len(f.Rules))
	for i, r := range f.Rules {
		if r.Kind == "" {
			return nil, fmt.Errorf("rule %d (%s): missing rule kind", i+1, r.Path)
		}
		loc, err := hl7v2.ParseLocation(r.Path)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		r.Location = loc
		set = append(set, r)
	}
	return set, nil
}

// LoadFile reads and parses the rule document at path.
func LoadFile(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	return Parse(data)
}
