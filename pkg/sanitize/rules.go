package sanitize

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// defaultEmailPattern matches a conservative local@domain.tld shape with a
// TLD of at least two letters.
const defaultEmailPattern = `^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`

// defaultKeyFragments is the built-in denylist of sensitive key fragments.
// A property is dropped when its lower-cased key contains any fragment.
var defaultKeyFragments = []string{
	"email",
	"password",
	"token",
	"auth",
	"apikey",
	"api_key",
	"api-key",
	"ssn",
	"credit",
	"card",
	"phone",
	"address",
	"name",
	"ip",
}

// Rules is the PII detection policy: key fragments to deny and a value
// pattern for email addresses.
type Rules struct {
	KeyFragments []string
	EmailPattern *regexp.Regexp
}

// DefaultRules returns the built-in detection policy.
func DefaultRules() *Rules {
	return &Rules{
		KeyFragments: append([]string(nil), defaultKeyFragments...),
		EmailPattern: regexp.MustCompile(defaultEmailPattern),
	}
}

// ruleFile is the YAML representation of a rule set.
type ruleFile struct {
	KeyFragments []string `yaml:"key_fragments"`
	EmailPattern string   `yaml:"email_pattern"`
}

// FromYAML parses a rule set from YAML. Omitted fields fall back to the
// built-in policy so a file can override just the fragment list.
func FromYAML(data []byte) (*Rules, error) {
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing rule file: %w", err)
	}

	rules := DefaultRules()
	if len(rf.KeyFragments) > 0 {
		rules.KeyFragments = rf.KeyFragments
	}
	if rf.EmailPattern != "" {
		pattern, err := regexp.Compile(rf.EmailPattern)
		if err != nil {
			return nil, fmt.Errorf("compiling email pattern: %w", err)
		}
		rules.EmailPattern = pattern
	}
	return rules, nil
}

// LoadRulesFile reads and parses a YAML rule file.
func LoadRulesFile(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file: %w", err)
	}
	return FromYAML(data)
}
