package books

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ConfigVersion is the ledger configuration format version this package reads.
const ConfigVersion = 1

// Matching selects the transactions of an account whose description contains
// any of MatchStrings. An empty AccountName is a wildcard matching every
// source account.
type Matching struct {
	AccountName  string   `json:"account" yaml:"account"`
	MatchStrings []string `json:"match" yaml:"match"`
}

// IsWildcard reports whether m applies to every source account.
func (m Matching) IsWildcard() bool { return m.AccountName == "" }

// DerivedAccountSpec defines a virtual account built from matched
// transactions of source accounts.
//
// Either Matchings holds exactly one wildcard matching, or every matching
// names its account.
type DerivedAccountSpec struct {
	Name       string          `json:"name" yaml:"name"`
	Matchings  []Matching      `json:"matchings" yaml:"matchings"`
	StartValue decimal.Decimal `json:"start_value" yaml:"start_value"`
}

// IsWildcard reports whether the spec applies its matching to every source account.
func (s DerivedAccountSpec) IsWildcard() bool {
	return len(s.Matchings) == 1 && s.Matchings[0].IsWildcard()
}

// Validate checks the matching mode and the match strings.
func (s DerivedAccountSpec) Validate() error {
	if s.Name == "" {
		return &ConfigurationError{Unit: s.Name, Reason: "derived account without a name"}
	}
	if len(s.Matchings) == 0 {
		return &ConfigurationError{Unit: s.Name, Reason: "no matchings"}
	}
	wildcards := 0
	for _, m := range s.Matchings {
		if m.IsWildcard() {
			wildcards++
		}
		if err := validateMatchStrings(m.MatchStrings); err != nil {
			return &ConfigurationError{Unit: s.Name, Reason: err.Error()}
		}
	}
	if wildcards > 0 && len(s.Matchings) > 1 {
		return &ConfigurationError{Unit: s.Name, Reason: "a wildcard matching cannot be combined with other matchings"}
	}
	return nil
}

// InternalTransactionMapping pairs transfers leaving FromAccount with the
// transfers arriving in ToAccount.
type InternalTransactionMapping struct {
	FromAccount      string   `json:"from" yaml:"from"`
	FromMatchStrings []string `json:"from_match" yaml:"from_match"`
	ToAccount        string   `json:"to" yaml:"to"`
	ToMatchStrings   []string `json:"to_match" yaml:"to_match"`
	// Strict turns any discrepancy between the two sides into a failure of the
	// mapping instead of a warning.
	Strict bool `json:"strict,omitempty" yaml:"strict"`
}

// Name identifies the mapping in logs and errors.
func (m InternalTransactionMapping) Name() string {
	return m.FromAccount + " -> " + m.ToAccount
}

// Validate checks the accounts and match strings of the mapping.
func (m InternalTransactionMapping) Validate() error {
	if m.FromAccount == "" || m.ToAccount == "" {
		return &ConfigurationError{Unit: m.Name(), Reason: "both accounts are required"}
	}
	if m.FromAccount == m.ToAccount {
		return &ConfigurationError{Unit: m.Name(), Reason: "an account cannot be mapped to itself"}
	}
	if err := validateMatchStrings(m.FromMatchStrings); err != nil {
		return &ConfigurationError{Unit: m.Name(), Reason: "from: " + err.Error()}
	}
	if err := validateMatchStrings(m.ToMatchStrings); err != nil {
		return &ConfigurationError{Unit: m.Name(), Reason: "to: " + err.Error()}
	}
	return nil
}

// validateMatchStrings rejects lists that would match every description.
func validateMatchStrings(strs []string) error {
	if len(strs) == 0 {
		return errors.New("no match strings")
	}
	for _, s := range strs {
		if s == "" {
			return errors.New("empty match string")
		}
	}
	return nil
}

// Config is the ledger configuration document.
type Config struct {
	Version  int                          `json:"version" yaml:"version"`
	Derived  []DerivedAccountSpec         `json:"derived" yaml:"derived"`
	Internal []InternalTransactionMapping `json:"internal" yaml:"internal"`
}

// Validate reports every configuration error of the document. Assembly does
// not need a valid document: it isolates invalid units.
func (c *Config) Validate() error {
	var errs []error
	names := make(map[string]bool)
	for _, s := range c.Derived {
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
		}
		if names[s.Name] {
			errs = append(errs, &ConfigurationError{Unit: s.Name, Reason: "derived account defined twice"})
		}
		names[s.Name] = true
	}
	for _, m := range c.Internal {
		if err := m.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DecodeConfig reads a YAML (or JSON) ledger configuration.
func DecodeConfig(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var c Config
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return &Config{Version: ConfigVersion}, nil
		}
		return nil, fmt.Errorf("could not decode ledger configuration: %w", err)
	}
	if c.Version == 0 {
		c.Version = ConfigVersion
	}
	if c.Version != ConfigVersion {
		return nil, fmt.Errorf("unsupported ledger configuration version %d, want %d", c.Version, ConfigVersion)
	}
	return &c, nil
}

// LoadConfig reads the ledger configuration file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open ledger configuration %q: %w", path, err)
	}
	defer f.Close()
	c, err := DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
