package privacy

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Rule masks every match of Pattern inside free text.
type Rule struct {
	Name    string `yaml:"name" json:"name"`
	Pattern string `yaml:"pattern" json:"pattern"`
	Mask    string `yaml:"mask" json:"mask"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

// RulesConfig drives a Redactor. Values under Fields are masked whole,
// values under Keep are never touched, everything else goes through Rules.
type RulesConfig struct {
	Rules     []Rule   `yaml:"rules" json:"rules"`
	Fields    []string `yaml:"fields" json:"fields"`
	Keep      []string `yaml:"keep" json:"keep"`
	FieldMask string   `yaml:"field_mask" json:"field_mask"`
}

// LoadRules reads a YAML rules file. An empty path yields DefaultRules.
func LoadRules(path string) (RulesConfig, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultRules(), err
	}

	var cfg RulesConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return RulesConfig{}, err
	}
	if len(cfg.Rules) == 0 && len(cfg.Fields) == 0 {
		return RulesConfig{}, errors.New("no redaction rules configured")
	}
	return cfg, nil
}

func DefaultRules() RulesConfig {
	return RulesConfig{
		Rules: []Rule{
			{Name: "email", Pattern: `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`, Mask: "***@***", Enabled: true},
			{Name: "phone", Pattern: `\+?\b\d{3}[\s-]?\d{3}[\s-]?\d{3,4}\b`, Mask: "*** *** ***", Enabled: true},
			{Name: "dob", Pattern: `\b\d{1,2}/\d{1,2}/\d{4}\b`, Mask: "##/##/####", Enabled: true},
		},
		Fields:    []string{"documento", "telefono", "email", "direccion", "nacimiento"},
		Keep:      []string{"id", "actor", "pacienteId", "fecha", "estado", "estadoAnterior"},
		FieldMask: "[redactado]",
	}
}
