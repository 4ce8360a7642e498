// Package privacy masks contact and identity data before it is persisted
// outside the patient tables.
package privacy

import (
	"regexp"
)

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

type Redactor struct {
	rules     []compiledRule
	fields    map[string]struct{}
	keep      map[string]struct{}
	fieldMask string
}

func NewRedactor(cfg RulesConfig) (*Redactor, error) {
	var compiled []compiledRule
	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}
	mask := cfg.FieldMask
	if mask == "" {
		mask = "***"
	}
	return &Redactor{
		rules:     compiled,
		fields:    toSet(cfg.Fields),
		keep:      toSet(cfg.Keep),
		fieldMask: mask,
	}, nil
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// Sanitize returns a masked copy of data and how many values changed. The
// input is left untouched. A nil Redactor returns data as is.
func (r *Redactor) Sanitize(data map[string]interface{}) (map[string]interface{}, int) {
	if r == nil || data == nil {
		return data, 0
	}
	masked := 0
	out := make(map[string]interface{}, len(data))
	for key, value := range data {
		out[key] = r.sanitizeField(key, value, &masked)
	}
	return out, masked
}

func (r *Redactor) sanitizeField(key string, value interface{}, masked *int) interface{} {
	if _, ok := r.keep[key]; ok {
		return value
	}
	if _, ok := r.fields[key]; ok {
		if value == nil || value == "" {
			return value
		}
		*masked++
		return r.fieldMask
	}

	switch v := value.(type) {
	case string:
		return r.maskText(v, masked)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, nested := range v {
			out[k] = r.sanitizeField(k, nested, masked)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, nested := range v {
			out[i] = r.sanitizeField(key, nested, masked)
		}
		return out
	default:
		return value
	}
}

func (r *Redactor) maskText(text string, masked *int) string {
	out := text
	for _, rule := range r.rules {
		out = rule.re.ReplaceAllString(out, rule.rule.Mask)
	}
	if out != text {
		*masked++
	}
	return out
}
