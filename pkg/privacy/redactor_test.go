package privacy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeMasksFieldsAndText(t *testing.T) {
	r, err := NewRedactor(DefaultRules())
	require.NoError(t, err)

	data := map[string]interface{}{
		"id":        "7f0c",
		"actor":     "dra@clinica.pe",
		"documento": "45879612",
		"telefono":  "",
		"notas":     "Llamar al 987 654 321 o escribir a ana@correo.pe",
		"paciente": map[string]interface{}{
			"nombres":    "Ana",
			"nacimiento": "1990-02-01",
		},
		"tags": []interface{}{"vip", "nacida 01/02/1990"},
	}

	out, masked := r.Sanitize(data)
	assert.Equal(t, "7f0c", out["id"])
	assert.Equal(t, "dra@clinica.pe", out["actor"], "kept keys are not scanned")
	assert.Equal(t, "[redactado]", out["documento"])
	assert.Equal(t, "", out["telefono"], "empty values stay empty")
	assert.Equal(t, "Llamar al *** *** *** o escribir a ***@***", out["notas"])
	assert.Equal(t, "Ana", out["paciente"].(map[string]interface{})["nombres"])
	assert.Equal(t, "[redactado]", out["paciente"].(map[string]interface{})["nacimiento"])
	assert.Equal(t, []interface{}{"vip", "nacida ##/##/####"}, out["tags"])
	assert.Equal(t, 4, masked)

	assert.Equal(t, "45879612", data["documento"], "input is not modified")
}

func TestNilRedactorPassesThrough(t *testing.T) {
	var r *Redactor
	data := map[string]interface{}{"email": "a@b.pe"}
	out, masked := r.Sanitize(data)
	assert.Equal(t, data, out)
	assert.Zero(t, masked)
}

func TestNewRedactorRejectsBadPattern(t *testing.T) {
	_, err := NewRedactor(RulesConfig{Rules: []Rule{{Name: "bad", Pattern: "(", Enabled: true}}})
	assert.Error(t, err)

	r, err := NewRedactor(RulesConfig{Rules: []Rule{{Name: "off", Pattern: "(", Enabled: false}}})
	require.NoError(t, err)
	out, _ := r.Sanitize(map[string]interface{}{"x": "("})
	assert.Equal(t, "(", out["x"])
}

func TestLoadRules(t *testing.T) {
	cfg, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), cfg)

	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - name: historia
    pattern: 'HC-\d+'
    mask: 'HC-*'
    enabled: true
fields: [documento]
field_mask: "--"
`), 0o600))
	cfg, err = LoadRules(path)
	require.NoError(t, err)
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, "historia", cfg.Rules[0].Name)
	assert.Equal(t, []string{"documento"}, cfg.Fields)

	r, err := NewRedactor(cfg)
	require.NoError(t, err)
	out, masked := r.Sanitize(map[string]interface{}{"notas": "ver HC-2231", "documento": "1"})
	assert.Equal(t, "ver HC-*", out["notas"])
	assert.Equal(t, "--", out["documento"])
	assert.Equal(t, 2, masked)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("rules: []\n"), 0o600))
	_, err = LoadRules(empty)
	assert.Error(t, err)

	_, err = LoadRules(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
