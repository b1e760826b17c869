package dur

import (
	"encoding/json"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestUnmarshalJSON(t *testing.T) {
	cases := map[string]time.Duration{
		`"1m30s"`:    90 * time.Second,
		`"250ms"`:    250 * time.Millisecond,
		`1000000000`: time.Second,
	}
	for input, expected := range cases {
		var d Duration
		if err := json.Unmarshal([]byte(input), &d); err != nil {
			t.Errorf("%s: %v", input, err)
			continue
		}
		if d.Duration() != expected {
			t.Errorf("%s: expected %s, got %s", input, expected, d.Duration())
		}
	}

	var d Duration
	if err := json.Unmarshal([]byte(`"soon"`), &d); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestUnmarshalYAML(t *testing.T) {
	var v struct {
		A Duration `yaml:"a"`
		B Duration `yaml:"b"`
	}
	if err := yaml.Unmarshal([]byte("a: 30s\nb: 5000\n"), &v); err != nil {
		t.Fatal(err)
	}
	if v.A.Duration() != 30*time.Second {
		t.Errorf("expected 30s, got %s", v.A)
	}
	if v.B.Duration() != 5000 {
		t.Errorf("expected 5000ns, got %s", v.B)
	}
}

func TestUnmarshalTextInvalid(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1 fortnight")); err == nil {
		t.Error("expected error")
	}
}
