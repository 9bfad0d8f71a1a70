package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type stubProvider struct {
	name   string
	values map[string]string
	err    error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Resolve(_ context.Context, ref string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.values[ref], nil
}

func TestExpandEnvStrict_MissingVarErrors(t *testing.T) {
	t.Setenv("VMCATALOG_TEST_PRESENT", "ok")

	_, err := ExpandEnvStrict("a=${VMCATALOG_TEST_PRESENT} b=${VMCATALOG_TEST_MISSING}")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "VMCATALOG_TEST_MISSING") {
		t.Fatalf("expected missing var name in error, got: %v", err)
	}
}

func TestExpandEnvStrict_DollarEscape(t *testing.T) {
	t.Setenv("VMCATALOG_TEST_X", "y")

	out, err := ExpandEnvStrict("$$${VMCATALOG_TEST_X}")
	if err != nil {
		t.Fatalf("ExpandEnvStrict() error = %v", err)
	}
	if out != "$y" {
		t.Fatalf("ExpandEnvStrict() = %q, want %q", out, "$y")
	}
}

func TestParseSecretRef(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		ref      string
		ok       bool
	}{
		{"secretref:env:APP_ID", "env", "APP_ID", true},
		{"secretref:file:/run/secrets/a:b", "file", "/run/secrets/a:b", true},
		{"secretref:env:", "", "", false},
		{"secretref::x", "", "", false},
		{"plain", "", "", false},
	}
	for _, tt := range tests {
		provider, ref, ok := ParseSecretRef(tt.in)
		if provider != tt.provider || ref != tt.ref || ok != tt.ok {
			t.Errorf("ParseSecretRef(%q) = %q, %q, %v", tt.in, provider, ref, ok)
		}
	}
}

func TestResolver_FullAndInlineRefs(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"alpha": "one", "beta": "two"}})

	got, err := r.ResolveValue(context.Background(), "secretref:stub:alpha")
	if err != nil || got != "one" {
		t.Fatalf("ResolveValue() = %q, %v; want one", got, err)
	}

	got, err = r.ResolveValue(context.Background(), "https://host/secretref:stub:alpha/x secretref:stub:beta")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "https://host/one two" {
		t.Fatalf("ResolveValue() = %q", got)
	}
}

func TestResolver_Errors(t *testing.T) {
	tests := []struct {
		name  string
		r     *Resolver
		value string
	}{
		{"unregistered", NewResolver(true), "secretref:vault:x"},
		{"strict empty", NewResolver(true, &stubProvider{name: "stub"}), "secretref:stub:x"},
		{"provider error", NewResolver(false, &stubProvider{name: "stub", err: errors.New("explode")}), "secretref:stub:x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.r.ResolveValue(context.Background(), tt.value); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestResolver_LenientEmptyValue(t *testing.T) {
	r := NewResolver(false, &stubProvider{name: "stub"})

	got, err := r.ResolveValue(context.Background(), "secretref:stub:x")
	if err != nil || got != "" {
		t.Errorf("ResolveValue() = %q, %v; want empty, nil", got, err)
	}
}

func TestEnvAndFileProviders(t *testing.T) {
	t.Setenv("VMCATALOG_TEST_SECRET", "from-env")
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(true, EnvProvider{}, FileProvider{})
	for in, want := range map[string]string{
		"secretref:env:VMCATALOG_TEST_SECRET": "from-env",
		"secretref:file:" + path:              "from-file",
	} {
		got, err := r.ResolveValue(context.Background(), in)
		if err != nil {
			t.Fatalf("ResolveValue(%q) error = %v", in, err)
		}
		if got != want {
			t.Errorf("ResolveValue(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := r.ResolveValue(context.Background(), "secretref:env:VMCATALOG_TEST_UNSET"); err == nil {
		t.Error("unset variable should error")
	}
}
