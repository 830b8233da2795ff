package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newDefaultEvaluator(t *testing.T) *OPAEvaluator {
	t.Helper()
	e, err := NewOPAEvaluator(context.Background(), "")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	return e
}

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	if err := newDefaultEvaluator(t).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestOPAEvaluator_DefaultPolicy(t *testing.T) {
	e := newDefaultEvaluator(t)
	tests := []struct {
		name string
		in   Input
		want Decision
	}{
		{"anonymous", Input{Surface: SurfaceDashboard}, Decision{Redirect: "/login"}},
		{"anonymous admin surface", Input{Surface: SurfaceAdmin}, Decision{Redirect: "/login"}},
		{"no mfa", Input{Surface: SurfaceDashboard, LoggedIn: true}, Decision{Redirect: "/mfa/setup"}},
		{"dashboard", Input{Surface: SurfaceDashboard, LoggedIn: true, MFAEnabled: true}, Decision{Allow: true}},
		{"non-admin on admin", Input{Surface: SurfaceAdmin, LoggedIn: true, MFAEnabled: true}, Decision{Redirect: "/"}},
		{"non-admin on admin without mfa", Input{Surface: SurfaceAdmin, LoggedIn: true}, Decision{Redirect: "/"}},
		{"admin without mfa", Input{Surface: SurfaceAdmin, LoggedIn: true, IsAdmin: true}, Decision{Redirect: "/mfa/setup"}},
		{"admin", Input{Surface: SurfaceAdmin, LoggedIn: true, IsAdmin: true, MFAEnabled: true}, Decision{Allow: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOPAEvaluator_CustomPolicy(t *testing.T) {
	// Allows every logged-in user regardless of MFA.
	const lenient = `package mobitech.access

default allow = false

allow if {
	input.session.is_logged_in
}

decision = {"allow": allow, "redirect": "/login"}
`
	e, err := NewOPAEvaluator(context.Background(), lenient)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	got, err := e.Evaluate(context.Background(), Input{Surface: SurfaceDashboard, LoggedIn: true})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !got.Allow || got.Redirect != "" {
		t.Errorf("got %+v, want allow without redirect", got)
	}
}

func TestNewOPAEvaluator_InvalidPolicy(t *testing.T) {
	if _, err := NewOPAEvaluator(context.Background(), "package broken\n\nallow if {"); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestOPAEvaluator_MissingDecision(t *testing.T) {
	e, err := NewOPAEvaluator(context.Background(), "package mobitech.access\n\nallow = true\n")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	got, err := e.Evaluate(context.Background(), Input{Surface: SurfaceDashboard, LoggedIn: true})
	if err == nil {
		t.Fatal("expected error for policy without decision")
	}
	if got.Allow {
		t.Error("failed evaluation must deny")
	}
}

func TestLoadPolicyFile(t *testing.T) {
	got, err := LoadPolicyFile("")
	if err != nil || got != DefaultPolicy {
		t.Fatalf("LoadPolicyFile(\"\") = %q, %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "access.rego")
	if err := os.WriteFile(path, []byte(DefaultPolicy), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err = LoadPolicyFile(path)
	if err != nil || got != DefaultPolicy {
		t.Fatalf("LoadPolicyFile(path) err = %v", err)
	}

	if _, err := LoadPolicyFile(filepath.Join(t.TempDir(), "missing.rego")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
