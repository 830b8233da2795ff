// Package engine evaluates the access gate policy with OPA Rego.
package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/rego"
)

const decisionQuery = "data.mobitech.access.decision"

// DefaultPolicy is the built-in access policy: anonymous callers go to /login, non-admins on the
// admin surface go to /, and users without MFA go to enrollment.
const DefaultPolicy = `package mobitech.access

default allow = false
default redirect = ""

surface_ok if {
	input.surface != "admin"
}

surface_ok if {
	input.surface == "admin"
	input.session.is_admin
}

allow if {
	input.session.is_logged_in
	surface_ok
	input.user.mfa_enabled
}

redirect = "/login" if {
	not input.session.is_logged_in
}

redirect = "/" if {
	input.session.is_logged_in
	not surface_ok
}

redirect = "/mfa/setup" if {
	input.session.is_logged_in
	surface_ok
	not input.user.mfa_enabled
}

decision = {"allow": allow, "redirect": redirect}
`

// OPAEvaluator evaluates the access policy using a prepared OPA Rego query.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles module (DefaultPolicy when empty) and prepares the decision query.
// The module must define data.mobitech.access.decision as {"allow": bool, "redirect": string}.
func NewOPAEvaluator(ctx context.Context, module string) (*OPAEvaluator, error) {
	if module == "" {
		module = DefaultPolicy
	}
	q, err := rego.New(
		rego.Query(decisionQuery),
		rego.Module("access.rego", module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile access policy: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// LoadPolicyFile reads a Rego module from path. An empty path returns DefaultPolicy.
func LoadPolicyFile(path string) (string, error) {
	if path == "" {
		return DefaultPolicy, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read access policy: %w", err)
	}
	return string(b), nil
}

// Evaluate runs the policy for in. Evaluation failures deny access with a /login redirect and
// return the error.
func (e *OPAEvaluator) Evaluate(ctx context.Context, in Input) (Decision, error) {
	deny := Decision{Allow: false, Redirect: "/login"}
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(in)))
	if err != nil {
		return deny, fmt.Errorf("eval access policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return deny, fmt.Errorf("access policy returned no decision")
	}
	m, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return deny, fmt.Errorf("access policy decision has type %T", rs[0].Expressions[0].Value)
	}
	var d Decision
	d.Allow, _ = m["allow"].(bool)
	d.Redirect, _ = m["redirect"].(string)
	if d.Allow {
		d.Redirect = ""
	}
	return d, nil
}

// HealthCheck evaluates the prepared policy against an anonymous dashboard request.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.Evaluate(ctx, Input{Surface: SurfaceDashboard})
	return err
}

func buildInput(in Input) map[string]interface{} {
	return map[string]interface{}{
		"surface": string(in.Surface),
		"session": map[string]interface{}{
			"is_logged_in": in.LoggedIn,
			"is_admin":     in.IsAdmin,
		},
		"user": map[string]interface{}{
			"mfa_enabled": in.MFAEnabled,
		},
	}
}
