package engine

import "context"

// Surface is the part of the application a request targets.
type Surface string

const (
	SurfaceDashboard Surface = "dashboard"
	SurfaceAdmin     Surface = "admin"
)

// Valid reports whether s is a known surface.
func (s Surface) Valid() bool {
	return s == SurfaceDashboard || s == SurfaceAdmin
}

// Input is what the access policy sees about a request.
type Input struct {
	Surface    Surface
	LoggedIn   bool
	IsAdmin    bool
	MFAEnabled bool
}

// Decision is the access policy outcome. Redirect is set when Allow is false.
type Decision struct {
	Allow    bool   `json:"allow"`
	Redirect string `json:"redirect,omitempty"`
}

// Evaluator evaluates the access policy using OPA or other engines.
type Evaluator interface {
	Evaluate(ctx context.Context, in Input) (Decision, error)
}
