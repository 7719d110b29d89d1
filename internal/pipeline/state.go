package pipeline

import (
	"context"
	"fmt"

	"sanctum/internal/behavior"
	"sanctum/internal/dlp"
	"sanctum/internal/policy"
	"sanctum/internal/session"
	dErrors "sanctum/pkg/domain-errors"
)

// State is a request's position in the pipeline. Requests move forward one
// state at a time and may be rejected from any non-terminal state.
type State int

const (
	StateEntered State = iota
	StateSessionChecked
	StateRiskScored
	StateDLPScanned
	StatePolicyChecked
	StateAudited
	StateHandled
	StateRejected
)

var stateNames = [...]string{
	StateEntered:        "ENTERED",
	StateSessionChecked: "SESSION_CHECKED",
	StateRiskScored:     "RISK_SCORED",
	StateDLPScanned:     "DLP_SCANNED",
	StatePolicyChecked:  "POLICY_CHECKED",
	StateAudited:        "AUDITED",
	StateHandled:        "HANDLED",
	StateRejected:       "REJECTED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) Terminal() bool {
	return s == StateHandled || s == StateRejected
}

// SecurityContext accumulates what each stage learned about the request.
// Handlers read it with FromContext.
type SecurityContext struct {
	State             State
	RequestID         string
	PrincipalID       string
	SessionID         string
	Session           *session.Session
	TwoFactorVerified bool
	ResourceOwnerID   string
	DataType          string
	Operation         policy.Operation
	Risk              *behavior.RiskAssessment
	Scan              *dlp.Result
	Decision          *policy.Decision
	Rejection         *dErrors.Error
}

func (c *SecurityContext) advance(next State) error {
	if c.State.Terminal() {
		return fmt.Errorf("illegal pipeline transition %s -> %s", c.State, next)
	}
	if next != StateRejected && next != c.State+1 {
		return fmt.Errorf("illegal pipeline transition %s -> %s", c.State, next)
	}
	c.State = next
	return nil
}

type securityContextKey struct{}

// WithSecurityContext attaches sc to ctx.
func WithSecurityContext(ctx context.Context, sc *SecurityContext) context.Context {
	return context.WithValue(ctx, securityContextKey{}, sc)
}

// FromContext returns the security context of a request that passed the pipeline.
func FromContext(ctx context.Context) (*SecurityContext, bool) {
	sc, ok := ctx.Value(securityContextKey{}).(*SecurityContext)
	return sc, ok
}
