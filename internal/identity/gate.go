// Package identity validates caller identity tokens against an external
// identity provider, with a degraded-mode fallback when the provider cannot
// be consulted.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/promptdeck/agent-platform/internal/model"
	"github.com/promptdeck/agent-platform/pkg/logger"
	"github.com/promptdeck/agent-platform/pkg/metrics"
)

// DegradedSubjectID is the fixed sentinel subject assigned in degraded mode.
// The prefix keeps it visibly distinct from any provider-issued subject so a
// fallback can never silently impersonate a real identity.
const DegradedSubjectID = "degraded:anonymous"

// DefaultDegradedMinTokenLength is the minimum raw token length accepted in
// degraded mode.
const DefaultDegradedMinTokenLength = 16

// ErrProviderUnavailable is returned by a Verifier when the provider cannot
// be reached or is not configured. It triggers the degraded fallback rather
// than a hard failure.
var ErrProviderUnavailable = errors.New("identity provider unavailable")

// Verifier is the external identity provider contract.
type Verifier interface {
	// Verify returns the subject id for a valid token. A rejection (bad
	// signature, expired) is any error other than ErrProviderUnavailable.
	Verify(ctx context.Context, token string) (string, error)
}

// Gate authenticates bearer tokens. When the verifier reports itself
// unavailable the gate degrades to accepting any plausible token under the
// sentinel subject. This is a deliberate availability-over-strictness
// trade-off: the platform stays usable during provider outages, at the cost
// of anonymous access, and every degraded acceptance is logged at Warn.
type Gate struct {
	verifier       Verifier
	minTokenLength int
	logger         *logger.Logger
}

// NewGate creates a gate over the given verifier. A nil verifier means the
// provider is structurally unconfigured and the gate runs degraded from the
// start.
func NewGate(verifier Verifier, minTokenLength int, log *logger.Logger) *Gate {
	if minTokenLength <= 0 {
		minTokenLength = DefaultDegradedMinTokenLength
	}
	return &Gate{
		verifier:       verifier,
		minTokenLength: minTokenLength,
		logger:         log,
	}
}

// Authenticate resolves a raw bearer token to a subject id.
func (g *Gate) Authenticate(ctx context.Context, rawToken string) (string, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return "", fmt.Errorf("empty token: %w", model.ErrUnauthenticated)
	}

	if g.verifier == nil {
		return g.degraded(rawToken, "no identity provider configured")
	}

	subject, err := g.verifier.Verify(ctx, rawToken)
	if err != nil {
		if errors.Is(err, ErrProviderUnavailable) {
			return g.degraded(rawToken, err.Error())
		}
		// Explicit rejection always fails closed.
		return "", fmt.Errorf("token rejected: %w", model.ErrUnauthenticated)
	}
	return subject, nil
}

func (g *Gate) degraded(rawToken, reason string) (string, error) {
	if len(rawToken) < g.minTokenLength {
		return "", fmt.Errorf("token too short for degraded acceptance: %w", model.ErrUnauthenticated)
	}
	g.logger.Warn("identity gate in degraded mode, assigning sentinel subject",
		zap.String("reason", reason),
		zap.String("subject", DegradedSubjectID),
	)
	metrics.AuthDegradedTotal.Inc()
	return DegradedSubjectID, nil
}
