package testutil

// FixedCycleToken yields the same refresh-cycle token every time.
//
// The scheduler stamps every snapshot with a fresh UUIDv7 cycle token,
// which would make JSON snapshot goldens differ on every run. The
// scenario harness swaps the token for a fixed one at capture time so
// the same scenario produces byte-identical snapshots.
//
// The token is typically set in the scenario YAML:
//
//	cycle_token: "test-cycle-00000000-0000-0000-0000-000000000001"
//
// Thread-safety: FixedCycleToken is stateless and safe for concurrent use.
type FixedCycleToken struct {
	token string
}

// NewFixedCycleToken creates a fixed cycle token source.
//
// If token is empty, Token() returns "test-cycle-default".
func NewFixedCycleToken(token string) *FixedCycleToken {
	if token == "" {
		token = "test-cycle-default"
	}
	return &FixedCycleToken{token: token}
}

// Token returns the fixed cycle token.
func (g *FixedCycleToken) Token() string {
	return g.token
}
