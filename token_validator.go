package auth

// TokenVerifierFunc adapts a function into a TokenVerifier.
type TokenVerifierFunc func(tokenString string) (*JWTClaims, error)

// Verify satisfies the TokenVerifier interface.
func (f TokenVerifierFunc) Verify(tokenString string) (*JWTClaims, error) {
	if f == nil {
		return nil, ErrTokenInvalid
	}
	return f(tokenString)
}

// MultiTokenVerifier tries verifiers in order until one succeeds. It is
// used to keep tokens signed with a retired key valid while they age out.
// Expired tokens stop the chain, invalid ones move on to the next key.
type MultiTokenVerifier struct {
	verifiers []TokenVerifier
}

// NewMultiTokenVerifier filters nil verifiers and returns a composite verifier.
func NewMultiTokenVerifier(verifiers ...TokenVerifier) *MultiTokenVerifier {
	filtered := make([]TokenVerifier, 0, len(verifiers))
	for _, v := range verifiers {
		if v != nil {
			filtered = append(filtered, v)
		}
	}
	return &MultiTokenVerifier{verifiers: filtered}
}

// Verify satisfies the TokenVerifier interface.
func (m *MultiTokenVerifier) Verify(tokenString string) (*JWTClaims, error) {
	var lastErr error
	for _, v := range m.verifiers {
		claims, err := v.Verify(tokenString)
		if err == nil {
			return claims, nil
		}
		if IsMalformedError(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrTokenInvalid
}

var _ TokenVerifier = (*MultiTokenVerifier)(nil)
