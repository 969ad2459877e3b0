package opensearch

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"

	"github.com/giantswarm/mcp-opensearch/internal/auth"
	"github.com/giantswarm/mcp-opensearch/internal/cluster"
)

func TestFingerprint(t *testing.T) {
	p := cluster.Profile{Name: "prod", URL: "https://prod.example.com", Username: "admin", Password: "admin"}
	a := auth.Context{Mechanism: auth.MechanismBasic, Username: "admin", Password: "admin", Service: auth.ServiceES, VerifyTLS: true}

	t.Run("stable for equal inputs", func(t *testing.T) {
		assert.Equal(t, Fingerprint(p, a), Fingerprint(p, a))
		assert.Equal(t, ProfileFingerprint(p), ProfileFingerprint(p))
	})

	t.Run("changes with TLS policy", func(t *testing.T) {
		flipped := a
		flipped.VerifyTLS = false
		assert.NotEqual(t, Fingerprint(p, a), Fingerprint(p, flipped))

		pf := p
		pf.VerifyTLS = cluster.TLSVerifyDisabled
		assert.NotEqual(t, ProfileFingerprint(p), ProfileFingerprint(pf))
	})

	t.Run("changes with credentials", func(t *testing.T) {
		iam := auth.Context{Mechanism: auth.MechanismIAM, Credentials: aws.Credentials{AccessKeyID: "A", SecretAccessKey: "S", SessionToken: "T1"}}
		rotated := iam
		rotated.Credentials.SessionToken = "T2"
		assert.NotEqual(t, Fingerprint(p, iam), Fingerprint(p, rotated))
	})

	t.Run("field boundaries are unambiguous", func(t *testing.T) {
		p1 := cluster.Profile{Name: "ab", URL: "c"}
		p2 := cluster.Profile{Name: "a", URL: "bc"}
		assert.NotEqual(t, ProfileFingerprint(p1), ProfileFingerprint(p2))
	})

	t.Run("does not leak secrets", func(t *testing.T) {
		assert.NotContains(t, Fingerprint(p, a), "admin")
		assert.Len(t, Fingerprint(p, a), 64)
	})
}
