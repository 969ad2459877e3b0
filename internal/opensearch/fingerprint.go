package opensearch

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strconv"

	"github.com/giantswarm/mcp-opensearch/internal/auth"
	"github.com/giantswarm/mcp-opensearch/internal/cluster"
)

// ProfileFingerprint hashes every profile field that affects client
// construction. It changes whenever a reload alters the profile.
func ProfileFingerprint(p cluster.Profile) string {
	h := sha256.New()
	writeProfile(h, p)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes the profile together with the resolved auth material.
// Two builds with equal fingerprints produce interchangeable clients.
func Fingerprint(p cluster.Profile, a auth.Context) string {
	h := sha256.New()
	writeProfile(h, p)

	writeField(h, string(a.Mechanism))
	writeField(h, a.Username)
	writeField(h, a.Password)
	writeField(h, a.Credentials.AccessKeyID)
	writeField(h, a.Credentials.SecretAccessKey)
	writeField(h, a.Credentials.SessionToken)
	writeField(h, a.Region)
	writeField(h, a.Service)
	writeField(h, strconv.FormatBool(a.VerifyTLS))

	return hex.EncodeToString(h.Sum(nil))
}

func writeProfile(h hash.Hash, p cluster.Profile) {
	writeField(h, p.Name)
	writeField(h, p.URL)
	writeField(h, p.Username)
	writeField(h, p.Password)
	writeField(h, p.Region)
	writeField(h, p.IAMRoleARN)
	writeField(h, p.AWSProfile)
	writeField(h, strconv.FormatBool(p.Serverless))
	writeField(h, p.VerifyTLS.String())
}

func writeField(h hash.Hash, s string) {
	h.Write([]byte(s))
	h.Write([]byte{0}) // separator
}
