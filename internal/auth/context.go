package auth

import (
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// Mechanism identifies the authentication strategy that was selected.
type Mechanism string

const (
	MechanismNone    Mechanism = "none"
	MechanismBasic   Mechanism = "basic"
	MechanismIAM     Mechanism = "iam"
	MechanismAmbient Mechanism = "ambient-aws"
)

// SigV4 service names.
const (
	ServiceES         = "es"
	ServiceServerless = "aoss"
)

// ServiceFor returns the signing service name for a deployment flavour.
func ServiceFor(serverless bool) string {
	if serverless {
		return ServiceServerless
	}
	return ServiceES
}

// Context is the resolved authentication and transport-security material for
// one client build.
type Context struct {
	Mechanism Mechanism

	// Username and Password are set for MechanismBasic.
	Username string
	Password string

	// Credentials are set for MechanismIAM and MechanismAmbient.
	Credentials aws.Credentials

	Region  string
	Service string

	// VerifyTLS is the effective certificate verification flag.
	VerifyTLS bool
}

// Signed reports whether requests must carry a SigV4 signature.
func (c Context) Signed() bool {
	return c.Mechanism == MechanismIAM || c.Mechanism == MechanismAmbient
}

// Expires returns when the credential material stops being valid.
// The zero time means it does not expire.
func (c Context) Expires() time.Time {
	if !c.Signed() || !c.Credentials.CanExpire {
		return time.Time{}
	}
	return c.Credentials.Expires
}

// LogValue implements slog.LogValuer. Secrets are never included.
func (c Context) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("mechanism", string(c.Mechanism)),
		slog.Bool("verify_tls", c.VerifyTLS),
	}
	if c.Signed() {
		attrs = append(attrs,
			slog.String("region", c.Region),
			slog.String("service", c.Service))
		if exp := c.Expires(); !exp.IsZero() {
			attrs = append(attrs, slog.Time("expires", exp))
		}
	}
	if c.Mechanism == MechanismBasic {
		attrs = append(attrs, slog.String("username", c.Username))
	}
	return slog.GroupValue(attrs...)
}
