package cluster

import (
	"fmt"
	"net/url"
	"strings"
)

// TLSVerify is the tri-state certificate verification setting of a profile.
// An unset value defers to the process-wide default.
type TLSVerify int

const (
	// TLSVerifyUnset defers to the process-wide default.
	TLSVerifyUnset TLSVerify = iota
	// TLSVerifyEnabled requires peer certificate and hostname verification.
	TLSVerifyEnabled
	// TLSVerifyDisabled skips peer verification.
	TLSVerifyDisabled
)

// String returns a human-readable representation of the setting.
func (v TLSVerify) String() string {
	switch v {
	case TLSVerifyEnabled:
		return "true"
	case TLSVerifyDisabled:
		return "false"
	default:
		return "unset"
	}
}

// Resolve returns the effective verification flag, using def when unset.
func (v TLSVerify) Resolve(def bool) bool {
	switch v {
	case TLSVerifyEnabled:
		return true
	case TLSVerifyDisabled:
		return false
	default:
		return def
	}
}

// TLSVerifyFromBool converts an explicit boolean into a TLSVerify.
func TLSVerifyFromBool(verify bool) TLSVerify {
	if verify {
		return TLSVerifyEnabled
	}
	return TLSVerifyDisabled
}

// ParseTLSVerify parses an environment-style flag. Only the literal
// "false" (any case) disables verification; empty input is unset.
func ParseTLSVerify(s string) TLSVerify {
	s = strings.TrimSpace(s)
	if s == "" {
		return TLSVerifyUnset
	}
	return TLSVerifyFromBool(!strings.EqualFold(s, "false"))
}

// Profile describes how to reach and authenticate to one OpenSearch cluster.
//
// Several credential kinds may be configured at once; the auth resolver uses
// exactly one of them per client build, by priority. Profile is a comparable
// value and is never mutated after registration.
type Profile struct {
	Name string
	URL  string

	Username string
	Password string

	Region     string
	IAMRoleARN string
	AWSProfile string

	Serverless bool
	VerifyTLS  TLSVerify
}

// HasBasicAuth reports whether both halves of the basic-auth pair are set.
func (p Profile) HasBasicAuth() bool {
	return p.Username != "" && p.Password != ""
}

// IsHTTPS reports whether the endpoint uses TLS.
func (p Profile) IsHTTPS() bool {
	u, err := url.Parse(p.URL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, "https")
}

// Validate checks the fields required to build a client.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ConfigError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(p.URL) == "" {
		return &ConfigError{Cluster: p.Name, Field: "opensearch_url", Reason: "must not be empty"}
	}
	u, err := url.Parse(p.URL)
	if err != nil {
		return &ConfigError{Cluster: p.Name, Field: "opensearch_url", Reason: "is not a valid URL", Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigError{Cluster: p.Name, Field: "opensearch_url", Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return &ConfigError{Cluster: p.Name, Field: "opensearch_url", Reason: "must include a host"}
	}
	return nil
}

// Mode selects how clusters are configured and chosen per request.
type Mode string

const (
	// ModeSingle serves one implicit profile built from the environment.
	ModeSingle Mode = "single"
	// ModeMulti serves named profiles loaded from a clusters file.
	ModeMulti Mode = "multi"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSingle, "":
		return ModeSingle, nil
	case ModeMulti:
		return ModeMulti, nil
	default:
		return "", &ConfigError{Field: "mode", Reason: fmt.Sprintf("unsupported mode %q (supported: single, multi)", s)}
	}
}
