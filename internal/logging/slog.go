package logging

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyCluster   = "cluster"
	KeyTool      = "tool"
	KeyMechanism = "auth_mechanism"
	KeyRequestID = "request_id"
	KeyRegion    = "region"
	KeyService   = "service"
	KeyKind      = "kind"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyHost      = "host"
	KeyRoleARN   = "role_arn"
)

// Status values for consistent logging.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Log output formats accepted by New.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// ipv4Regex matches IPv4 addresses for sanitization.
var ipv4Regex = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)

// ipv6Regex matches IPv6 addresses for sanitization.
// This regex matches common IPv6 formats including:
// - Full form: 2001:0db8:85a3:0000:0000:8a2e:0370:7334
// - Compressed form: 2001:db8:85a3::8a2e:370:7334
// - Bracketed form (used in URLs): [2001:db8::1]
var ipv6Regex = regexp.MustCompile(`\[?([0-9a-fA-F]{0,4}:){2,7}[0-9a-fA-F]{0,4}\]?`)

// arnAccountRegex matches the account segment of an AWS ARN.
var arnAccountRegex = regexp.MustCompile(`^(arn:[^:]*:[^:]*:[^:]*:)(\d{12})(:.*)$`)

// New builds a slog.Logger writing to w. Unknown formats fall back to JSON.
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, FormatText) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel converts a textual level ("debug", "info", "warn", "error")
// into a slog.Level. Unknown values map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithCluster returns a logger with the cluster attribute set.
func WithCluster(logger *slog.Logger, cluster string) *slog.Logger {
	return logger.With(slog.String(KeyCluster, cluster))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Cluster returns a slog attribute for the cluster name.
func Cluster(name string) slog.Attr {
	return slog.String(KeyCluster, name)
}

// Mechanism returns a slog attribute for the resolved auth mechanism.
func Mechanism(m string) slog.Attr {
	return slog.String(KeyMechanism, m)
}

// RequestID returns a slog attribute for the dispatch request ID.
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Region returns a slog attribute for the AWS region.
func Region(region string) slog.Attr {
	return slog.String(KeyRegion, region)
}

// Kind returns a slog attribute for a failure kind.
func Kind(kind string) slog.Attr {
	return slog.String(KeyKind, kind)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// SanitizedErr returns a slog attribute for an error with IP addresses redacted.
// Backend and STS errors frequently embed endpoint addresses.
func SanitizedErr(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, SanitizeHost(err.Error()))
}

// Host returns a slog attribute for a host with IP addresses sanitized.
func Host(host string) slog.Attr {
	return slog.String(KeyHost, SanitizeHost(host))
}

// RoleARN returns a slog attribute for an IAM role ARN with the account redacted.
func RoleARN(arn string) slog.Attr {
	return slog.String(KeyRoleARN, SanitizeARN(arn))
}

// SanitizeHost returns a sanitized version of the host for logging purposes.
// IPv4 and IPv6 addresses are redacted; hostnames, schemes and ports are kept.
//
// Examples:
//   - "https://192.168.1.100:9200" -> "https://<redacted-ip>:9200"
//   - "https://search-logs.eu-west-1.es.amazonaws.com" -> unchanged
//   - "192.168.1.100" -> "<redacted-ip>"
//   - "https://[2001:db8::1]:9200" -> "https://<redacted-ip>:9200"
//   - "" -> "<empty>"
//
// Userinfo embedded in a URL is always dropped.
func SanitizeHost(host string) string {
	if host == "" {
		return "<empty>"
	}

	redactIPs := func(s string) string {
		result := ipv4Regex.ReplaceAllString(s, "<redacted-ip>")
		result = ipv6Regex.ReplaceAllString(result, "<redacted-ip>")
		return result
	}

	if !strings.Contains(host, "://") {
		return redactIPs(host)
	}

	parsed, err := url.Parse(host)
	if err != nil {
		return redactIPs(host)
	}
	parsed.User = nil

	if ipv4Regex.MatchString(parsed.Host) || ipv6Regex.MatchString(parsed.Host) {
		parsed.Host = redactIPs(parsed.Host)
	}

	return parsed.String()
}

// SanitizeSecret returns a length indicator for a password or secret key
// without exposing any of its content.
func SanitizeSecret(secret string) string {
	if secret == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[secret:%d chars]", len(secret))
}

// SanitizeARN redacts the twelve-digit account ID of an AWS ARN.
//
//	"arn:aws:iam::123456789012:role/reader" -> "arn:aws:iam::<redacted>:role/reader"
func SanitizeARN(arn string) string {
	if arn == "" {
		return "<empty>"
	}
	return arnAccountRegex.ReplaceAllString(arn, "${1}<redacted>${3}")
}
