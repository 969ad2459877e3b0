package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/giantswarm/mcp-opensearch/internal/cluster"
	"github.com/giantswarm/mcp-opensearch/internal/logging"
)

// MetricsRecorder records the outcome of auth resolution.
type MetricsRecorder interface {
	RecordAuthResolution(ctx context.Context, mechanism string, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) RecordAuthResolution(context.Context, string, time.Duration) {}

// Resolver selects the authentication strategy for a profile.
type Resolver struct {
	loadConfig ConfigLoader
	assumeRole RoleAssumer
	verifyTLS  bool
	logger     *slog.Logger
	metrics    MetricsRecorder
}

// ResolverOption is a functional option for configuring a Resolver.
type ResolverOption func(*Resolver)

// WithConfigLoader replaces the AWS configuration loader.
func WithConfigLoader(loader ConfigLoader) ResolverOption {
	return func(r *Resolver) {
		r.loadConfig = loader
	}
}

// WithRoleAssumer replaces the STS role assumer.
func WithRoleAssumer(assumer RoleAssumer) ResolverOption {
	return func(r *Resolver) {
		r.assumeRole = assumer
	}
}

// WithDefaultVerifyTLS sets the verification policy for profiles that leave it unset.
func WithDefaultVerifyTLS(verify bool) ResolverOption {
	return func(r *Resolver) {
		r.verifyTLS = verify
	}
}

// WithLogger sets the logger for the resolver.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics MetricsRecorder) ResolverOption {
	return func(r *Resolver) {
		if metrics != nil {
			r.metrics = metrics
		}
	}
}

// NewResolver creates a Resolver using the AWS SDK defaults.
// Certificate verification defaults to enabled.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		loadConfig: LoadAWSConfig,
		assumeRole: AssumeRoleSTS,
		verifyTLS:  true,
		logger:     slog.Default(),
		metrics:    noopMetricsRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve picks the first usable strategy for p. It never fails: when every
// credentialed strategy is unavailable the result uses MechanismNone.
func (r *Resolver) Resolve(ctx context.Context, p cluster.Profile) Context {
	start := time.Now()
	logger := r.logger.With(logging.Cluster(p.Name))

	base := Context{
		Region:    p.Region,
		Service:   ServiceFor(p.Serverless),
		VerifyTLS: p.VerifyTLS.Resolve(r.verifyTLS),
	}
	if !base.VerifyTLS && p.IsHTTPS() {
		logger.Warn("TLS certificate verification disabled for HTTPS endpoint",
			logging.Host(p.URL))
	}

	resolved := r.resolve(ctx, p, base, logger)

	logger.Debug("Resolved cluster authentication",
		logging.Mechanism(string(resolved.Mechanism)),
		slog.Any("auth", resolved))
	r.metrics.RecordAuthResolution(ctx, string(resolved.Mechanism), time.Since(start))

	return resolved
}

func (r *Resolver) resolve(ctx context.Context, p cluster.Profile, base Context, logger *slog.Logger) Context {
	if p.HasBasicAuth() {
		c := base
		c.Mechanism = MechanismBasic
		c.Username = p.Username
		c.Password = p.Password
		return c
	}

	if p.IAMRoleARN != "" {
		c, err := r.iam(ctx, p, base)
		if err == nil {
			return c
		}
		logger.Warn("IAM role authentication failed, trying next method",
			logging.RoleARN(p.IAMRoleARN),
			logging.SanitizedErr(err))
	}

	c, err := r.ambient(ctx, p, base)
	if err == nil {
		return c
	}
	if errors.Is(err, ErrNoCredentials) {
		logger.Debug("No ambient AWS credentials available", logging.SanitizedErr(err))
	} else {
		logger.Warn("Ambient AWS authentication failed", logging.SanitizedErr(err))
	}

	c = base
	c.Mechanism = MechanismNone
	return c
}

func (r *Resolver) iam(ctx context.Context, p cluster.Profile, base Context) (Context, error) {
	cfg, err := r.loadConfig(ctx, p.AWSProfile, p.Region)
	if err != nil {
		return Context{}, &Error{Mechanism: MechanismIAM, Cluster: p.Name, Err: fmt.Errorf("failed to load AWS config: %w", err)}
	}
	if cfg.Region == "" {
		return Context{}, &Error{Mechanism: MechanismIAM, Cluster: p.Name, Err: ErrNoRegion}
	}

	creds, err := r.assumeRole(ctx, cfg, p.IAMRoleARN, SessionName)
	if err != nil {
		return Context{}, &Error{Mechanism: MechanismIAM, Cluster: p.Name, Err: fmt.Errorf("failed to assume role: %w", err)}
	}
	if !creds.HasKeys() {
		return Context{}, &Error{Mechanism: MechanismIAM, Cluster: p.Name, Err: ErrNoCredentials}
	}

	c := base
	c.Mechanism = MechanismIAM
	c.Region = cfg.Region
	c.Credentials = creds
	return c, nil
}

func (r *Resolver) ambient(ctx context.Context, p cluster.Profile, base Context) (Context, error) {
	cfg, err := r.loadConfig(ctx, p.AWSProfile, p.Region)
	if err != nil {
		return Context{}, &Error{Mechanism: MechanismAmbient, Cluster: p.Name, Err: fmt.Errorf("failed to load AWS config: %w", err)}
	}
	if cfg.Region == "" {
		return Context{}, &Error{Mechanism: MechanismAmbient, Cluster: p.Name, Err: ErrNoRegion}
	}
	if cfg.Credentials == nil {
		return Context{}, &Error{Mechanism: MechanismAmbient, Cluster: p.Name, Err: ErrNoCredentials}
	}

	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return Context{}, &Error{Mechanism: MechanismAmbient, Cluster: p.Name, Err: fmt.Errorf("%w: %w", ErrNoCredentials, err)}
	}
	if !creds.HasKeys() {
		return Context{}, &Error{Mechanism: MechanismAmbient, Cluster: p.Name, Err: ErrNoCredentials}
	}

	c := base
	c.Mechanism = MechanismAmbient
	c.Region = cfg.Region
	c.Credentials = creds
	return c, nil
}
