package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-opensearch/internal/cluster"
)

var staticCreds = aws.Credentials{AccessKeyID: "AKIDAMBIENT", SecretAccessKey: "ambient-secret"}

// fakeAWS replaces the AWS SDK seams.
type fakeAWS struct {
	mu sync.Mutex

	region      string
	creds       *aws.Credentials
	loadErr     error
	assumeErr   error
	assumed     aws.Credentials
	loadCalls   []string
	assumeCalls []string
}

func (f *fakeAWS) load(_ context.Context, awsProfile, region string) (aws.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls = append(f.loadCalls, awsProfile)
	if f.loadErr != nil {
		return aws.Config{}, f.loadErr
	}
	cfg := aws.Config{Region: f.region}
	if region != "" {
		cfg.Region = region
	}
	if f.creds != nil {
		creds := *f.creds
		cfg.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return creds, nil
		})
	}
	return cfg, nil
}

func (f *fakeAWS) assume(_ context.Context, _ aws.Config, roleARN, sessionName string) (aws.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assumeCalls = append(f.assumeCalls, roleARN+"|"+sessionName)
	if f.assumeErr != nil {
		return aws.Credentials{}, f.assumeErr
	}
	return f.assumed, nil
}

func (f *fakeAWS) resolver(buf *bytes.Buffer, opts ...ResolverOption) *Resolver {
	base := []ResolverOption{
		WithConfigLoader(f.load),
		WithRoleAssumer(f.assume),
		WithLogger(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))),
	}
	return NewResolver(append(base, opts...)...)
}

func TestResolver_Priority(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	assumed := aws.Credentials{AccessKeyID: "AKIDROLE", SecretAccessKey: "role-secret", SessionToken: "token", CanExpire: true, Expires: expires}

	tests := []struct {
		name      string
		profile   cluster.Profile
		fake      *fakeAWS
		expected  Mechanism
		region    string
		assumeHit bool
	}{
		{
			name:     "basic outranks IAM",
			profile:  cluster.Profile{Name: "p", URL: "https://x.example.com", Username: "admin", Password: "admin", IAMRoleARN: "arn:aws:iam::123456789012:role/reader", Region: "us-east-1"},
			fake:     &fakeAWS{assumed: assumed, creds: &staticCreds},
			expected: MechanismBasic,
			region:   "us-east-1",
		},
		{
			name:      "IAM role assumption",
			profile:   cluster.Profile{Name: "p", URL: "https://x.example.com", IAMRoleARN: "arn:aws:iam::123456789012:role/reader", Region: "us-east-1"},
			fake:      &fakeAWS{assumed: assumed},
			expected:  MechanismIAM,
			region:    "us-east-1",
			assumeHit: true,
		},
		{
			name:      "IAM uses configured region",
			profile:   cluster.Profile{Name: "p", URL: "https://x.example.com", IAMRoleARN: "arn:aws:iam::123456789012:role/reader"},
			fake:      &fakeAWS{region: "eu-central-1", assumed: assumed},
			expected:  MechanismIAM,
			region:    "eu-central-1",
			assumeHit: true,
		},
		{
			name:      "IAM failure falls through to ambient",
			profile:   cluster.Profile{Name: "p", URL: "https://x.example.com", IAMRoleARN: "arn:aws:iam::123456789012:role/reader", Region: "us-east-1"},
			fake:      &fakeAWS{assumeErr: errors.New("AccessDenied"), creds: &staticCreds},
			expected:  MechanismAmbient,
			region:    "us-east-1",
			assumeHit: true,
		},
		{
			name:     "half basic pair is ignored",
			profile:  cluster.Profile{Name: "p", URL: "http://localhost:9200", Username: "admin"},
			fake:     &fakeAWS{},
			expected: MechanismNone,
		},
		{
			name:     "ambient credentials",
			profile:  cluster.Profile{Name: "p", URL: "https://x.example.com", Region: "us-west-2"},
			fake:     &fakeAWS{creds: &staticCreds},
			expected: MechanismAmbient,
			region:   "us-west-2",
		},
		{
			name:     "ambient without region",
			profile:  cluster.Profile{Name: "p", URL: "https://x.example.com"},
			fake:     &fakeAWS{creds: &staticCreds},
			expected: MechanismNone,
		},
		{
			name:     "config load failure",
			profile:  cluster.Profile{Name: "p", URL: "https://x.example.com", Region: "us-west-2", AWSProfile: "missing"},
			fake:     &fakeAWS{loadErr: errors.New("failed to get shared config profile, missing")},
			expected: MechanismNone,
			region:   "us-west-2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := tt.fake.resolver(&buf).Resolve(context.Background(), tt.profile)

			assert.Equal(t, tt.expected, c.Mechanism)
			assert.Equal(t, tt.region, c.Region)
			assert.Equal(t, tt.assumeHit, len(tt.fake.assumeCalls) > 0)
		})
	}
}

func TestResolver_IAM(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	fake := &fakeAWS{assumed: aws.Credentials{AccessKeyID: "AKIDROLE", SecretAccessKey: "s", CanExpire: true, Expires: expires}}
	profile := cluster.Profile{
		Name:       "remote",
		URL:        "https://search-x.us-east-1.es.amazonaws.com",
		IAMRoleARN: "arn:aws:iam::123456789012:role/reader",
		Region:     "us-east-1",
		AWSProfile: "analytics",
	}

	var buf bytes.Buffer
	c := fake.resolver(&buf).Resolve(context.Background(), profile)

	require.Equal(t, MechanismIAM, c.Mechanism)
	assert.Equal(t, "AKIDROLE", c.Credentials.AccessKeyID)
	assert.Equal(t, expires, c.Expires())
	assert.True(t, c.Signed())
	assert.Equal(t, ServiceES, c.Service)
	assert.Equal(t, []string{"arn:aws:iam::123456789012:role/reader|" + SessionName}, fake.assumeCalls)
	assert.Equal(t, []string{"analytics"}, fake.loadCalls)
}

// An IAM-only profile with no region anywhere resolves to no authentication.
func TestResolver_IAMWithoutRegion(t *testing.T) {
	fake := &fakeAWS{assumed: aws.Credentials{AccessKeyID: "AKIDROLE", SecretAccessKey: "s"}, creds: &staticCreds}
	profile := cluster.Profile{Name: "remote", URL: "https://x.example.com", IAMRoleARN: "arn:aws:iam::123456789012:role/reader"}

	var buf bytes.Buffer
	c := fake.resolver(&buf).Resolve(context.Background(), profile)

	assert.Equal(t, MechanismNone, c.Mechanism)
	assert.Empty(t, fake.assumeCalls)
	assert.Contains(t, buf.String(), "IAM role authentication failed")
	assert.Contains(t, buf.String(), ErrNoRegion.Error())
	assert.NotContains(t, buf.String(), "123456789012")
}

func TestResolver_Service(t *testing.T) {
	fake := &fakeAWS{creds: &staticCreds}
	var buf bytes.Buffer
	r := fake.resolver(&buf)

	c := r.Resolve(context.Background(), cluster.Profile{Name: "s", URL: "https://abc.aoss.amazonaws.com", Region: "us-east-1", Serverless: true})
	assert.Equal(t, ServiceServerless, c.Service)

	c = r.Resolve(context.Background(), cluster.Profile{Name: "m", URL: "https://abc.es.amazonaws.com", Region: "us-east-1"})
	assert.Equal(t, ServiceES, c.Service)
}

func TestResolver_TLS(t *testing.T) {
	tests := []struct {
		name        string
		profile     cluster.Profile
		defVerify   bool
		expected    bool
		wantWarning bool
	}{
		{
			name:        "disabled on https is logged",
			profile:     cluster.Profile{Name: "p", URL: "https://x.example.com", VerifyTLS: cluster.TLSVerifyDisabled},
			defVerify:   true,
			expected:    false,
			wantWarning: true,
		},
		{
			name:      "disabled on http is not logged",
			profile:   cluster.Profile{Name: "p", URL: "http://localhost:9200", VerifyTLS: cluster.TLSVerifyDisabled},
			defVerify: true,
			expected:  false,
		},
		{
			name:      "unset uses default",
			profile:   cluster.Profile{Name: "p", URL: "https://x.example.com"},
			defVerify: true,
			expected:  true,
		},
		{
			name:        "unset uses disabled default",
			profile:     cluster.Profile{Name: "p", URL: "https://x.example.com"},
			defVerify:   false,
			expected:    false,
			wantWarning: true,
		},
		{
			name:      "profile overrides disabled default",
			profile:   cluster.Profile{Name: "p", URL: "https://x.example.com", VerifyTLS: cluster.TLSVerifyEnabled},
			defVerify: false,
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := (&fakeAWS{}).resolver(&buf, WithDefaultVerifyTLS(tt.defVerify)).Resolve(context.Background(), tt.profile)

			assert.Equal(t, tt.expected, c.VerifyTLS)
			if tt.wantWarning {
				assert.Contains(t, buf.String(), "TLS certificate verification disabled")
			} else {
				assert.NotContains(t, buf.String(), "TLS certificate verification disabled")
			}
		})
	}
}

func TestResolver_NeverLogsSecrets(t *testing.T) {
	var buf bytes.Buffer
	profile := cluster.Profile{Name: "p", URL: "http://localhost:9200", Username: "admin", Password: "hunter2-very-secret"}
	c := (&fakeAWS{}).resolver(&buf).Resolve(context.Background(), profile)

	require.Equal(t, MechanismBasic, c.Mechanism)
	assert.Contains(t, buf.String(), `"auth_mechanism":"basic"`)
	assert.NotContains(t, buf.String(), "hunter2-very-secret")
}

type recordingMetrics struct {
	mechanisms []string
}

func (m *recordingMetrics) RecordAuthResolution(_ context.Context, mechanism string, _ time.Duration) {
	m.mechanisms = append(m.mechanisms, mechanism)
}

func TestResolver_Metrics(t *testing.T) {
	metrics := &recordingMetrics{}
	var buf bytes.Buffer
	r := (&fakeAWS{}).resolver(&buf, WithMetrics(metrics))

	r.Resolve(context.Background(), cluster.Profile{Name: "p", URL: "http://localhost:9200"})
	r.Resolve(context.Background(), cluster.Profile{Name: "p", URL: "http://localhost:9200", Username: "a", Password: "b"})

	assert.Equal(t, []string{"none", "basic"}, metrics.mechanisms)
}

func TestError(t *testing.T) {
	err := &Error{Mechanism: MechanismIAM, Cluster: "remote", Err: ErrNoRegion}
	assert.True(t, errors.Is(err, ErrNoRegion))
	assert.Contains(t, err.Error(), `iam authentication for cluster "remote"`)
}

func TestContext_Expires(t *testing.T) {
	exp := time.Now().Add(time.Hour)

	assert.True(t, Context{Mechanism: MechanismBasic}.Expires().IsZero())
	assert.True(t, Context{Mechanism: MechanismAmbient, Credentials: aws.Credentials{Expires: exp}}.Expires().IsZero())
	assert.Equal(t, exp, Context{Mechanism: MechanismIAM, Credentials: aws.Credentials{CanExpire: true, Expires: exp}}.Expires())
}
