package cluster

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that describe the implicit single-cluster profile
// and the defaults applied to file-based profiles.
const (
	EnvURL        = "OPENSEARCH_URL"
	EnvUsername   = "OPENSEARCH_USERNAME"
	EnvPassword   = "OPENSEARCH_PASSWORD"
	EnvRegion     = "AWS_REGION"
	EnvIAMRoleARN = "AWS_IAM_ARN"
	EnvAWSProfile = "AWS_PROFILE"
	EnvVerifyTLS  = "OPENSEARCH_SSL_VERIFY"
	EnvServerless = "AWS_OPENSEARCH_SERVERLESS"
)

// DefaultClusterName is the name of the implicit single-cluster profile.
const DefaultClusterName = "default"

// Defaults carries environment-derived values. In single-cluster mode they
// form the implicit profile; for file-based profiles they fill fields that
// an entry leaves unset (region, AWS profile, serverless flag).
type Defaults struct {
	URL        string
	Username   string
	Password   string
	Region     string
	IAMRoleARN string
	AWSProfile string
	Serverless bool
	VerifyTLS  TLSVerify
}

// DefaultsFromEnv reads Defaults from the process environment.
func DefaultsFromEnv() Defaults {
	return Defaults{
		URL:        strings.TrimSpace(os.Getenv(EnvURL)),
		Username:   os.Getenv(EnvUsername),
		Password:   os.Getenv(EnvPassword),
		Region:     strings.TrimSpace(os.Getenv(EnvRegion)),
		IAMRoleARN: strings.TrimSpace(os.Getenv(EnvIAMRoleARN)),
		AWSProfile: strings.TrimSpace(os.Getenv(EnvAWSProfile)),
		Serverless: strings.EqualFold(strings.TrimSpace(os.Getenv(EnvServerless)), "true"),
		VerifyTLS:  ParseTLSVerify(os.Getenv(EnvVerifyTLS)),
	}
}

// Profile builds the implicit single-cluster profile named name.
func (d Defaults) Profile(name string) Profile {
	if name == "" {
		name = DefaultClusterName
	}
	return Profile{
		Name:       name,
		URL:        d.URL,
		Username:   d.Username,
		Password:   d.Password,
		Region:     d.Region,
		IAMRoleARN: d.IAMRoleARN,
		AWSProfile: d.AWSProfile,
		Serverless: d.Serverless,
		VerifyTLS:  d.VerifyTLS,
	}
}

// fileConfig is the top-level layout of the clusters file.
type fileConfig struct {
	Version     string    `yaml:"version"`
	Description string    `yaml:"description"`
	Clusters    yaml.Node `yaml:"clusters"`
}

// clusterEntry is one entry under "clusters".
type clusterEntry struct {
	URL         string `yaml:"opensearch_url"`
	Username    string `yaml:"opensearch_username"`
	Password    string `yaml:"opensearch_password"`
	IAMRoleARN  string `yaml:"iam_arn"`
	Region      string `yaml:"aws_region"`
	AWSProfile  string `yaml:"profile"`
	Serverless  *bool  `yaml:"is_serverless"`
	VerifyCerts *bool  `yaml:"verify_certs"`
}

// LoadFile reads and parses a clusters file.
func LoadFile(path string, defaults Defaults) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cluster config %s: %w", path, err)
	}
	profiles, err := Parse(data, defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to load cluster config %s: %w", path, err)
	}
	return profiles, nil
}

// Parse decodes clusters file content into validated profiles, preserving
// the order in which clusters appear in the document.
func Parse(data []byte, defaults Defaults) ([]Profile, error) {
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{Field: "clusters", Reason: "malformed YAML", Err: err}
	}

	node := &cfg.Clusters
	if node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") {
		return nil, &ConfigError{Field: "clusters", Reason: "must define at least one cluster"}
	}
	if node.Kind != yaml.MappingNode {
		return nil, &ConfigError{Field: "clusters", Reason: fmt.Sprintf("must be a mapping of cluster name to settings (line %d)", node.Line)}
	}
	if len(node.Content) == 0 {
		return nil, &ConfigError{Field: "clusters", Reason: "must define at least one cluster"}
	}

	seen := make(map[string]int, len(node.Content)/2)
	profiles := make([]Profile, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		name := strings.TrimSpace(keyNode.Value)

		if name == "" {
			return nil, &ConfigError{Field: "clusters", Reason: fmt.Sprintf("cluster name must not be empty (line %d)", keyNode.Line)}
		}
		if line, dup := seen[name]; dup {
			return nil, &ConfigError{Cluster: name, Field: "clusters." + name, Reason: fmt.Sprintf("defined more than once (lines %d and %d)", line, keyNode.Line)}
		}
		seen[name] = keyNode.Line

		var entry clusterEntry
		if err := valueNode.Decode(&entry); err != nil {
			return nil, &ConfigError{Cluster: name, Field: "clusters." + name, Reason: fmt.Sprintf("malformed entry (line %d)", valueNode.Line), Err: err}
		}

		p := entry.profile(name, defaults)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	return profiles, nil
}

// profile converts an entry into a Profile, applying defaults to unset fields.
func (e clusterEntry) profile(name string, defaults Defaults) Profile {
	p := Profile{
		Name:       name,
		URL:        strings.TrimSpace(e.URL),
		Username:   e.Username,
		Password:   e.Password,
		Region:     strings.TrimSpace(e.Region),
		IAMRoleARN: strings.TrimSpace(e.IAMRoleARN),
		AWSProfile: strings.TrimSpace(e.AWSProfile),
		Serverless: defaults.Serverless,
	}
	if p.Region == "" {
		p.Region = defaults.Region
	}
	if p.AWSProfile == "" {
		p.AWSProfile = defaults.AWSProfile
	}
	if e.Serverless != nil {
		p.Serverless = *e.Serverless
	}
	if e.VerifyCerts != nil {
		p.VerifyTLS = TLSVerifyFromBool(*e.VerifyCerts)
	}
	return p
}
