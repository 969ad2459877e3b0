package instrumentation

import "strings"

// ClusterType is a coarse classification of a configured cluster name used
// as a metric label in place of the name itself.
type ClusterType string

// Cluster type classifications for metrics cardinality control.
const (
	ClusterTypeProduction  ClusterType = "production"
	ClusterTypeStaging     ClusterType = "staging"
	ClusterTypeDevelopment ClusterType = "development"
	ClusterTypeServerless  ClusterType = "serverless"

	// ClusterTypeUnresolved is used before a cluster selector has been resolved.
	ClusterTypeUnresolved ClusterType = "unresolved"

	ClusterTypeOther ClusterType = "other"
)

// classificationRules is evaluated in order; the first rule whose any
// pattern matches wins.
var classificationRules = []struct {
	clusterType ClusterType
	prefixes    []string
	contains    []string
	suffixes    []string
}{
	{
		clusterType: ClusterTypeServerless,
		contains:    []string{"serverless", "aoss"},
	},
	{
		clusterType: ClusterTypeProduction,
		prefixes:    []string{"prod-", "prod_", "prd-"},
		contains:    []string{"production", "-prod-"},
		suffixes:    []string{"-prod", "-prd"},
	},
	{
		clusterType: ClusterTypeStaging,
		prefixes:    []string{"staging-", "staging_", "stg-"},
		contains:    []string{"staging", "-stg-"},
		suffixes:    []string{"-stg"},
	},
	{
		clusterType: ClusterTypeDevelopment,
		prefixes:    []string{"dev-", "dev_", "test-", "test_", "demo", "local"},
		contains:    []string{"development", "-dev-", "-test-", "-demo-"},
		suffixes:    []string{"-dev", "-test"},
	},
}

// ClassifyClusterName classifies a cluster name into a type for metrics.
// Matching is case-insensitive.
//
//	ClassifyClusterName("")                  // "unresolved"
//	ClassifyClusterName("prod-logs")         // "production"
//	ClassifyClusterName("logs-stg")          // "staging"
//	ClassifyClusterName("dev-search")        // "development"
//	ClassifyClusterName("aoss-collections")  // "serverless"
//	ClassifyClusterName("default")           // "other"
func ClassifyClusterName(name string) string {
	if name == "" {
		return string(ClusterTypeUnresolved)
	}

	lower := strings.ToLower(name)
	for _, rule := range classificationRules {
		if matchesAny(lower, rule.prefixes, strings.HasPrefix) ||
			matchesAny(lower, rule.contains, strings.Contains) ||
			matchesAny(lower, rule.suffixes, strings.HasSuffix) {
			return string(rule.clusterType)
		}
	}

	return string(ClusterTypeOther)
}

func matchesAny(s string, patterns []string, match func(string, string) bool) bool {
	for _, p := range patterns {
		if match(s, p) {
			return true
		}
	}
	return false
}
