package opensearch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/semver/v3"
	gocache "github.com/patrickmn/go-cache"

	"github.com/giantswarm/mcp-opensearch/internal/logging"
)

// DefaultVersionTTL is how long a detected backend version is trusted.
const DefaultVersionTTL = 10 * time.Minute

// VersionCache memoises the backend version per cluster.
type VersionCache struct {
	cache  *gocache.Cache
	logger *slog.Logger
}

// NewVersionCache creates a VersionCache whose entries live for ttl.
func NewVersionCache(ttl time.Duration, logger *slog.Logger) *VersionCache {
	if ttl <= 0 {
		ttl = DefaultVersionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VersionCache{
		cache:  gocache.New(ttl, 2*ttl),
		logger: logger,
	}
}

// Version returns the cached version of cluster, querying client on a miss.
func (v *VersionCache) Version(ctx context.Context, cluster string, client Client) (*semver.Version, error) {
	if cached, ok := v.cache.Get(cluster); ok {
		if version, ok := cached.(*semver.Version); ok {
			return version, nil
		}
	}

	info, err := client.Info(ctx)
	if err != nil {
		return nil, err
	}

	version, err := semver.NewVersion(info.Version)
	if err != nil {
		return nil, fmt.Errorf("cluster %q reported unparseable version %q: %w", cluster, info.Version, err)
	}

	v.cache.SetDefault(cluster, version)
	v.logger.Info("Detected OpenSearch version",
		logging.Cluster(cluster),
		"version", version.String(),
		"distribution", info.Distribution)

	return version, nil
}

// Invalidate forgets the versions of the named clusters.
func (v *VersionCache) Invalidate(clusters ...string) {
	for _, c := range clusters {
		v.cache.Delete(c)
	}
}
