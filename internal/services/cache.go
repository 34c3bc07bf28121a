package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/op/go-logging"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/AnshRaj112/visitrace-backend/internal/models"
	"github.com/AnshRaj112/visitrace-backend/internal/store"
)

var log = logging.MustGetLogger("SVC")

// DefaultReputationTTL is how long a cached reputation entry stays fresh.
const DefaultReputationTTL = 24 * time.Hour

// ReputationLookup resolves an IP to reputation data and never fails.
type ReputationLookup interface {
	Lookup(ctx context.Context, ip string) models.ReputationData
}

// ReputationOptions tunes a ReputationCache.
type ReputationOptions struct {
	TTL time.Duration
	// Coalesce shares one external call between concurrent misses for the
	// same IP in this process. Without it concurrent misses may each call out
	// and each write an entry; duplicates are tolerated either way.
	Coalesce bool
	// RPS and Burst bound outbound calls. RPS <= 0 disables the limiter.
	RPS   float64
	Burst int
}

// ReputationCache is a read-through, time-bounded cache in front of a Resolver.
//
// Stale entries are not swept on a timer: every successful fresh hit triggers
// a store-wide delete of entries older than the TTL.
type ReputationCache struct {
	store    store.ReputationStore
	resolver Resolver
	ttl      time.Duration
	limiter  *rate.Limiter
	group    *singleflight.Group
	now      func() time.Time
}

// NewReputationCache builds a cache over st. resolver may be nil when no API
// credential is configured; every miss then resolves to UnknownReputation
// without any network call.
func NewReputationCache(st store.ReputationStore, resolver Resolver, opts ReputationOptions) *ReputationCache {
	c := &ReputationCache{
		store:    st,
		resolver: resolver,
		ttl:      opts.TTL,
		now:      time.Now,
	}
	if c.ttl <= 0 {
		c.ttl = DefaultReputationTTL
	}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	if opts.Coalesce {
		c.group = &singleflight.Group{}
	}
	return c
}

// Lookup returns the fresh cached entry for ip, or resolves and stores a new
// one, or UnknownReputation when neither is possible.
func (c *ReputationCache) Lookup(ctx context.Context, ip string) models.ReputationData {
	if ip == "" {
		return models.UnknownReputation
	}

	cutoff := c.now().Add(-c.ttl)
	entry, err := c.store.FindFreshReputation(ctx, ip, cutoff)
	if err != nil {
		log.Warningf("reputation cache read for %s failed: %v", ip, err)
	} else if entry != nil {
		c.SweepStale(ctx, cutoff)
		return entry.ReputationData
	}

	if c.resolver == nil {
		return models.UnknownReputation
	}

	if c.group == nil {
		return c.resolve(ctx, ip)
	}
	// The shared call must not inherit one waiter's cancellation; the
	// resolver's own timeout bounds it.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(ip, func() (interface{}, error) {
		return c.resolve(shared, ip), nil
	})
	select {
	case res := <-ch:
		return res.Val.(models.ReputationData)
	case <-ctx.Done():
		return models.UnknownReputation
	}
}

// SweepStale deletes every entry stamped at or before cutoff. Failures are
// logged only.
func (c *ReputationCache) SweepStale(ctx context.Context, cutoff time.Time) {
	n, err := c.store.DeleteStaleReputation(ctx, cutoff)
	if err != nil {
		log.Warningf("reputation sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Debugf("reputation sweep removed %d stale entries", n)
	}
}

func (c *ReputationCache) resolve(ctx context.Context, ip string) models.ReputationData {
	if c.limiter != nil && !c.limiter.Allow() {
		log.Debugf("reputation lookup for %s skipped: outbound rate limit reached", ip)
		return models.UnknownReputation
	}

	data, err := c.resolver.Resolve(ctx, ip)
	if err != nil {
		log.Infof("reputation lookup for %s failed: %v", ip, err)
		return models.UnknownReputation
	}

	entry := &models.ReputationEntry{
		ID:             uuid.New(),
		IP:             ip,
		ReputationData: data,
		Timestamp:      c.now().UTC(),
	}
	if err := c.store.InsertReputation(ctx, entry); err != nil {
		log.Errorf("storing reputation for %s failed: %v", ip, err)
	}
	return data
}
