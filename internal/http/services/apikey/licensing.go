package apikey

import (
	"context"
	"strconv"
	"time"

	"github.com/dropDatabas3/gatekit/internal/cache"
	"github.com/dropDatabas3/gatekit/internal/observability/logger"
)

// CachedLicensing envuelve un Licensing remoto con un cache por organización.
// Los límites cambian con upgrades de plan, eventos raros: un TTL corto
// alcanza y evita un round-trip por cada Generate.
type CachedLicensing struct {
	Inner Licensing
	Cache cache.Client
	TTL   time.Duration
}

// NewCachedLicensing crea el wrapper. TTL <= 0 usa 5 minutos.
func NewCachedLicensing(inner Licensing, c cache.Client, ttl time.Duration) *CachedLicensing {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedLicensing{Inner: inner, Cache: c, TTL: ttl}
}

func (l *CachedLicensing) MaxAPIKeys(ctx context.Context, orgID string) (int, error) {
	key := "license:max_api_keys:" + orgID

	if v, err := l.Cache.Get(ctx, key); err == nil {
		if n, perr := strconv.Atoi(v); perr == nil {
			return n, nil
		}
	} else if !cache.IsNotFound(err) {
		logger.From(ctx).Warn("licensing cache read failed",
			logger.Component("apikey.licensing"),
			logger.Err(err),
		)
	}

	n, err := l.Inner.MaxAPIKeys(ctx, orgID)
	if err != nil {
		return 0, err
	}
	if err := l.Cache.Set(ctx, key, strconv.Itoa(n), l.TTL); err != nil {
		logger.From(ctx).Warn("licensing cache write failed",
			logger.Component("apikey.licensing"),
			logger.Err(err),
		)
	}
	return n, nil
}
