package reports

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/ledger_analytics/config"
	"bitbucket.org/mmdatafocus/ledger_analytics/utils"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

func reportCacheEnabled() bool {
	v := strings.TrimSpace(os.Getenv("ENABLE_REPORT_CACHE"))
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes") || strings.EqualFold(v, "on")
}

func reportCacheTTL() time.Duration {
	// Env: REPORT_CACHE_TTL_SECONDS (default 120s)
	ttl := 120
	if v := strings.TrimSpace(os.Getenv("REPORT_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = n
		}
	}
	return time.Duration(ttl) * time.Second
}

func reportSlowMs() int64 {
	// Env: REPORT_SLOW_MS (default 500ms)
	ms := int64(500)
	if v := strings.TrimSpace(os.Getenv("REPORT_SLOW_MS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			ms = n
		}
	}
	return ms
}

func logSlowReport(ctx context.Context, name string, started time.Time, extra map[string]any) {
	d := time.Since(started)
	if d.Milliseconds() < reportSlowMs() {
		return
	}
	fields := reportLogFields(ctx, name)
	fields["ms"] = d.Milliseconds()
	fields["extra"] = extra
	config.GetLogger().WithFields(fields).Warn("slow_report")
}

// reportLogFields carries the request identity into report log lines.
func reportLogFields(ctx context.Context, name string) logrus.Fields {
	biz, _ := utils.GetBusinessIdFromContext(ctx)
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	user, _ := utils.GetUserNameFromContext(ctx)
	return logrus.Fields{
		"report":         name,
		"business_id":    biz,
		"correlation_id": cid,
		"user_name":      user,
	}
}

func cacheGet[T any](key string, dest *T) (bool, error) {
	return config.GetRedisObject(key, dest)
}

func cacheSet(key string, obj any, ttl time.Duration) error {
	return config.SetRedisObject(key, obj, ttl)
}

func reportKeySet(businessId string) string {
	return "ReportKeys:" + businessId
}

func reportCacheKey(name string, businessId string, parts ...string) string {
	return fmt.Sprintf("Report:%s:%s:%s", name, businessId, strings.Join(parts, ":"))
}

// cachedReport serves name from the redis report cache when enabled, building
// it otherwise. Concurrent misses on the same key are collapsed with a redis
// lock; a miss that cannot get the lock builds without caching.
func cachedReport[T any](ctx context.Context, name string, parts []string, build func(context.Context) (T, error)) (T, error) {
	started := time.Now()
	defer logSlowReport(ctx, name, started, map[string]any{"key": parts})

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		var zero T
		return zero, utils.ErrorBusinessRequired
	}
	if !reportCacheEnabled() || config.GetRedisDB() == nil {
		return build(ctx)
	}

	logger := config.GetLogger()
	key := reportCacheKey(name, businessId, parts...)

	var cached T
	if hit, err := cacheGet(key, &cached); err != nil {
		config.LogError(logger, "reports", name, "cacheGet", key, err)
	} else if hit {
		return cached, nil
	}

	var lock *redislock.Lock
	if locker := config.GetRedisLock(); locker != nil {
		l, err := locker.Obtain(ctx, "lock:"+key, 30*time.Second, &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 20),
		})
		switch {
		case err == nil:
			lock = l
		case errors.Is(err, redislock.ErrNotObtained):
			logger.WithField("key", key).Warn("could not obtain report lock; building without cache")
			return build(ctx)
		default:
			logger.WithField("key", key).Warn("error obtaining report lock: " + err.Error())
			return build(ctx)
		}
	}
	defer func() {
		if lock == nil {
			return
		}
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.WithField("key", key).Warn("failed to release report lock: " + err.Error())
		}
	}()

	// another holder of the lock may have filled the cache meanwhile
	if hit, err := cacheGet(key, &cached); err == nil && hit {
		return cached, nil
	}

	result, err := build(ctx)
	if err != nil {
		return result, err
	}
	if err := cacheSet(key, result, reportCacheTTL()); err != nil {
		config.LogError(logger, "reports", name, "cacheSet", key, err)
		return result, nil
	}
	if err := config.AddRedisSet(reportKeySet(businessId), key); err != nil {
		config.LogError(logger, "reports", name, "AddRedisSet", key, err)
	}
	return result, nil
}

// InvalidateReportCache drops every cached report of the context's business.
func InvalidateReportCache(ctx context.Context) error {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return utils.ErrorBusinessRequired
	}
	setKey := reportKeySet(businessId)
	keys, err := config.GetRedisSetMembers(setKey)
	if err != nil {
		return err
	}
	return config.RemoveRedisKey(append(keys, setKey)...)
}
