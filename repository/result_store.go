package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/kagemusha-ai/kagemusha/models"
	"github.com/kagemusha-ai/kagemusha/utils"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by a ResultCache when no value exists for a key
var ErrCacheMiss = errors.New("cache miss")

// ResultCache is the fallback tier of the result store. Implementations must
// be safe for concurrent use.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

// RedisResultCache implements ResultCache on top of a Redis client
type RedisResultCache struct {
	rc *redis.Client
}

// NewRedisResultCache creates a new Redis-backed result cache
func NewRedisResultCache(rc *redis.Client) *RedisResultCache {
	return &RedisResultCache{rc: rc}
}

func (c *RedisResultCache) Get(ctx context.Context, key string) ([]byte, error) {
	bs, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return bs, nil
}

func (c *RedisResultCache) Set(ctx context.Context, key string, value []byte) error {
	return c.rc.Set(ctx, key, value, 0).Err()
}

func (c *RedisResultCache) Del(ctx context.Context, key string) error {
	return c.rc.Del(ctx, key).Err()
}

// NoopResultCache is the fallback tier used when caching is disabled: every
// read misses and writes are discarded
type NoopResultCache struct{}

func (NoopResultCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, ErrCacheMiss
}

func (NoopResultCache) Set(ctx context.Context, key string, value []byte) error { return nil }

func (NoopResultCache) Del(ctx context.Context, key string) error { return nil }

// ResultStore is the two-tier persistence boundary for audit results. The
// authoritative tier (PostgreSQL) is attempted first for every read and
// write; the fallback tier (cache) serves reads during outages and is kept
// warm after every write.
//
// Reads never fail: on an authoritative error the last cached value is
// returned silently, which may be empty or stale. Callers must tolerate
// served-from-cache data. Authoritative write failures are logged, not
// retried, and not surfaced.
type ResultStore interface {
	LoadResults(ctx context.Context, clientID uint) []*models.AuditResult
	LoadPrompts(ctx context.Context, clientID uint) []*models.Prompt
	SaveResult(ctx context.Context, clientID uint, result *models.AuditResult)
	ReplaceResult(ctx context.Context, clientID uint, result *models.AuditResult)
	ClearCachedResults(ctx context.Context, clientID uint)
	RefreshCache(ctx context.Context, clientID uint)
}

// TieredResultStore implements ResultStore over an AuditResultRepository
// (authoritative) and a ResultCache (fallback).
type TieredResultStore struct {
	results AuditResultRepository
	prompts PromptRepository
	cache   ResultCache
	prefix  string
	logger  *log.Logger
}

// NewTieredResultStore creates a new two-tier result store
func NewTieredResultStore(results AuditResultRepository, prompts PromptRepository, cache ResultCache, prefix string, logger *log.Logger) *TieredResultStore {
	if logger == nil {
		logger = log.Default()
	}
	return &TieredResultStore{
		results: results,
		prompts: prompts,
		cache:   cache,
		prefix:  prefix,
		logger:  logger,
	}
}

func (s *TieredResultStore) resultsKey(clientID uint) string {
	return fmt.Sprintf("%s:%s:%d", s.prefix, utils.ResultsCacheKey, clientID)
}

func (s *TieredResultStore) promptsKey(clientID uint) string {
	return fmt.Sprintf("%s:%s:%d", s.prefix, utils.PromptsCacheKey, clientID)
}

// LoadResults returns the client's audit results. Authoritative tier first;
// on success the fallback cache is overwritten with the fresh value. On any
// authoritative error the cached value is served without raising.
func (s *TieredResultStore) LoadResults(ctx context.Context, clientID uint) []*models.AuditResult {
	results, err := s.results.ListByClient(ctx, clientID)
	if err == nil {
		s.setCachedResults(ctx, clientID, results)
		return results
	}

	s.logger.Printf("result store: authoritative read failed for client %d, serving cache: %v", clientID, err)
	return s.cachedResults(ctx, clientID)
}

// LoadPrompts returns the client's prompt registry with the same
// authoritative-first, cache-fallback precedence as LoadResults.
func (s *TieredResultStore) LoadPrompts(ctx context.Context, clientID uint) []*models.Prompt {
	prompts, err := s.prompts.ListByClient(ctx, clientID)
	if err == nil {
		if bs, merr := json.Marshal(prompts); merr == nil {
			if cerr := s.cache.Set(ctx, s.promptsKey(clientID), bs); cerr != nil {
				s.logger.Printf("result store: prompt cache refresh failed for client %d: %v", clientID, cerr)
			}
		}
		return prompts
	}

	s.logger.Printf("result store: authoritative prompt read failed for client %d, serving cache: %v", clientID, err)

	bs, err := s.cache.Get(ctx, s.promptsKey(clientID))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Printf("result store: prompt cache read failed for client %d: %v", clientID, err)
		}
		return nil
	}

	var cached []*models.Prompt
	if err := json.Unmarshal(bs, &cached); err != nil {
		s.logger.Printf("result store: corrupt cached prompts for client %d: %v", clientID, err)
		return nil
	}
	return cached
}

// SaveResult appends a result. The authoritative write is attempted first;
// the fallback cache is updated afterwards regardless of the outcome so
// reads during an outage reflect the latest locally known state.
func (s *TieredResultStore) SaveResult(ctx context.Context, clientID uint, result *models.AuditResult) {
	if err := s.results.Save(ctx, result); err != nil {
		s.logger.Printf("result store: authoritative write failed for client %d prompt %d: %v", clientID, result.PromptID, err)
	}

	cached := s.cachedResults(ctx, clientID)
	cached = append(cached, result)
	s.setCachedResults(ctx, clientID, cached)
}

// ReplaceResult overwrites the live result for the result's prompt, in both
// tiers. Campaign-tagged entries in the cache are never replaced.
func (s *TieredResultStore) ReplaceResult(ctx context.Context, clientID uint, result *models.AuditResult) {
	if err := s.results.ReplaceForPrompt(ctx, result); err != nil {
		s.logger.Printf("result store: authoritative replace failed for client %d prompt %d: %v", clientID, result.PromptID, err)
	}

	cached := s.cachedResults(ctx, clientID)
	replaced := false
	for i, entry := range cached {
		if entry.PromptID == result.PromptID && entry.CampaignUUID == nil {
			cached[i] = result
			replaced = true
			break
		}
	}
	if !replaced {
		cached = append(cached, result)
	}
	s.setCachedResults(ctx, clientID, cached)
}

// ClearCachedResults drops the client's cached result view. The
// authoritative tier is untouched: this is a working-set reset, not a purge,
// and a later authoritative read will repopulate the cache from history.
func (s *TieredResultStore) ClearCachedResults(ctx context.Context, clientID uint) {
	if err := s.cache.Del(ctx, s.resultsKey(clientID)); err != nil {
		s.logger.Printf("result store: cache clear failed for client %d: %v", clientID, err)
	}
	if err := s.cache.Del(ctx, s.promptsKey(clientID)); err != nil {
		s.logger.Printf("result store: prompt cache clear failed for client %d: %v", clientID, err)
	}
}

// RefreshCache re-reads the authoritative tier and rewrites the fallback
// cache. Used after lifecycle changes (deactivate/reactivate) so the cached
// view tracks the new in-scope set.
func (s *TieredResultStore) RefreshCache(ctx context.Context, clientID uint) {
	results, err := s.results.ListByClient(ctx, clientID)
	if err != nil {
		s.logger.Printf("result store: cache refresh skipped for client %d: %v", clientID, err)
		return
	}
	s.setCachedResults(ctx, clientID, results)
}

func (s *TieredResultStore) cachedResults(ctx context.Context, clientID uint) []*models.AuditResult {
	bs, err := s.cache.Get(ctx, s.resultsKey(clientID))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Printf("result store: cache read failed for client %d: %v", clientID, err)
		}
		return nil
	}

	var cached []*models.AuditResult
	if err := json.Unmarshal(bs, &cached); err != nil {
		s.logger.Printf("result store: corrupt cached results for client %d: %v", clientID, err)
		return nil
	}

	for _, result := range cached {
		result.Normalize()
	}
	return cached
}

func (s *TieredResultStore) setCachedResults(ctx context.Context, clientID uint, results []*models.AuditResult) {
	bs, err := json.Marshal(results)
	if err != nil {
		s.logger.Printf("result store: cache marshal failed for client %d: %v", clientID, err)
		return
	}
	if err := s.cache.Set(ctx, s.resultsKey(clientID), bs); err != nil {
		s.logger.Printf("result store: cache write failed for client %d: %v", clientID, err)
	}
}
