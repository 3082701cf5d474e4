package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionAnswersKey returns the cache key for a session's autosaved answers.
func (r *CacheKeyStruct) SessionAnswersKey(sessionID string) string {
	return fmt.Sprintf("session:%s:answers", sessionID)
}

// SessionPaceKey returns the cache key for a session's per-question answer timestamps.
func (r *CacheKeyStruct) SessionPaceKey(sessionID string) string {
	return fmt.Sprintf("session:%s:pace", sessionID)
}

// ScaleCatalogKey returns the cache key for the scale catalog payload.
func (r *CacheKeyStruct) ScaleCatalogKey() string {
	return "catalog:scales"
}

// SessionDeadlineIndexKey returns the ZSET key indexing session auto-submit deadlines.
func (r *CacheKeyStruct) SessionDeadlineIndexKey() string {
	return "sessions:deadlines"
}

var CacheKey = NewCacheKeyStruct()
