package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const (
	defaultCacheSize = 10 * 1024 * 1024
	cacheTTLSeconds  = 60
)

// SuggestCache keeps recent autosuggest results in memory. Entries are
// short-lived and the whole cache is dropped on any catalog write, so
// stale suggestions never outlive a mutation for long.
type SuggestCache struct {
	cache *freecache.Cache
}

func NewSuggestCache(sizeBytes int) *SuggestCache {
	if sizeBytes <= 0 {
		sizeBytes = defaultCacheSize
	}
	return &SuggestCache{
		cache: freecache.NewCache(sizeBytes),
	}
}

func suggestCacheKey(kind Kind, userID int, query string, limit int) []byte {
	return []byte(fmt.Sprintf("%s|%d|%s|%d", kind, userID, strings.ToLower(query), limit))
}

func (c *SuggestCache) Get(kind Kind, userID int, query string, limit int) ([]Item, bool) {
	cached, err := c.cache.Get(suggestCacheKey(kind, userID, query, limit))
	if err != nil {
		return nil, false
	}
	var items []Item
	if err := json.Unmarshal(cached, &items); err != nil {
		log.Errorf("suggest cache: unmarshal: %s", err)
		return nil, false
	}
	return items, true
}

func (c *SuggestCache) Set(kind Kind, userID int, query string, limit int, items []Item) {
	itemsJson, err := json.Marshal(items)
	if err != nil {
		log.Errorf("suggest cache: marshal: %s", err)
		return
	}
	if err := c.cache.Set(suggestCacheKey(kind, userID, query, limit), itemsJson, cacheTTLSeconds); err != nil {
		log.Errorf("suggest cache: set: %s", err)
	}
}

func (c *SuggestCache) Clear() {
	c.cache.Clear()
}
