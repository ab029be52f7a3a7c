package storage

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// UserCache memoizes username lookups used when resolving message
// recipients. Usernames are immutable once registered, so entries only ever
// age out; there is no invalidation path.
type UserCache struct {
	c *gocache.Cache
}

func NewUserCache() *UserCache {
	return &UserCache{c: gocache.New(5*time.Minute, 10*time.Minute)}
}

func (u *UserCache) Get(username string) (uint, bool) {
	if v, found := u.c.Get(username); found {
		if id, ok := v.(uint); ok {
			return id, true
		}
	}
	return 0, false
}

func (u *UserCache) Put(username string, id uint) {
	u.c.SetDefault(username, id)
}
