package repo

import (
	"fmt"
	"sync"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/backend"
	"github.com/redis/go-redis/v9"
)

// memRegistry keeps mem:// backends alive across repeated Open calls in
// the same process: a MemBackend has no outside-the-process durability,
// so a second Open of the same name must return the SAME instance for
// "close, then reopen" to see the data the first Open wrote.
var (
	memRegistryMu sync.Mutex
	memRegistry   = map[string]*backend.MemBackend{}
)

func memBackendFor(name string) *backend.MemBackend {
	memRegistryMu.Lock()
	defer memRegistryMu.Unlock()
	b, ok := memRegistry[name]
	if !ok {
		b = backend.NewMemBackend()
		memRegistry[name] = b
	}
	return b
}

// openBackend maps a parsed URI to the Backend it names.
func openBackend(u URI) (backend.Backend, error) {
	switch u.Scheme {
	case SchemeMem:
		return memBackendFor(u.Name), nil

	case SchemeFile:
		return backend.NewFileBackend(u.Path), nil

	case SchemeRedis:
		return backend.NewRedisBackend(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", u.Host, u.Port),
			DB:   u.DB,
		}), nil

	case SchemeRedisUnix:
		return backend.NewRedisBackend(&redis.Options{
			Network: "unix",
			Addr:    u.Path,
		}), nil

	case SchemeZbox:
		// The access key and transport negotiation with the remote
		// object store are out of this module's scope; only the cache
		// topology is modeled here.
		remote := backend.NewHTTPBackend(fmt.Sprintf("https://%s.zbox.internal", u.Name))
		switch u.CacheType {
		case "mem", "file":
			return backend.NewLocalCache(remote, u.CacheSizeMiB*1024*1024), nil
		default:
			return nil, apperr.New(apperr.KindInvalidUri, "repo.openBackend: cache_type=browser has no Go-native backend")
		}

	default:
		return nil, apperr.New(apperr.KindInvalidUri, "repo.openBackend: unrecognized scheme")
	}
}
