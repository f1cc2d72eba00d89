/*
Package cache implements a generic, pin-aware LRU cache.

cryptofs needs an eviction policy that the standard `hashicorp/golang-lru`
can't express: entries that are "pinned" — in this codebase, an emap node
currently masked by an in-flight transaction, or a local-cache object the
caller has marked hot — must never be evicted, no matter how cold they get.
No library in the corpus exposes a pin-aware LRU, so this is a direct port
of the original's generic Lru<K, V, Meter, Pinnable> design onto Go
generics and container/list, rather than a library import.

A Meter measures the "weight" of a value (CountMeter counts 1 per entry;
a cache that tracks byte budgets supplies its own). A Pinnable reports
whether a value must be skipped during eviction. Insert evicts
least-recently-used, unpinned entries until the cache is back under
capacity; if every entry is pinned, the cache is allowed to exceed
capacity rather than evict something live.
*/
package cache
