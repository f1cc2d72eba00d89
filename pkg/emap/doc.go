/*
Package emap implements the entity map: the persistent Eid→location
index every other layer resolves through to find an entity's current
Cell{Txid, PreTxid}.

# Transaction masking

A live transaction never mutates an entity map node directly. Put/Del
set a node's in-memory mask to the writing transaction's Txid; reads
from outside that transaction keep seeing the node's last-committed
cell until Commit advances the cell to the masked Txid, or Abort drops
the mask and evicts the node from the cache. Abort never deletes
anything from the backend; removing the arm a committed-then-abandoned
transaction wrote is RollbackPut's job. This lets one transaction stage
writes against an entity while concurrent readers keep a consistent
view.

# Caching and pinning

Nodes are cached in a pkg/cache LRU of bounded size; a node with a
non-nil mask is pinned, since evicting it would lose uncommitted,
unpersisted transaction state.
*/
package emap
