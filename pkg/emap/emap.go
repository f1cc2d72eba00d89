package emap

import (
	"encoding/binary"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/backend"
	"github.com/cuemby/cryptofs/pkg/cache"
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/logx"
	"github.com/cuemby/cryptofs/pkg/metrics"
	"github.com/cuemby/cryptofs/pkg/types"
)

// cacheSize bounds how many entity map nodes are held in memory at once.
const cacheSize = 32

// subsystemID is the HKDF subsystem identifier emap's node encryption
// subkey is derived under, keeping it distinct from every other
// persisted object type.
const subsystemID uint64 = 1

// An entity's node is armored the same way the super block is: it lives
// in two physical backend slots, derived deterministically from the
// entity id, and every write goes to whichever arm didn't hold the
// highest Txid last time it was loaded. A crash between writing the new
// arm and the super-block flip that makes the write durable leaves the
// old arm untouched, so rollback only ever has to delete the arm a
// specific txid wrote, never reconstruct lost bytes.
const (
	armLeft  uint8 = 0
	armRight uint8 = 1
)

// armEid derives the physical backend address of one of id's two arms.
// It never collides with a real entity id: it's a hash of id and the arm
// byte, landing in the same 32-byte address-keyspace but requiring a
// second-preimage break to forge.
func armEid(id types.Eid, arm uint8) types.Eid {
	h := crypto.HashBytes(append(append([]byte(nil), id[:]...), arm))
	return types.EidFromSlice(h[:])
}

// Cell is an entity's current and previous transaction id: a resolvable
// entity address always boils down to one of these.
type Cell struct {
	Txid    types.Txid
	PreTxid types.Txid
}

func (c *Cell) advanceTo(txid types.Txid) {
	c.PreTxid = c.Txid
	c.Txid = txid
}

// node is the in-memory, cached representation of one entity map entry.
// mask holds the Txid of a transaction currently staging a write against
// this entity; nil means no in-flight write. payload is the entity's own
// opaque record (a serialized FNode, Content address, or content-map
// blob) riding alongside the txn-bookkeeping cell in the same armored
// node, since both share one backend address-keyspace slot per Eid.
// writer is the id of the transaction that produced this arm's write; it
// tracks the real transaction even when cell.Txid has been overwritten
// with the deletion sentinel, which is what makes RollbackPut able to
// find "the arm txid wrote" for a deletion, not just an ordinary commit.
// It's part of the encoded record, so it survives the crash it exists to
// recover from. arm is which of the node's two physical slots currently
// holds this state; it's never encoded, only derived at load time.
type node struct {
	id      types.Eid
	cell    Cell
	mask    *types.Txid
	writer  types.Txid
	payload []byte
	arm     uint8
}

type pinChecker struct{}

func (pinChecker) IsPinned(n *node) bool { return n.mask != nil }

type countMeter struct{}

func (countMeter) Measure(*node) int { return 1 }

// Emap is the persistent Eid→Cell index.
type Emap struct {
	cache   *cache.LRU[types.Eid, *node]
	backend backend.Backend
	crypto  crypto.Crypto
	subkey  crypto.Key
}

// New builds an Emap backed by b, encrypting its nodes under a subkey
// derived from master.
func New(b backend.Backend, cr crypto.Crypto, master crypto.Key) *Emap {
	return &Emap{
		cache:   cache.New[types.Eid, *node](cacheSize, countMeter{}, pinChecker{}),
		backend: b,
		crypto:  cr,
		subkey:  cr.DeriveSubkey(master, subsystemID),
	}
}

func encodeNode(n *node) []byte {
	buf := make([]byte, 8+8+8+4+len(n.payload))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(n.cell.Txid))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(n.cell.PreTxid))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(n.writer))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(len(n.payload)))
	copy(buf[28:], n.payload)
	return buf
}

func decodeNode(id types.Eid, buf []byte) (*node, error) {
	if len(buf) < 28 {
		return nil, apperr.New(apperr.KindInvalidArgument, "emap.decodeNode: bad length")
	}
	plen := binary.LittleEndian.Uint32(buf[24:28])
	if len(buf) != 28+int(plen) {
		return nil, apperr.New(apperr.KindInvalidArgument, "emap.decodeNode: bad payload length")
	}
	var payload []byte
	if plen > 0 {
		payload = append([]byte(nil), buf[28:28+plen]...)
	}
	return &node{
		id: id,
		cell: Cell{
			Txid:    types.Txid(binary.LittleEndian.Uint64(buf[0:8])),
			PreTxid: types.Txid(binary.LittleEndian.Uint64(buf[8:16])),
		},
		writer:  types.Txid(binary.LittleEndian.Uint64(buf[16:24])),
		payload: payload,
	}, nil
}

// loadArm reads and decodes the single arm slot arm of id, without
// comparing it against its sibling.
func (e *Emap) loadArm(id types.Eid, arm uint8) (*node, error) {
	enc, err := e.backend.GetAddress(armEid(id, arm))
	if err != nil {
		return nil, err
	}
	plain, err := e.crypto.Decrypt(enc, e.subkey)
	if err != nil {
		return nil, err
	}
	n, err := decodeNode(id, plain)
	if err != nil {
		return nil, err
	}
	n.arm = arm
	return n, nil
}

// loadNode reads both of id's arms and returns the one with the higher
// Txid: the other arm either never held a write or holds a write a
// still-open transaction hadn't committed when the process last closed.
// A corrupted arm is logged and ignored in favor of its sibling; only
// when both fail does loadNode report an error.
func (e *Emap) loadNode(id types.Eid) (*node, error) {
	log := logx.WithComponent("emap")

	left, leftErr := e.loadArm(id, armLeft)
	right, rightErr := e.loadArm(id, armRight)

	switch {
	case leftErr == nil && rightErr == nil:
		if right.cell.Txid > left.cell.Txid {
			return right, nil
		}
		return left, nil
	case leftErr == nil:
		if !apperr.Is(rightErr, apperr.KindNotFound) {
			log.Warn().Err(rightErr).Str("eid", id.String()).Msg("entity map right arm unreadable, using left")
		}
		return left, nil
	case rightErr == nil:
		if !apperr.Is(leftErr, apperr.KindNotFound) {
			log.Warn().Err(leftErr).Str("eid", id.String()).Msg("entity map left arm unreadable, using right")
		}
		return right, nil
	default:
		return nil, leftErr
	}
}

// saveNode encrypts and writes n to whichever arm isn't currently active,
// then flips n's active arm to it. The previously active arm is left
// untouched until the next commit, so a crash before the caller's
// transaction is durably committed leaves it recoverable by deleting
// only the arm this write just created.
func (e *Emap) saveNode(n *node) error {
	target := armLeft
	if n.arm == armLeft {
		target = armRight
	}
	plain := encodeNode(n)
	enc, err := e.crypto.Encrypt(plain, e.subkey)
	if err != nil {
		return err
	}
	if err := e.backend.PutAddress(armEid(n.id, target), enc); err != nil {
		return err
	}
	n.arm = target
	return nil
}

// getNode returns the cached or freshly-loaded node for id. A node whose
// committed cell is a deletion sentinel is reported as not found, even
// though its record technically still exists on disk (it's reclaimed by
// a later GC pass, not by this lookup).
func (e *Emap) getNode(id types.Eid) (*node, error) {
	if !e.cache.ContainsKey(id) {
		metrics.EmapCacheMissesTotal.Inc()
		n, err := e.loadNode(id)
		if err != nil {
			return nil, err
		}
		e.cache.Insert(id, n)
	} else {
		metrics.EmapCacheHitsTotal.Inc()
	}

	n, _ := e.cache.GetRefresh(id)
	nd := *n
	if nd.cell.Txid.IsDel() {
		return nil, apperr.NotFound("emap.getNode")
	}
	return &nd, nil
}

// Get resolves loc to its entity map cell. If loc's own transaction has
// an in-flight mask on this entity, that transaction sees its own
// uncommitted write; every other caller sees the last-committed cell.
func (e *Emap) Get(loc types.Loc) (Cell, error) {
	n, err := e.getNode(loc.Eid)
	if err != nil {
		return Cell{}, err
	}

	if n.mask == nil {
		return n.cell, nil
	}
	if n.mask.IsDel() {
		return Cell{}, apperr.NotFound("emap.Get")
	}
	if *n.mask == loc.Txid {
		return Cell{Txid: *n.mask, PreTxid: n.cell.Txid}, nil
	}
	return n.cell, nil
}

// Put stages a write of loc.Txid against loc.Eid. A second Put by a
// different in-flight transaction against the same entity fails with
// InTrans: one entity can only be staged by one transaction at a time.
func (e *Emap) Put(loc types.Loc) error {
	n, err := e.getNode(loc.Eid)
	switch {
	case err == nil:
		if n.mask != nil {
			if *n.mask == loc.Txid {
				return nil
			}
			return apperr.InTrans("emap.Put")
		}
		txid := loc.Txid
		n.mask = &txid
		e.cache.Insert(loc.Eid, n)
		return nil
	case apperr.Is(err, apperr.KindNotFound):
		// fall through to create a brand new node below
	default:
		return err
	}

	txid := loc.Txid
	n = &node{id: loc.Eid, mask: &txid}
	e.cache.Insert(loc.Eid, n)
	return nil
}

// Del stages a deletion of loc.Eid by masking it with types.DelTxid;
// loc.Txid itself is not recorded until Commit(loc) stores it as the
// arm's writer.
func (e *Emap) Del(loc types.Loc) error {
	return e.Put(types.NewLoc(loc.Eid, types.DelTxid))
}

// GetPayload returns the last-committed opaque record stored alongside
// id's cell, e.g. a serialized FNode or content address.
func (e *Emap) GetPayload(id types.Eid) ([]byte, error) {
	n, err := e.getNode(id)
	if err != nil {
		return nil, err
	}
	return n.payload, nil
}

// SetPayload attaches payload to the node staged for id, to be persisted
// on the next Commit(id's loc). The caller is expected to have already
// staged a Put for id in the same transaction.
func (e *Emap) SetPayload(id types.Eid, payload []byte) error {
	n, ok := e.cache.GetMut(id)
	if !ok {
		loaded, err := e.loadNode(id)
		if err != nil {
			if !apperr.Is(err, apperr.KindNotFound) {
				return err
			}
			loaded = &node{id: id}
		}
		e.cache.Insert(id, loaded)
		n, _ = e.cache.GetMut(id)
	}
	nd := *n
	nd.payload = append([]byte(nil), payload...)
	*n = nd
	return nil
}

// Commit advances an entity's cell to its staged Txid and persists the
// node. The caller must have previously Put a matching loc.
func (e *Emap) Commit(loc types.Loc) error {
	n, ok := e.cache.GetMut(loc.Eid)
	if !ok {
		return apperr.New(apperr.KindUncompleted, "emap.Commit: node not cached")
	}
	nd := *n
	if nd.mask == nil {
		return apperr.New(apperr.KindUncompleted, "emap.Commit: no staged write")
	}
	txid := *nd.mask
	nd.mask = nil
	nd.cell.advanceTo(txid)
	nd.writer = loc.Txid
	if err := e.saveNode(&nd); err != nil {
		return err
	}
	*n = nd
	return nil
}

// Abort discards a staged write, evicting the node from the cache so the
// next lookup re-reads the backend's last-committed arm. It never
// deletes anything: a staged write that reached Commit already went to
// the node's inactive arm, leaving the previously active arm — the last
// committed state — untouched. Physically reclaiming the arm an aborted
// transaction wrote is RollbackPut's job, driven by the transaction's own
// WAL entries rather than by the cache entry, since Abort can be called
// long after the staging call that dirtied the cache.
func (e *Emap) Abort(loc types.Loc) error {
	n, ok := e.cache.GetMut(loc.Eid)
	if !ok {
		return nil
	}
	nd := *n
	if nd.mask != nil && *nd.mask == loc.Txid {
		nd.mask = nil
		*n = nd
	}
	e.cache.Remove(loc.Eid)
	return nil
}

// RollbackPut undoes the physical effect of a Commit(loc) whose owning
// transaction never became durable: it finds whichever of id's two arms
// was written by txid and deletes only that one, leaving the sibling
// arm — the state committed before this transaction started — as the
// sole surviving record. Matching is done on the arm's writer, not its
// cell.Txid, since a deletion's committed cell carries the deletion
// sentinel rather than the deleting transaction's id. If neither arm was
// written by txid (the write was never flushed, or a previous recovery
// pass already deleted it), it's a no-op. Used by crash recovery and by
// an in-process transaction abort alike, since both need the same "undo
// one specific write" operation.
func (e *Emap) RollbackPut(id types.Eid, txid types.Txid) error {
	for _, arm := range [...]uint8{armLeft, armRight} {
		n, err := e.loadArm(id, arm)
		if err != nil {
			continue
		}
		if n.writer == txid {
			if err := e.backend.DelAddress(armEid(id, arm)); err != nil && !apperr.Is(err, apperr.KindNotFound) {
				return err
			}
		}
	}
	e.cache.Remove(id)
	return nil
}

// Remove deletes both of id's arms outright, bypassing transaction
// bookkeeping entirely. Used by garbage collection once an entity's
// deletion has been fully reclaimed.
func (e *Emap) Remove(id types.Eid) error {
	for _, arm := range [...]uint8{armLeft, armRight} {
		if err := e.backend.DelAddress(armEid(id, arm)); err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
	}
	e.cache.Remove(id)
	return nil
}

// CacheLen reports how many nodes are currently held in the in-memory
// LRU, for the metrics collector's gauge.
func (e *Emap) CacheLen() int { return e.cache.Len() }
