package txn

import (
	"sync"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/backend"
	"github.com/cuemby/cryptofs/pkg/types"
)

// Manager hands out at most one in-flight writing transaction at a time:
// a process may hold at most one writing transaction against a repo. A
// second Begin while one is outstanding fails fast with InTrans rather
// than blocking — callers that want to wait do so above this layer.
type Manager struct {
	mu       sync.Mutex
	latched  bool
	nextTxid uint64
	backend  backend.Backend
}

// NewManager builds a Manager for a brand-new repo, txids starting at 1.
func NewManager(b backend.Backend) *Manager {
	return &Manager{backend: b}
}

// RestoreManager resumes txid allocation after lastTxid, the highest
// committed transaction id recorded by a prior session: txids assigned
// within a repo open are strictly increasing, but they must also stay
// increasing *across* opens.
func RestoreManager(b backend.Backend, lastTxid uint64) *Manager {
	return &Manager{backend: b, nextTxid: lastTxid}
}

// Begin starts a new writing transaction. It fails with InTrans if
// another transaction is already in flight.
func (m *Manager) Begin() (*Txn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latched {
		return nil, apperr.InTrans("txn.Begin")
	}
	m.latched = true
	m.nextTxid++
	return &Txn{id: types.Txid(m.nextTxid), mgr: m}, nil
}

// Txn is a single writing transaction's WAL staging area and the holder
// of the Manager's write latch until it's released by Dispose or
// Abandon.
type Txn struct {
	id      types.Txid
	mgr     *Manager
	entries []Entry
	done    bool
}

// ID returns the transaction's monotonic id.
func (t *Txn) ID() types.Txid { return t.id }

func (t *Txn) log(op OpKind, eid types.Eid, payload []byte) {
	t.entries = append(t.entries, Entry{Txid: t.id, Eid: eid, Op: op, Payload: payload})
}

// LogPutAddress records that this transaction wrote eid's address-keyspace
// record (an FNode, a content entity, an emap node payload).
func (t *Txn) LogPutAddress(eid types.Eid) { t.log(OpPutAddr, eid, nil) }

// LogDelAddress records that this transaction deleted eid's record.
func (t *Txn) LogDelAddress(eid types.Eid) { t.log(OpDelAddr, eid, nil) }

// LogPutBlocks records that this transaction wrote the block range span,
// logically owned by eid (a content entity).
func (t *Txn) LogPutBlocks(eid types.Eid, span types.Span) {
	t.log(OpPutBlocks, eid, encodeSpan(span))
}

// LogDelBlocks records that this transaction freed span.
func (t *Txn) LogDelBlocks(eid types.Eid, span types.Span) {
	t.log(OpDelBlocks, eid, encodeSpan(span))
}

// LogPutEmap records that this transaction staged an emap mask for eid.
func (t *Txn) LogPutEmap(eid types.Eid) { t.log(OpPutEmap, eid, nil) }

// Entries returns the WAL entries staged so far.
func (t *Txn) Entries() []Entry { return append([]Entry(nil), t.entries...) }

// Prepare durably writes this transaction's WAL record. It must be
// called only after every dirty block,
// address, and armored node update named by the logged entries has
// itself already been persisted to the backend.
func (t *Txn) Prepare() error {
	if t.done {
		return apperr.New(apperr.KindUncompleted, "txn.Prepare: transaction already finished")
	}
	if len(t.entries) == 0 {
		return nil
	}
	return t.mgr.backend.PutWAL(walKey(t.id), encodeLog(t.entries))
}

// Dispose deletes this transaction's WAL record and releases the write
// latch: the Dispose state that follows a successful super-block flip.
func (t *Txn) Dispose() error {
	defer t.release()
	if len(t.entries) == 0 {
		return nil
	}
	err := t.mgr.backend.DelWAL(walKey(t.id))
	if err != nil && apperr.Is(err, apperr.KindNotFound) {
		return nil
	}
	return err
}

// Abandon releases the write latch without touching the WAL, for a
// transaction that failed before Prepare ever ran.
func (t *Txn) Abandon() {
	t.release()
}

func (t *Txn) release() {
	if t.done {
		return
	}
	t.done = true
	t.mgr.mu.Lock()
	t.mgr.latched = false
	t.mgr.mu.Unlock()
}
