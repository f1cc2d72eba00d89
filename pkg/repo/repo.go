package repo

import (
	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/backend"
	"github.com/cuemby/cryptofs/pkg/chunker"
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/emap"
	"github.com/cuemby/cryptofs/pkg/fs"
	"github.com/cuemby/cryptofs/pkg/logx"
	"github.com/cuemby/cryptofs/pkg/metrics"
	"github.com/cuemby/cryptofs/pkg/txn"
	"github.com/cuemby/cryptofs/pkg/types"
	"github.com/cuemby/cryptofs/pkg/volume"
)

// Repo is a fully opened repository: a backend, its super block, and
// every subsystem wired on top of it. It owns the single choreography
// every mutation goes through — stage into a *txn.Txn via WithTxn, Prepare
// the WAL, flip the super block, Dispose the transaction.
type Repo struct {
	uri      URI
	pwd      string
	readOnly bool

	backend backend.Backend
	sb      *volume.SuperBlock
	mgr     *txn.Manager
	overlay *fs.Overlay
}

// Open parses uri, connects to the backend it names, and either creates
// a brand new repo or recovers an existing one, applying opts in order.
func Open(uri string, pwd string, opts ...Option) (*Repo, error) {
	log := logx.WithComponent("repo")

	u, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	b, err := openBackend(u)
	if err != nil {
		return nil, err
	}
	if err := b.Connect(); err != nil {
		return nil, err
	}

	exists, err := volume.Exists(b)
	if err != nil {
		return nil, err
	}

	switch {
	case exists && o.CreateNew:
		return nil, apperr.New(apperr.KindRepoExists, "repo.Open")
	case !exists && !o.Create && !o.CreateNew:
		return nil, apperr.New(apperr.KindInvalidArgument, "repo.Open: repository does not exist")
	case !exists:
		log.Info().Str("uri", uri).Msg("creating new repository")
		return create(b, u, pwd, o)
	default:
		log.Info().Str("uri", uri).Msg("opening existing repository")
		return openExisting(b, u, pwd, o)
	}
}

func create(b backend.Backend, u URI, pwd string, o Options) (*Repo, error) {
	cr := crypto.New(effectiveCost(o), o.Cipher)
	master := crypto.NewKey()

	if err := b.Init(cr, master); err != nil {
		return nil, err
	}

	volumeID := types.NewEid()
	root := types.NewEid()
	alloc := volume.NewAllocator()
	cm := chunker.NewContentMap()
	contentKey := chunker.DeriveKey(cr, master)
	em := emap.New(b, cr, master)
	mgr := txn.NewManager(b)

	overlay := fs.New(b, alloc, cr, contentKey, cm, em, root, o.ReadOnly, o.VersionLimit)

	tx, err := mgr.Begin()
	if err != nil {
		return nil, err
	}
	if err := overlay.InitRoot(tx); err != nil {
		tx.Abandon()
		return nil, err
	}
	if err := tx.Prepare(); err != nil {
		tx.Abandon()
		return nil, err
	}

	bs := bootstrap{
		Root:         root,
		Watermark:    alloc.Watermark(),
		LastTxid:     uint64(tx.ID()),
		VersionLimit: o.VersionLimit,
		ContentMap:   cm.Encode(),
	}
	sb := volume.New(volumeID, master, cr, encodeBootstrap(bs))
	if err := sb.Save(pwd, b); err != nil {
		return nil, err
	}
	if err := tx.Dispose(); err != nil {
		return nil, err
	}

	return &Repo{
		uri:      u,
		pwd:      pwd,
		readOnly: o.ReadOnly,
		backend:  b,
		sb:       sb,
		mgr:      mgr,
		overlay:  overlay,
	}, nil
}

func openExisting(b backend.Backend, u URI, pwd string, o Options) (*Repo, error) {
	sb, err := volume.Load(pwd, b)
	if err != nil {
		return nil, err
	}
	if err := b.Open(sb.Crypto, sb.Key); err != nil {
		return nil, err
	}

	bs, err := decodeBootstrap(sb.Payload)
	if err != nil {
		return nil, err
	}

	em := emap.New(b, sb.Crypto, sb.Key)

	// The single-writer invariant means at most one transaction could
	// have been Prepared but never Disposed when the process died:
	// whichever one would have followed the last one the super block
	// recorded as committed.
	candidate := types.Txid(bs.LastTxid + 1)
	if _, err := txn.Recover(b, em, candidate, false); err != nil {
		return nil, err
	}

	alloc := volume.RestoreAllocator(bs.Watermark)
	cm, err := chunker.DecodeContentMap(bs.ContentMap)
	if err != nil {
		return nil, err
	}
	contentKey := chunker.DeriveKey(sb.Crypto, sb.Key)
	mgr := txn.RestoreManager(b, bs.LastTxid)

	versionLimit := o.VersionLimit
	if bs.VersionLimit != 0 {
		versionLimit = bs.VersionLimit
	}

	overlay := fs.New(b, alloc, sb.Crypto, contentKey, cm, em, bs.Root, o.ReadOnly, versionLimit)

	return &Repo{
		uri:      u,
		pwd:      pwd,
		readOnly: o.ReadOnly,
		backend:  b,
		sb:       sb,
		mgr:      mgr,
		overlay:  overlay,
	}, nil
}

// FS returns the filesystem overlay for read-only operations (ReadDir,
// History) that don't need an in-flight transaction.
func (r *Repo) FS() *fs.Overlay { return r.overlay }

// WithTxn runs fn inside a fresh transaction and commits it: fn stages
// its writes through ov, and once it returns successfully WithTxn
// prepares the WAL, flips the super block with the refreshed bootstrap
// payload, and disposes the transaction. Any error from fn or from the
// commit steps abandons the transaction and leaves the repo unchanged.
func (r *Repo) WithTxn(fn func(tx *txn.Txn, ov *fs.Overlay) error) error {
	if r.readOnly {
		return apperr.ReadOnly("repo.WithTxn")
	}

	timer := metrics.NewTimer()

	tx, err := r.mgr.Begin()
	if err != nil {
		return err
	}

	log := logx.WithComponent("repo")

	if err := fn(tx, r.overlay); err != nil {
		if rerr := r.overlay.RollbackTxn(tx); rerr != nil {
			log.Error().Err(rerr).Msg("failed to roll back staged entity map writes after an aborted transaction")
		}
		tx.Abandon()
		metrics.TxnAbortsTotal.Inc()
		return err
	}

	if err := tx.Prepare(); err != nil {
		if rerr := r.overlay.RollbackTxn(tx); rerr != nil {
			log.Error().Err(rerr).Msg("failed to roll back staged entity map writes after a failed WAL prepare")
		}
		tx.Abandon()
		metrics.TxnAbortsTotal.Inc()
		return err
	}

	bs := bootstrap{
		Root:         r.overlay.Root(),
		Watermark:    r.overlay.Allocator().Watermark(),
		LastTxid:     uint64(tx.ID()),
		VersionLimit: r.overlay.VersionLimit(),
		ContentMap:   r.overlay.ContentMap().Encode(),
	}
	r.sb.Payload = encodeBootstrap(bs)
	if err := r.sb.Save(r.pwd, r.backend); err != nil {
		// The WAL record is already durable at this point: a restart
		// recovers by rolling the same writes back from there. Roll them
		// back here too so the repo doesn't serve a half-committed
		// transaction's state for the rest of this process's life.
		if rerr := r.overlay.RollbackTxn(tx); rerr != nil {
			log.Error().Err(rerr).Msg("failed to roll back staged entity map writes after a failed super block flip")
		}
		tx.Abandon()
		metrics.TxnAbortsTotal.Inc()
		return err
	}

	if err := tx.Dispose(); err != nil {
		return err
	}

	metrics.TxnCommitsTotal.Inc()
	timer.ObserveDuration(metrics.TxnCommitDuration)
	return nil
}

// Close releases the repo's resources. Backends that hold no external
// connection (e.g. MemBackend) treat this as a no-op.
func (r *Repo) Close() error {
	return nil
}
