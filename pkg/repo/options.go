package repo

import "github.com/cuemby/cryptofs/pkg/crypto"

// Options collects the RepoOpener's configuration knobs.
type Options struct {
	Create       bool
	CreateNew    bool
	ReadOnly     bool
	OpsLimit     crypto.Cost
	MemLimit     crypto.Cost
	Cipher       crypto.Cipher
	VersionLimit uint8
}

// Option mutates an Options value being built up by Open.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		OpsLimit:     crypto.Interactive,
		MemLimit:     crypto.Interactive,
		Cipher:       crypto.Xchacha,
		VersionLimit: 16,
	}
}

// Create opens an existing repo or creates one if it doesn't exist yet.
func Create() Option { return func(o *Options) { o.Create = true } }

// CreateNew creates a brand new repo and fails if one already exists.
func CreateNew() Option { return func(o *Options) { o.CreateNew = true } }

// ReadOnly rejects every mutating operation on the opened repo.
func ReadOnly() Option { return func(o *Options) { o.ReadOnly = true } }

// OpsLimit sets the Argon2id time-cost preset for password hashing.
func OpsLimit(c crypto.Cost) Option { return func(o *Options) { o.OpsLimit = c } }

// MemLimit sets the Argon2id memory-cost preset for password hashing.
func MemLimit(c crypto.Cost) Option { return func(o *Options) { o.MemLimit = c } }

// WithCipher picks the AEAD used for a brand new repo. Ignored when
// opening an existing one, whose cipher is read back from its super block.
func WithCipher(c crypto.Cipher) Option { return func(o *Options) { o.Cipher = c } }

// WithVersionLimit sets the default per-file version ring depth for a
// brand new repo.
func WithVersionLimit(n uint8) Option { return func(o *Options) { o.VersionLimit = n } }

// effectiveCost collapses the independent ops_limit/mem_limit knobs into
// the single crypto.Cost preset HashPwd actually takes, by picking
// whichever of the two the caller asked for is more expensive. See
// DESIGN.md for why the two axes aren't modeled separately.
func effectiveCost(o Options) crypto.Cost {
	if o.MemLimit > o.OpsLimit {
		return o.MemLimit
	}
	return o.OpsLimit
}
