package backend

import (
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/types"
)

// Backend is the capability object providing keyed object storage that
// every other layer of cryptofs is built on top of.
type Backend interface {
	// Exists reports whether the repo already has data in this backend.
	Exists() (bool, error)

	// Init prepares a brand new, empty repo in this backend.
	Init(crypto crypto.Crypto, key crypto.Key) error

	// Open prepares an existing repo in this backend for use.
	Open(crypto crypto.Crypto, key crypto.Key) error

	// Connect establishes any underlying network/file connection. Safe to
	// call multiple times.
	Connect() error

	GetSuperBlock(suffix uint8) ([]byte, error)
	PutSuperBlock(data []byte, suffix uint8) error

	GetWAL(eid types.Eid) ([]byte, error)
	PutWAL(eid types.Eid, data []byte) error
	DelWAL(eid types.Eid) error

	GetAddress(eid types.Eid) ([]byte, error)
	PutAddress(eid types.Eid, data []byte) error
	DelAddress(eid types.Eid) error

	// GetBlocks reads span.BlockCount()*BlkSize bytes into dst.
	GetBlocks(dst []byte, span types.Span) error
	// PutBlocks writes data, whose length must equal
	// span.BlockCount()*BlkSize.
	PutBlocks(span types.Span, data []byte) error
	DelBlocks(span types.Span) error

	Flush() error
}
