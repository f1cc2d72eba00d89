package backend

import (
	"math/rand"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/types"
)

// FaultSample is one entry of a FaultyBackend's deterministic fault
// schedule: the next call matching Op fails with Kind instead of
// delegating to the wrapped backend.
type FaultSample struct {
	Op   string
	Kind apperr.Kind
}

// FaultyBackend wraps another Backend and injects errors drawn from a
// math/rand source seeded with seed, one Float64 draw per call compared
// against rate; there is no precomputed sample buffer. The same seed and
// call sequence reproduce the same failures, and AddFault scripts
// exactly which operation fails and when.
type FaultyBackend struct {
	inner Backend
	rng   *rand.Rand

	// rate is the probability, in [0,1], that any given call fails when
	// no explicit schedule entry applies.
	rate float64

	// schedule, if non-empty, is searched in order on every call: the
	// first entry whose Op matches the call fails it with that entry's
	// Kind and is removed.
	schedule []FaultSample

	calls map[string]int
}

// NewFaultyBackend wraps inner with a fault injector seeded by seed. A
// rate of 0 disables random faults entirely, leaving only the explicit
// schedule (set with AddFault) to trigger failures.
func NewFaultyBackend(inner Backend, seed int64, rate float64) *FaultyBackend {
	return &FaultyBackend{
		inner: inner,
		rng:   rand.New(rand.NewSource(seed)),
		rate:  rate,
		calls: make(map[string]int),
	}
}

// AddFault appends a scripted failure to the schedule: the next call to op
// consumes it and fails with kind instead of touching the wrapped backend.
func (f *FaultyBackend) AddFault(op string, kind apperr.Kind) {
	f.schedule = append(f.schedule, FaultSample{Op: op, Kind: kind})
}

// shouldFail consumes a matching scheduled fault for op if one is queued,
// otherwise rolls the random rate.
func (f *FaultyBackend) shouldFail(op string) (apperr.Kind, bool) {
	f.calls[op]++
	for i, s := range f.schedule {
		if s.Op == op {
			f.schedule = append(f.schedule[:i], f.schedule[i+1:]...)
			return s.Kind, true
		}
	}
	if f.rate > 0 && f.rng.Float64() < f.rate {
		return apperr.KindIOError, true
	}
	return apperr.KindUnknown, false
}

func (f *FaultyBackend) fail(op string, kind apperr.Kind) error {
	return apperr.New(kind, "faulty:"+op)
}

func (f *FaultyBackend) Exists() (bool, error) {
	if k, ok := f.shouldFail("Exists"); ok {
		return false, f.fail("Exists", k)
	}
	return f.inner.Exists()
}

func (f *FaultyBackend) Init(c crypto.Crypto, key crypto.Key) error {
	if k, ok := f.shouldFail("Init"); ok {
		return f.fail("Init", k)
	}
	return f.inner.Init(c, key)
}

func (f *FaultyBackend) Open(c crypto.Crypto, key crypto.Key) error {
	if k, ok := f.shouldFail("Open"); ok {
		return f.fail("Open", k)
	}
	return f.inner.Open(c, key)
}

func (f *FaultyBackend) Connect() error {
	if k, ok := f.shouldFail("Connect"); ok {
		return f.fail("Connect", k)
	}
	return f.inner.Connect()
}

func (f *FaultyBackend) Flush() error {
	if k, ok := f.shouldFail("Flush"); ok {
		return f.fail("Flush", k)
	}
	return f.inner.Flush()
}

func (f *FaultyBackend) GetSuperBlock(suffix uint8) ([]byte, error) {
	if k, ok := f.shouldFail("GetSuperBlock"); ok {
		return nil, f.fail("GetSuperBlock", k)
	}
	return f.inner.GetSuperBlock(suffix)
}

func (f *FaultyBackend) PutSuperBlock(data []byte, suffix uint8) error {
	if k, ok := f.shouldFail("PutSuperBlock"); ok {
		return f.fail("PutSuperBlock", k)
	}
	return f.inner.PutSuperBlock(data, suffix)
}

func (f *FaultyBackend) GetWAL(eid types.Eid) ([]byte, error) {
	if k, ok := f.shouldFail("GetWAL"); ok {
		return nil, f.fail("GetWAL", k)
	}
	return f.inner.GetWAL(eid)
}

func (f *FaultyBackend) PutWAL(eid types.Eid, data []byte) error {
	if k, ok := f.shouldFail("PutWAL"); ok {
		return f.fail("PutWAL", k)
	}
	return f.inner.PutWAL(eid, data)
}

func (f *FaultyBackend) DelWAL(eid types.Eid) error {
	if k, ok := f.shouldFail("DelWAL"); ok {
		return f.fail("DelWAL", k)
	}
	return f.inner.DelWAL(eid)
}

func (f *FaultyBackend) GetAddress(eid types.Eid) ([]byte, error) {
	if k, ok := f.shouldFail("GetAddress"); ok {
		return nil, f.fail("GetAddress", k)
	}
	return f.inner.GetAddress(eid)
}

func (f *FaultyBackend) PutAddress(eid types.Eid, data []byte) error {
	if k, ok := f.shouldFail("PutAddress"); ok {
		return f.fail("PutAddress", k)
	}
	return f.inner.PutAddress(eid, data)
}

func (f *FaultyBackend) DelAddress(eid types.Eid) error {
	if k, ok := f.shouldFail("DelAddress"); ok {
		return f.fail("DelAddress", k)
	}
	return f.inner.DelAddress(eid)
}

func (f *FaultyBackend) GetBlocks(dst []byte, span types.Span) error {
	if k, ok := f.shouldFail("GetBlocks"); ok {
		return f.fail("GetBlocks", k)
	}
	return f.inner.GetBlocks(dst, span)
}

func (f *FaultyBackend) PutBlocks(span types.Span, data []byte) error {
	if k, ok := f.shouldFail("PutBlocks"); ok {
		return f.fail("PutBlocks", k)
	}
	return f.inner.PutBlocks(span, data)
}

func (f *FaultyBackend) DelBlocks(span types.Span) error {
	if k, ok := f.shouldFail("DelBlocks"); ok {
		return f.fail("DelBlocks", k)
	}
	return f.inner.DelBlocks(span)
}
