package repo

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/backend"
	"github.com/cuemby/cryptofs/pkg/fs"
	"github.com/cuemby/cryptofs/pkg/txn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fuzzAction names one step a fuzz run can take against the repo and its
// control-group model.
type fuzzAction int

const (
	actionWrite fuzzAction = iota
	actionRead
	actionDelete
	actionRename
	numFuzzActions
)

// TestFuzzFileLifecycleAgainstControlGroup drives a long sequence of
// random file operations through a repo, comparing its visible state
// after every step against a plain Go map standing in for what should
// have survived. Roughly a fifth of the transactions run with a
// scripted backend fault armed partway through the commit, so the same
// pass also exercises WithTxn's abort path: a failed transaction must
// leave both the repo and the control group exactly where they were
// before the step ran.
func TestFuzzFileLifecycleAgainstControlGroup(t *testing.T) {
	for seed := int64(0); seed < 12; seed++ {
		seed := seed
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			t.Parallel()
			runFileLifecycleFuzz(t, seed)
		})
	}
}

func runFileLifecycleFuzz(t *testing.T, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	fb := backend.NewFaultyBackend(backend.NewMemBackend(), seed, 0)

	u, err := ParseURI(fmt.Sprintf("mem://fuzz-%d", seed))
	require.NoError(t, err)
	r, err := create(fb, u, "hunter2", defaultOptions())
	require.NoError(t, err)

	ctlGrp := map[string]string{}
	var paths []string

	faultTargets := []string{"PutSuperBlock", "PutAddress", "PutBlocks", "PutWAL"}

	for i := 0; i < 150; i++ {
		if rng.Intn(5) == 0 {
			fb.AddFault(faultTargets[rng.Intn(len(faultTargets))], apperr.KindIOError)
		}

		switch fuzzAction(rng.Intn(int(numFuzzActions))) {
		case actionWrite:
			path := fmt.Sprintf("/f%d", rng.Intn(20))
			content := fmt.Sprintf("seed=%d step=%d", seed, i)
			err := r.WithTxn(func(tx *txn.Txn, ov *fs.Overlay) error {
				f, err := ov.OpenFile(tx, path, fs.OpenOptions{Write: true, Create: true, Truncate: true})
				if err != nil {
					return err
				}
				f.Write([]byte(content))
				_, err = f.Finish(tx)
				return err
			})
			if err == nil {
				if _, existed := ctlGrp[path]; !existed {
					paths = append(paths, path)
				}
				ctlGrp[path] = content
			}

		case actionRead:
			if len(paths) == 0 {
				continue
			}
			path := paths[rng.Intn(len(paths))]
			want, shouldExist := ctlGrp[path]
			got, err := readPath(r, path)
			if shouldExist {
				require.NoError(t, err, "seed=%d step=%d path=%s", seed, i, path)
				assert.Equal(t, want, got, "seed=%d step=%d path=%s", seed, i, path)
			} else {
				assert.True(t, apperr.Is(err, apperr.KindNotFound), "seed=%d step=%d path=%s err=%v", seed, i, path, err)
			}

		case actionDelete:
			if len(paths) == 0 {
				continue
			}
			path := paths[rng.Intn(len(paths))]
			_, existed := ctlGrp[path]
			err := r.WithTxn(func(tx *txn.Txn, ov *fs.Overlay) error {
				return ov.RemoveFile(tx, path)
			})
			if existed && err == nil {
				delete(ctlGrp, path)
			}

		case actionRename:
			if len(paths) == 0 {
				continue
			}
			from := paths[rng.Intn(len(paths))]
			to := fmt.Sprintf("/f%d", rng.Intn(20))
			_, existed := ctlGrp[from]
			err := r.WithTxn(func(tx *txn.Txn, ov *fs.Overlay) error {
				return ov.Rename(tx, from, to)
			})
			if existed && err == nil && from != to {
				ctlGrp[to] = ctlGrp[from]
				delete(ctlGrp, from)
				paths = append(paths, to)
			}
		}

		assertControlGroupMatchesRepo(t, r, ctlGrp, paths, seed, i)
	}
}

// readPath reads through the overlay without a transaction: a commit
// made only to read would consume an armed fault and fail the check
// even though no state changed.
func readPath(r *Repo, path string) (string, error) {
	f, err := r.FS().OpenFile(nil, path, fs.OpenOptions{})
	if err != nil {
		return "", err
	}
	got, err := f.Read()
	return string(got), err
}

func assertControlGroupMatchesRepo(t *testing.T, r *Repo, ctlGrp map[string]string, paths []string, seed int64, step int) {
	t.Helper()
	seen := map[string]bool{}
	for _, path := range paths {
		if seen[path] {
			continue
		}
		seen[path] = true

		want, shouldExist := ctlGrp[path]
		got, err := readPath(r, path)
		if shouldExist {
			require.NoError(t, err, "seed=%d step=%d path=%s should exist", seed, step, path)
			assert.Equal(t, want, got, "seed=%d step=%d path=%s content mismatch", seed, step, path)
		} else {
			assert.True(t, apperr.Is(err, apperr.KindNotFound), "seed=%d step=%d path=%s should be gone, got err=%v", seed, step, path, err)
		}
	}
}
