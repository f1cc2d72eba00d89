package backend

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/logx"
	"github.com/cuemby/cryptofs/pkg/types"
	"github.com/google/uuid"
)

// HTTPBackend stores objects in a remote keyed object store reachable over
// plain HTTP PUT/GET/DELETE, addressed as <baseURL>/<kind>/<key>. It
// publishes an update-sequence counter in the "X-Update-Seq" response
// header that LocalCache uses to detect staleness.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
	// updateSeq is the last sequence number observed from the remote, so
	// LocalCache can tell whether its cached copies are still valid.
	updateSeq atomic.Uint64
}

// NewHTTPBackend returns an HTTPBackend talking to baseURL (no trailing
// slash), e.g. "https://store.example.com/repos/myrepo".
func NewHTTPBackend(baseURL string) *HTTPBackend {
	return &HTTPBackend{baseURL: baseURL, client: &http.Client{}}
}

func (h *HTTPBackend) Connect() error { return nil }
func (h *HTTPBackend) Flush() error   { return nil }

func (h *HTTPBackend) Init(_ crypto.Crypto, _ crypto.Key) error { return nil }
func (h *HTTPBackend) Open(_ crypto.Crypto, _ crypto.Key) error { return nil }

func (h *HTTPBackend) Exists() (bool, error) {
	_, err := h.doGet("superblock/0")
	if apperr.Is(err, apperr.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateSeq returns the last remote update-sequence number observed.
func (h *HTTPBackend) UpdateSeq() uint64 { return h.updateSeq.Load() }

func (h *HTTPBackend) GetSuperBlock(suffix uint8) ([]byte, error) {
	return h.doGet(fmt.Sprintf("superblock/%d", suffix))
}

func (h *HTTPBackend) PutSuperBlock(data []byte, suffix uint8) error {
	return h.doPut(fmt.Sprintf("superblock/%d", suffix), data)
}

func (h *HTTPBackend) GetWAL(eid types.Eid) ([]byte, error) {
	return h.doGet("wal/" + eid.String())
}

func (h *HTTPBackend) PutWAL(eid types.Eid, data []byte) error {
	return h.doPut("wal/"+eid.String(), data)
}

func (h *HTTPBackend) DelWAL(eid types.Eid) error {
	return h.doDelete("wal/" + eid.String())
}

func (h *HTTPBackend) GetAddress(eid types.Eid) ([]byte, error) {
	return h.doGet("address/" + eid.String())
}

func (h *HTTPBackend) PutAddress(eid types.Eid, data []byte) error {
	return h.doPut("address/"+eid.String(), data)
}

func (h *HTTPBackend) DelAddress(eid types.Eid) error {
	return h.doDelete("address/" + eid.String())
}

func (h *HTTPBackend) GetBlocks(dst []byte, span types.Span) error {
	want := span.BlockLen()
	if len(dst) != want {
		return apperr.New(apperr.KindIOError, fmt.Sprintf("http.GetBlocks: dst len %d != %d", len(dst), want))
	}
	for i := uint64(0); i < uint64(span.BlockCount()); i++ {
		off := int(i) * types.BlkSize
		v, err := h.doGet(fmt.Sprintf("block/%d", span.Begin+i))
		if apperr.Is(err, apperr.KindNotFound) {
			for j := 0; j < types.BlkSize; j++ {
				dst[off+j] = 0
			}
			continue
		}
		if err != nil {
			return err
		}
		copy(dst[off:off+types.BlkSize], v)
	}
	return nil
}

func (h *HTTPBackend) PutBlocks(span types.Span, data []byte) error {
	want := span.BlockLen()
	if len(data) != want {
		return apperr.New(apperr.KindIOError, fmt.Sprintf("http.PutBlocks: data len %d != %d", len(data), want))
	}
	for i := uint64(0); i < uint64(span.BlockCount()); i++ {
		off := int(i) * types.BlkSize
		if err := h.doPut(fmt.Sprintf("block/%d", span.Begin+i), data[off:off+types.BlkSize]); err != nil {
			return err
		}
	}
	return nil
}

func (h *HTTPBackend) DelBlocks(span types.Span) error {
	for i := uint64(0); i < uint64(span.BlockCount()); i++ {
		if err := h.doDelete(fmt.Sprintf("block/%d", span.Begin+i)); err != nil {
			return err
		}
	}
	return nil
}

func (h *HTTPBackend) newRequest(method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, h.baseURL+"/"+path, body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindRequestError, "http.newRequest", err)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	return req, nil
}

func (h *HTTPBackend) doGet(path string) ([]byte, error) {
	req, err := h.newRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindRequestError, "http.doGet", err)
	}
	defer resp.Body.Close()
	h.observeSeq(resp)

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperr.NotFound("http.doGet:" + path)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.KindHttpStatus, fmt.Sprintf("http.doGet:%s: status %d", path, resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindIOError, "http.doGet.read", err)
	}
	return data, nil
}

func (h *HTTPBackend) doPut(path string, data []byte) error {
	req, err := h.newRequest(http.MethodPut, path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindRequestError, "http.doPut", err)
	}
	defer resp.Body.Close()
	h.observeSeq(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return apperr.New(apperr.KindHttpStatus, fmt.Sprintf("http.doPut:%s: status %d", path, resp.StatusCode))
	}
	return nil
}

func (h *HTTPBackend) doDelete(path string) error {
	req, err := h.newRequest(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindRequestError, "http.doDelete", err)
	}
	defer resp.Body.Close()
	h.observeSeq(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return apperr.New(apperr.KindHttpStatus, fmt.Sprintf("http.doDelete:%s: status %d", path, resp.StatusCode))
	}
	return nil
}

func (h *HTTPBackend) observeSeq(resp *http.Response) {
	raw := resp.Header.Get("X-Update-Seq")
	if raw == "" {
		return
	}
	seq, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		logx.WithComponent("backend.http").Warn().Str("value", raw).Msg("malformed update-seq header")
		return
	}
	h.updateSeq.Store(seq)
}
