package volume

import (
	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/backend"
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/types"
)

// splitPlaintext breaks data into chunks of at most types.FrameSize bytes,
// so each chunk's AEAD seal/open call has bounded blast radius: damage to
// one frame's ciphertext never affects its siblings.
func splitPlaintext(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}
	var frames [][]byte
	for off := 0; off < len(data); off += types.FrameSize {
		end := off + types.FrameSize
		if end > len(data) {
			end = len(data)
		}
		frames = append(frames, data[off:end])
	}
	return frames
}

// WriteData encrypts plaintext frame-by-frame, allocates one ciphertext
// span per frame via alloc, and writes them to b. Spans are kept
// one-per-frame deliberately (never merged, even when contiguous) so
// ReadData can recover exact frame boundaries from the address alone.
// The returned Addr's Len is the plaintext length, not the ciphertext
// length stored on disk.
func WriteData(b backend.Backend, alloc *Allocator, cr crypto.Crypto, key crypto.Key, plaintext []byte) (types.Addr, error) {
	var addr types.Addr
	for _, frame := range splitPlaintext(plaintext) {
		ct, err := cr.Encrypt(frame, key)
		if err != nil {
			return types.Addr{}, apperr.Wrap(apperr.KindEncrypt, "volume.WriteData", err)
		}

		blkCnt := (len(ct) + types.BlkSize - 1) / types.BlkSize
		begin := alloc.AllocBlocks(blkCnt)
		span := types.NewSpan(begin, begin+uint64(blkCnt), uint64(addr.Len))

		buf := make([]byte, span.BlockLen())
		copy(buf, ct)
		if err := b.PutBlocks(span, buf); err != nil {
			return types.Addr{}, err
		}

		addr.List = append(addr.List, span)
		addr.Len += len(frame)
	}
	return addr, nil
}

// ReadData reads and decrypts the ciphertext frames covering addr, one
// span at a time, and returns the concatenated plaintext.
func ReadData(b backend.Backend, cr crypto.Crypto, key crypto.Key, addr types.Addr) ([]byte, error) {
	out := make([]byte, 0, addr.Len)
	remaining := addr.Len

	for _, span := range addr.List {
		frameCap := types.FrameSize
		if remaining < frameCap {
			frameCap = remaining
		}
		encLen := cr.EncryptedLen(frameCap)

		ctPadded := make([]byte, span.BlockLen())
		if err := b.GetBlocks(ctPadded, span); err != nil {
			return nil, err
		}
		if encLen > len(ctPadded) {
			return nil, apperr.New(apperr.KindDecrypt, "volume.ReadData: frame shorter than ciphertext")
		}

		pt, err := cr.Decrypt(ctPadded[:encLen], key)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindDecrypt, "volume.ReadData", err)
		}
		out = append(out, pt...)
		remaining -= len(pt)
	}
	return out, nil
}

// DeleteData releases the backend storage behind addr. The allocator's
// watermark itself is never rewound: freed block indices are simply never
// reused for this volume's lifetime.
func DeleteData(b backend.Backend, addr types.Addr) error {
	for _, span := range addr.List {
		if err := b.DelBlocks(span); err != nil {
			return err
		}
	}
	return nil
}
