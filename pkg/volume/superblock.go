package volume

import (
	"encoding/binary"
	"time"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"github.com/cuemby/cryptofs/pkg/backend"
	"github.com/cuemby/cryptofs/pkg/crypto"
	"github.com/cuemby/cryptofs/pkg/logx"
	"github.com/cuemby/cryptofs/pkg/types"
)

// Arm suffixes passed to Backend.{Get,Put}SuperBlock. The arm written to
// is alternated on every Save, so a crash mid-write always leaves the
// other arm intact.
const (
	leftArm  uint8 = 0
	rightArm uint8 = 1
)

// headerLen is salt || cost || cipher.
const headerLen = crypto.SaltSize + 1 + 1

// bodyLen is seq(8) || volume id(32) || ctime(8) || master key(32).
const bodyLen = 8 + types.EidSize + 8 + crypto.KeySize

// SuperBlock is the repo's root of trust: the volume id, the encryption
// configuration, the master key, and an opaque payload (used by upper
// layers to persist their own bootstrap state, e.g. the allocator
// watermark and the root directory's entity id).
type SuperBlock struct {
	seq      uint64
	VolumeID types.Eid
	Key      crypto.Key
	Crypto   crypto.Crypto
	Ctime    time.Time
	Payload  []byte
}

// New creates a fresh super block, seq 0, ready for its first Save.
func New(volumeID types.Eid, key crypto.Key, cr crypto.Crypto, payload []byte) *SuperBlock {
	return &SuperBlock{
		VolumeID: volumeID,
		Key:      key,
		Crypto:   cr,
		Ctime:    time.Now(),
		Payload:  payload,
	}
}

// Exists reports whether a repo has ever been initialized in b.
func Exists(b backend.Backend) (bool, error) {
	return b.Exists()
}

// Save encrypts and writes the super block to whichever arm is due next,
// then advances the sequence number.
func (s *SuperBlock) Save(pwd string, b backend.Backend) error {
	salt := crypto.NewSalt()
	vkey := s.Crypto.HashPwd(pwd, salt)

	body := make([]byte, 0, bodyLen)
	seqBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(seqBuf, s.seq)
	body = append(body, seqBuf...)
	body = append(body, s.VolumeID.Bytes()...)
	ctimeBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(ctimeBuf, uint64(s.Ctime.Unix()))
	body = append(body, ctimeBuf...)
	body = append(body, s.Key.Slice()...)

	encBody, err := s.Crypto.EncryptWithAD(body, vkey, []byte{byte(bodyLen)})
	if err != nil {
		return apperr.Wrap(apperr.KindEncrypt, "superblock.Save.body", err)
	}

	var encPayload []byte
	if len(s.Payload) > 0 {
		encPayload, err = s.Crypto.Encrypt(s.Payload, vkey)
		if err != nil {
			return apperr.Wrap(apperr.KindEncrypt, "superblock.Save.payload", err)
		}
	}

	buf := make([]byte, 0, headerLen+len(encBody)+len(encPayload))
	buf = append(buf, salt[:]...)
	buf = append(buf, byte(s.Crypto.Cost))
	buf = append(buf, byte(s.Crypto.Cipher))
	buf = append(buf, encBody...)
	buf = append(buf, encPayload...)

	arm := leftArm
	if s.seq%2 != 0 {
		arm = rightArm
	}
	if err := b.PutSuperBlock(buf, arm); err != nil {
		return err
	}
	s.seq++
	return nil
}

// loadArm reads and decrypts one arm. A missing arm returns apperr's
// NotFound kind; a corrupted or tampered arm returns KindInvalidSuperBlk
// or KindDecrypt so Load can tell "absent" from "damaged".
func loadArm(arm uint8, pwd string, b backend.Backend) (*SuperBlock, error) {
	buf, err := b.GetSuperBlock(arm)
	if err != nil {
		return nil, err
	}
	if len(buf) < headerLen {
		return nil, apperr.New(apperr.KindInvalidSuperBlk, "superblock.loadArm: short header")
	}

	pos := 0
	salt := crypto.SaltFromSlice(buf[pos : pos+crypto.SaltSize])
	pos += crypto.SaltSize
	cost, err := crypto.CostFromByte(buf[pos])
	if err != nil {
		return nil, err
	}
	pos++
	cipher, err := crypto.CipherFromByte(buf[pos])
	if err != nil {
		return nil, err
	}
	pos++

	cr := crypto.New(cost, cipher)
	encBodyLen := cr.EncryptedLen(bodyLen)
	if len(buf)-pos < encBodyLen {
		return nil, apperr.New(apperr.KindInvalidSuperBlk, "superblock.loadArm: short body")
	}
	bodyBuf := buf[pos : pos+encBodyLen]
	pos += encBodyLen
	payloadBuf := buf[pos:]

	vkey := cr.HashPwd(pwd, salt)
	body, err := cr.DecryptWithAD(bodyBuf, vkey, []byte{byte(bodyLen)})
	if err != nil {
		return nil, err
	}

	pos = 0
	seq := binary.LittleEndian.Uint64(body[pos : pos+8])
	pos += 8
	volumeID := types.EidFromSlice(body[pos : pos+types.EidSize])
	pos += types.EidSize
	ctime := time.Unix(int64(binary.LittleEndian.Uint64(body[pos:pos+8])), 0)
	pos += 8
	key := crypto.KeyFromSlice(body[pos : pos+crypto.KeySize])

	var payload []byte
	if len(payloadBuf) > 0 {
		payload, err = cr.Decrypt(payloadBuf, vkey)
		if err != nil {
			return nil, err
		}
	}

	// s.seq is the sequence the next Save writes, so a loaded block's
	// next Save goes to the other arm, one past the stored sequence.
	return &SuperBlock{
		seq:      seq + 1,
		VolumeID: volumeID,
		Key:      key,
		Crypto:   cr,
		Ctime:    ctime,
		Payload:  payload,
	}, nil
}

// Load reads both arms and returns the one with the higher sequence
// number. A corrupted arm is logged and ignored in favor of its sibling;
// only when both arms fail does Load return an error.
func Load(pwd string, b backend.Backend) (*SuperBlock, error) {
	log := logx.WithComponent("volume.superblock")

	left, leftErr := loadArm(leftArm, pwd, b)
	right, rightErr := loadArm(rightArm, pwd, b)

	switch {
	case leftErr == nil && rightErr == nil:
		if left.seq > right.seq {
			return left, nil
		}
		if right.seq > left.seq {
			return right, nil
		}
		return left, nil // identical seq: either arm is authoritative
	case leftErr == nil:
		if !apperr.Is(rightErr, apperr.KindNotFound) {
			log.Warn().Err(rightErr).Msg("super block right arm unreadable, using left")
		}
		return left, nil
	case rightErr == nil:
		if !apperr.Is(leftErr, apperr.KindNotFound) {
			log.Warn().Err(leftErr).Msg("super block left arm unreadable, using right")
		}
		return right, nil
	default:
		return nil, apperr.New(apperr.KindInvalidSuperBlk, "superblock.Load: both arms unreadable")
	}
}
