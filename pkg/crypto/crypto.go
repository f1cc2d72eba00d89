package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/cuemby/cryptofs/pkg/apperr"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the length in bytes of a master or derived key.
const KeySize = 32

// SaltSize is the length in bytes of a password salt.
const SaltSize = 16

// Key is a symmetric key.
type Key [KeySize]byte

// NewKey generates a fresh random key.
func NewKey() Key {
	var k Key
	if _, err := rand.Read(k[:]); err != nil {
		panic(fmt.Sprintf("crypto: failed to read random bytes: %v", err))
	}
	return k
}

// KeyFromSlice copies b into a Key. b must be exactly KeySize bytes.
func KeyFromSlice(b []byte) Key {
	var k Key
	copy(k[:], b)
	return k
}

func (k Key) Slice() []byte { return k[:] }

// Salt is random seasoning mixed into password hashing.
type Salt [SaltSize]byte

// NewSalt generates a fresh random salt.
func NewSalt() Salt {
	var s Salt
	if _, err := rand.Read(s[:]); err != nil {
		panic(fmt.Sprintf("crypto: failed to read random bytes: %v", err))
	}
	return s
}

func SaltFromSlice(b []byte) Salt {
	var s Salt
	copy(s[:], b)
	return s
}

// Hash is a content hash (SHA-256 of plaintext), used to name a chunk's
// content entity.
type Hash [32]byte

func HashBytes(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Cipher selects the AEAD used for all encrypted objects.
type Cipher uint8

const (
	Xchacha Cipher = iota
	Aes
)

func (c Cipher) String() string {
	if c == Aes {
		return "aes"
	}
	return "xchacha"
}

func CipherFromByte(b byte) (Cipher, error) {
	switch b {
	case byte(Xchacha):
		return Xchacha, nil
	case byte(Aes):
		return Aes, nil
	default:
		return 0, apperr.New(apperr.KindInvalidSuperBlk, "cipher byte out of range")
	}
}

// Cost selects the Argon2id work factor for password-based key
// derivation. Presets mirror libsodium's pwhash profiles.
type Cost uint8

const (
	Interactive Cost = iota
	Moderate
	Sensitive
)

func (c Cost) String() string {
	switch c {
	case Moderate:
		return "moderate"
	case Sensitive:
		return "sensitive"
	default:
		return "interactive"
	}
}

func CostFromByte(b byte) (Cost, error) {
	switch b {
	case byte(Interactive):
		return Interactive, nil
	case byte(Moderate):
		return Moderate, nil
	case byte(Sensitive):
		return Sensitive, nil
	default:
		return 0, apperr.New(apperr.KindInvalidSuperBlk, "cost byte out of range")
	}
}

// argon2Params returns the (time, memoryKiB, threads) triple for a cost
// preset. Sensitive is deliberately slow: password hashing is the one
// suspension point in the system that's supposed to hurt an attacker, not
// the legitimate caller.
func (c Cost) argon2Params() (time, memoryKiB uint32, threads uint8) {
	switch c {
	case Moderate:
		return 3, 256 * 1024, 4
	case Sensitive:
		return 6, 1024 * 1024, 4
	default: // Interactive
		return 2, 64 * 1024, 2
	}
}

// Crypto is a bound (cipher, cost) pair: the configuration recorded in a
// repo's super-block and used to derive every subkey and perform every
// AEAD operation in that repo.
type Crypto struct {
	Cipher Cipher
	Cost   Cost
}

func New(cost Cost, cipher Cipher) Crypto {
	return Crypto{Cipher: cipher, Cost: cost}
}

// HashPwd derives a volume key from a plaintext password and salt via
// Argon2id. The password itself is never persisted; only salt+cost+cipher
// are, and the same derivation run against the same password recovers the
// same key.
func (c Crypto) HashPwd(pwd string, salt Salt) Key {
	t, m, p := c.Cost.argon2Params()
	out := argon2.IDKey([]byte(pwd), salt[:], t, m, p, KeySize)
	return KeyFromSlice(out)
}

// DeriveSubkey derives a per-subsystem subkey from a master key via HKDF:
// every persisted object type gets its own key, never the master key
// directly.
func (c Crypto) DeriveSubkey(master Key, subsystemID uint64) Key {
	info := make([]byte, 8)
	binary.LittleEndian.PutUint64(info, subsystemID)
	r := hkdf.New(sha256.New, master.Slice(), nil, info)
	out := make([]byte, KeySize)
	if _, err := io.ReadFull(r, out); err != nil {
		panic(fmt.Sprintf("crypto: hkdf derivation failed: %v", err))
	}
	return KeyFromSlice(out)
}

func (c Crypto) aead(key Key) (cipher.AEAD, error) {
	switch c.Cipher {
	case Aes:
		block, err := aes.NewCipher(key.Slice())
		if err != nil {
			return nil, apperr.Wrap(apperr.KindEncrypt, "aes.NewCipher", err)
		}
		return cipher.NewGCM(block)
	default:
		return chacha20poly1305.NewX(key.Slice())
	}
}

// EncryptWithAD encrypts plaintext under key, binding ad as associated
// data, and returns nonce||ciphertext.
func (c Crypto) EncryptWithAD(plaintext []byte, key Key, ad []byte) ([]byte, error) {
	aead, err := c.aead(key)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindEncrypt, "aead init", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, apperr.Wrap(apperr.KindEncrypt, "nonce", err)
	}
	out := aead.Seal(nonce, nonce, plaintext, ad)
	return out, nil
}

// DecryptWithAD reverses EncryptWithAD.
func (c Crypto) DecryptWithAD(data []byte, key Key, ad []byte) ([]byte, error) {
	aead, err := c.aead(key)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDecrypt, "aead init", err)
	}
	if len(data) < aead.NonceSize() {
		return nil, apperr.New(apperr.KindDecrypt, "ciphertext too short")
	}
	nonce, ct := data[:aead.NonceSize()], data[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, ct, ad)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDecrypt, "aead open", err)
	}
	return pt, nil
}

// Encrypt encrypts plaintext with no associated data.
func (c Crypto) Encrypt(plaintext []byte, key Key) ([]byte, error) {
	return c.EncryptWithAD(plaintext, key, nil)
}

// Decrypt reverses Encrypt.
func (c Crypto) Decrypt(data []byte, key Key) ([]byte, error) {
	return c.DecryptWithAD(data, key, nil)
}

// EncryptedLen returns the ciphertext length for a given plaintext length
// under this cipher (nonce + plaintext + tag).
func (c Crypto) EncryptedLen(plainLen int) int {
	switch c.Cipher {
	case Aes:
		return 12 + plainLen + 16
	default:
		return chacha20poly1305.NonceSizeX + plainLen + chacha20poly1305.Overhead
	}
}
