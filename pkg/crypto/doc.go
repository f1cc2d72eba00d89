/*
Package crypto implements the symmetric primitives and key management
cryptofs layers on top of every persisted object: password-based key
derivation, per-subsystem subkey derivation, and authenticated encryption.

# Per-object key separation

Every persisted object is encrypted with a key derived from the repo's
master key via HKDF-style subkey derivation keyed on a per-subsystem id
(super-block body, emap nodes, addresses, block frames each get their own
subkey id). Crypto.DeriveSubkey implements that derivation; callers never
encrypt with the master key directly.

# Cipher and cost

Cipher selects the AEAD: Xchacha (XChaCha20-Poly1305, 24-byte nonce, the
default) or Aes (AES-256-GCM, 12-byte nonce). Cost selects the Argon2id
work factor used to turn a user password into the volume key, with three
presets (Interactive/Moderate/Sensitive) mirroring libsodium's pwhash
profiles — cheap enough for interactive unlocks, expensive enough to
deliberately slow an offline attacker for Sensitive.

# On-disk framing

HashPwd never stores the password; it stores only a random Salt alongside
the cost/cipher bytes (see pkg/volume's super-block layout), and the
caller re-derives the same key from the same password + salt on open.
EncryptWithAD/DecryptWithAD prepend a random nonce to the ciphertext and
bind an optional associated-data tag (used by the super-block body to bind
the encrypted body to its declared length), so the on-disk layout
(salt | cost | cipher | enc_body | enc_payload) round-trips exactly.
*/
package crypto
