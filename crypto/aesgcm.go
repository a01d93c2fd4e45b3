/*
@Description: AES-GCM BlockCrypt with PBKDF2 key stretching
@Language: Go 1.23.4
*/

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	aesKeySize   = 32 // AES-256
	aesSaltSize  = 16
	aesNonceSize = 12
	pbkdf2Iters  = 4096
)

// aesGCMCrypt implements BlockCrypt with AES-256-GCM. The configured key is
// a passphrase, not raw key material: every Encrypt draws a fresh random
// salt and stretches the passphrase with PBKDF2-HMAC-SHA256 over it, and
// every Decrypt re-derives the key from the salt carried in the packet, so
// the derivation runs once per packet rather than once per instance.
// Wire format: salt(16) | nonce(12) | ciphertext+tag.
type aesGCMCrypt struct {
	passphrase []byte
}

// NewAESGCMCrypt builds a BlockCrypt from an arbitrary-length passphrase.
func NewAESGCMCrypt(passphrase []byte) (BlockCrypt, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("crypto: aes-gcm passphrase must not be empty")
	}
	p := make([]byte, len(passphrase))
	copy(p, passphrase)
	return &aesGCMCrypt{passphrase: p}, nil
}

func (c *aesGCMCrypt) gcm(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(c.passphrase, salt, pbkdf2Iters, aesKeySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return cipher.NewGCM(block)
}

func (c *aesGCMCrypt) Encrypt(plaintext []byte) ([]byte, error) {
	salt := make([]byte, aesSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.WithStack(err)
	}
	gcm, err := c.gcm(salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aesNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.WithStack(err)
	}

	out := make([]byte, 0, aesSaltSize+aesNonceSize+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, plaintext, nil)
	return out, nil
}

func (c *aesGCMCrypt) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < aesSaltSize+aesNonceSize {
		return nil, errors.New("crypto: aes-gcm packet too short")
	}
	salt := ciphertext[:aesSaltSize]
	nonce := ciphertext[aesSaltSize : aesSaltSize+aesNonceSize]
	body := ciphertext[aesSaltSize+aesNonceSize:]

	gcm, err := c.gcm(salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, errors.New("crypto: aes-gcm authentication failed")
	}
	return plaintext, nil
}

// hmacEqual is a constant-time byte comparison shared by every BlockCrypt
// implementation that checks an authentication tag itself instead of
// delegating to cipher.AEAD.Open.
func hmacEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
