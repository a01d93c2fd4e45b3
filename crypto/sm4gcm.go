/*
@Description: SM4-GCM BlockCrypt, selectable alongside AES-GCM
@Language: Go 1.23.4
*/

package crypto

import (
	"crypto/rand"

	"github.com/pkg/errors"
	"github.com/tjfoc/gmsm/sm4"
)

const sm4NonceSize = 12
const sm4TagSize = 16

// sm4GCMCrypt implements BlockCrypt with SM4-GCM, for deployments that
// require a national cryptographic algorithm instead of AES. Wire format:
// nonce(12) | ciphertext | tag(16).
type sm4GCMCrypt struct {
	key []byte
}

// NewSM4GCMCrypt builds a BlockCrypt from a 16-byte SM4 key.
func NewSM4GCMCrypt(key []byte) (BlockCrypt, error) {
	if len(key) != sm4.BlockSize {
		return nil, errors.Errorf("crypto: sm4 key must be %d bytes, got %d", sm4.BlockSize, len(key))
	}
	k := make([]byte, sm4.BlockSize)
	copy(k, key)
	return &sm4GCMCrypt{key: k}, nil
}

func (c *sm4GCMCrypt) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, sm4NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.WithStack(err)
	}
	ciphertext, tag := sm4.GCMEncrypt(c.key, nonce, plaintext, nil)

	out := make([]byte, 0, sm4NonceSize+len(ciphertext)+sm4TagSize)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	out = append(out, tag...)
	return out, nil
}

func (c *sm4GCMCrypt) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < sm4NonceSize+sm4TagSize {
		return nil, errors.New("crypto: sm4 packet too short")
	}
	nonce := ciphertext[:sm4NonceSize]
	tag := ciphertext[len(ciphertext)-sm4TagSize:]
	body := ciphertext[sm4NonceSize : len(ciphertext)-sm4TagSize]

	plaintext, computedTag := sm4.GCMDecrypt(c.key, nonce, body, nil)
	if !hmacEqual(tag, computedTag) {
		return nil, errors.New("crypto: sm4 authentication failed")
	}
	return plaintext, nil
}
