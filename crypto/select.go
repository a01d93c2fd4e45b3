/*
@Description: cipher-name to BlockCrypt lookup, with a logged fallback to AES-GCM
@Language: Go 1.23.4
*/

package crypto

import "log"

type cryptMethod struct {
	build func(key []byte) (BlockCrypt, error)
}

// cryptMethods maps a human-readable cipher name to its constructor. Using
// a table instead of a switch keeps adding a new cipher to a one-line entry.
var cryptMethods = map[string]cryptMethod{
	"aes-gcm": {func(key []byte) (BlockCrypt, error) { return NewAESGCMCrypt(key) }},
	"sm4-gcm": {func(key []byte) (BlockCrypt, error) { return NewSM4GCMCrypt(key) }},
}

// Select translates a cipher name into a concrete BlockCrypt. Unknown names
// and construction failures both fall back to AES-GCM, logged once at
// session-construction time — never per packet, since this call happens
// once per session, not once per datagram.
func Select(method string, key []byte) (BlockCrypt, string) {
	if m, ok := cryptMethods[method]; ok {
		block, err := m.build(key)
		if err == nil {
			return block, method
		}
		log.Printf("crypto: failed to construct %s cipher: %v, falling back to aes-gcm", method, err)
	} else {
		log.Printf("crypto: unknown cipher %q, falling back to aes-gcm", method)
	}
	block, err := NewAESGCMCrypt(key)
	if err != nil {
		log.Printf("crypto: failed to construct fallback aes-gcm cipher: %v", err)
		return nil, ""
	}
	return block, "aes-gcm"
}
