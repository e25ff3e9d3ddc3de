package cookies

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const saltSize = 16

// argon2id parameters
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// PassphraseEncrypter derives a key from a passphrase with argon2id and
// seals data with XChaCha20-Poly1305. Output is base64 text of
// salt, nonce and ciphertext.
type PassphraseEncrypter struct {
	passphrase []byte
}

// NewPassphraseEncrypter creates an encrypter. The passphrase must not be
// empty.
func NewPassphraseEncrypter(passphrase string) (*PassphraseEncrypter, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase must not be empty")
	}
	return &PassphraseEncrypter{passphrase: []byte(passphrase)}, nil
}

func (e *PassphraseEncrypter) key(salt []byte) []byte {
	return argon2.IDKey(e.passphrase, salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}

// Encrypt seals plaintext.
func (e *PassphraseEncrypter) Encrypt(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(e.key(salt))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	sealed := append(append(salt, nonce...), aead.Seal(nil, nonce, plaintext, nil)...)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sealed)))
	base64.StdEncoding.Encode(out, sealed)
	return out, nil
}

// Decrypt opens data produced by Encrypt.
func (e *PassphraseEncrypter) Decrypt(ciphertext []byte) ([]byte, error) {
	sealed := make([]byte, base64.StdEncoding.DecodedLen(len(ciphertext)))
	n, err := base64.StdEncoding.Decode(sealed, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("invalid encrypted cookie data: %w", err)
	}
	sealed = sealed[:n]

	if len(sealed) < saltSize+chacha20poly1305.NonceSizeX {
		return nil, errors.New("encrypted cookie data is truncated")
	}
	salt := sealed[:saltSize]
	nonce := sealed[saltSize : saltSize+chacha20poly1305.NonceSizeX]

	aead, err := chacha20poly1305.NewX(e.key(salt))
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, sealed[saltSize+chacha20poly1305.NonceSizeX:], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted cookie data: %w", err)
	}
	return plaintext, nil
}
