// Package secret seals short credentials stored in the database.
//
// Values are sealed with XChaCha20-Poly1305 and stored as "v1:" followed by
// base64(nonce || ciphertext). Columns tagged `gorm:"serializer:sealed"` are
// sealed on write and opened on read.
package secret

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
	"gorm.io/gorm/schema"
)

const prefix = "v1:"

var ErrNoKey = errors.New("secret: encryption key not configured")

var (
	mu   sync.RWMutex
	aead cipher.AEAD
)

func init() {
	schema.RegisterSerializer("sealed", Serializer{})
}

// SetKey installs the 32-byte key used by Seal and Open
func SetKey(key []byte) error {
	a, err := chacha20poly1305.NewX(key)
	if err != nil {
		return fmt.Errorf("secret: %w", err)
	}
	mu.Lock()
	aead = a
	mu.Unlock()
	return nil
}

// DeriveKey stretches arbitrary key material into a 32-byte key
func DeriveKey(material string) []byte {
	key := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, []byte(material), nil, []byte("navigator imap credentials"))
	if _, err := io.ReadFull(r, key); err != nil {
		panic(err)
	}
	return key
}

// ParseKey accepts a base64 encoded 32-byte key. Anything else is treated as
// key material and derived.
func ParseKey(s string) []byte {
	if raw, err := base64.StdEncoding.DecodeString(s); err == nil && len(raw) == chacha20poly1305.KeySize {
		return raw
	}
	return DeriveKey(s)
}

func current() cipher.AEAD {
	mu.RLock()
	defer mu.RUnlock()
	return aead
}

// Seal encrypts plaintext. The empty string stays empty.
func Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	a := current()
	if a == nil {
		return "", ErrNoKey
	}
	nonce := make([]byte, a.NonceSize(), a.NonceSize()+len(plaintext)+a.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secret: %w", err)
	}
	sealed := a.Seal(nonce, nonce, []byte(plaintext), nil)
	return prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed value. Values without the prefix were written
// before sealing was enabled and are returned unchanged.
func Open(value string) (string, error) {
	if !strings.HasPrefix(value, prefix) {
		return value, nil
	}
	a := current()
	if a == nil {
		return "", ErrNoKey
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, prefix))
	if err != nil {
		return "", fmt.Errorf("secret: %w", err)
	}
	if len(raw) < a.NonceSize() {
		return "", errors.New("secret: sealed value too short")
	}
	plain, err := a.Open(nil, raw[:a.NonceSize()], raw[a.NonceSize():], nil)
	if err != nil {
		return "", fmt.Errorf("secret: %w", err)
	}
	return string(plain), nil
}

// Serializer is the gorm serializer registered as "sealed"
type Serializer struct{}

func (Serializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue interface{}) error {
	var stored string
	switch v := dbValue.(type) {
	case nil:
	case []byte:
		stored = string(v)
	case string:
		stored = v
	default:
		return fmt.Errorf("secret: unsupported column value %T", dbValue)
	}
	plain, err := Open(stored)
	if err != nil {
		return err
	}
	return field.Set(ctx, dst, plain)
}

func (Serializer) Value(ctx context.Context, field *schema.Field, dst reflect.Value, fieldValue interface{}) (interface{}, error) {
	s, ok := fieldValue.(string)
	if !ok {
		return nil, fmt.Errorf("secret: unsupported field type %T", fieldValue)
	}
	return Seal(s)
}
