package database

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/oauth2"
)

const ebayTokenSetting = "ebay_oauth_token"

// ParseEncryptionKey decodes a base64 key; it must be 32 bytes for AES-256
func ParseEncryptionKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, errors.New("encryption key not set")
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key from base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid encryption key length: got %d bytes, expected 32", len(key))
	}
	return key, nil
}

// EncryptSecret seals plaintext with AES-256-GCM. The result is
// [nonce][ciphertext+tag].
func EncryptSecret(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptSecret opens data produced by EncryptSecret
func DecryptSecret(encrypted []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(encrypted) < nonceSize {
		return nil, errors.New("encrypted data too short")
	}
	plaintext, err := gcm.Open(nil, encrypted[:nonceSize], encrypted[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid key length: got %d bytes, expected 32", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// TokenVault keeps the eBay OAuth token encrypted in the settings table
type TokenVault struct {
	db  *DB
	key []byte
}

// NewTokenVault returns a vault sealing tokens with key
func NewTokenVault(db *DB, key []byte) (*TokenVault, error) {
	if _, err := newGCM(key); err != nil {
		return nil, err
	}
	return &TokenVault{db: db, key: key}, nil
}

// SaveToken encrypts and stores the token
func (v *TokenVault) SaveToken(ctx context.Context, token *oauth2.Token) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	sealed, err := EncryptSecret(raw, v.key)
	if err != nil {
		return err
	}
	return v.db.PutSetting(ctx, ebayTokenSetting, base64.StdEncoding.EncodeToString(sealed), "encrypted eBay OAuth token")
}

// LoadToken returns the stored token, nil when none has been saved
func (v *TokenVault) LoadToken(ctx context.Context) (*oauth2.Token, error) {
	setting, err := v.db.GetSetting(ctx, ebayTokenSetting)
	if err != nil || setting == nil {
		return nil, err
	}
	sealed, err := base64.StdEncoding.DecodeString(setting.Value)
	if err != nil {
		return nil, fmt.Errorf("decode stored token: %w", err)
	}
	raw, err := DecryptSecret(sealed, v.key)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &token, nil
}

// ClearToken forgets the stored token
func (v *TokenVault) ClearToken(ctx context.Context) error {
	return v.db.DeleteSetting(ctx, ebayTokenSetting)
}
