// Package id generates compact, URL-safe unique identifiers.
//
// Identifiers are UUIDv4 bytes encoded as lowercase unpadded base32,
// which keeps them 26 characters long and safe for file names, database
// keys, and log lines alike.
package id

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a 26-character lowercase base32 identifier backed by
// 16 random bytes with UUIDv4 version and variant bits set.
func NewID() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	raw[6] = (raw[6] & 0x0F) | 0x40
	raw[8] = (raw[8] & 0x3F) | 0x80
	return strings.ToLower(encoding.EncodeToString(raw[:])), nil
}
