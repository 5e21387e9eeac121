package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// Seal encrypts a string with NaCl secretbox and returns nonce+box as hex
func Seal(data string, key *[32]byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("input data is empty")
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Nonce is prepended to the box
	box := secretbox.Seal(nonce[:], []byte(data), &nonce, key)
	return hex.EncodeToString(box), nil
}

// Open decrypts a hex string produced by Seal
func Open(sealed string, key *[32]byte) (string, error) {
	if len(sealed) == 0 {
		return "", fmt.Errorf("sealed data is empty")
	}

	raw, err := hex.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex: %w", err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", fmt.Errorf("sealed data too short: %d bytes", len(raw))
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, key)
	if !ok {
		return "", fmt.Errorf("failed to open sealed data: authentication failed")
	}
	return string(plain), nil
}
