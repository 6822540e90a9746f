// Package cipher implements the subtitle payload transform used by dialogue
// resources.
package cipher

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/xtea"
)

var (
	ErrBlockSize   = errors.New("payload is not a multiple of block size")
	ErrInvalidUTF8 = errors.New("decrypted payload is not valid UTF-8")
)

var key = [4]uint32{0x53527737, 0x7506499E, 0xBD39AEE3, 0xA59E7268}

var block = func() *xtea.Cipher {
	// xtea expects key words in big-endian byte order
	var raw [16]byte
	for i, k := range key {
		binary.BigEndian.PutUint32(raw[i*4:], k)
	}
	c, err := xtea.NewCipher(raw[:])
	if err != nil {
		// key size is constant
		panic(err)
	}
	return c
}()

// Payload words are little-endian on disk while xtea reads big-endian words.
func swapWords(b []byte) {
	for i := 0; i+4 <= len(b); i += 4 {
		b[i], b[i+1], b[i+2], b[i+3] = b[i+3], b[i+2], b[i+1], b[i]
	}
}

// Encrypt zero pads text to block size and enciphers it.
func Encrypt(text string) []byte {
	n := len(text)
	if rem := n % xtea.BlockSize; rem != 0 {
		n += xtea.BlockSize - rem
	}
	buf := make([]byte, n)
	copy(buf, text)

	swapWords(buf)
	for i := 0; i < len(buf); i += xtea.BlockSize {
		block.Encrypt(buf[i:i+xtea.BlockSize], buf[i:i+xtea.BlockSize])
	}
	swapWords(buf)
	return buf
}

// Decrypt deciphers payload and returns text with NUL padding removed.
func Decrypt(data []byte) (string, error) {
	if len(data)%xtea.BlockSize != 0 {
		return "", fmt.Errorf("%d bytes: %w", len(data), ErrBlockSize)
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	swapWords(buf)
	for i := 0; i < len(buf); i += xtea.BlockSize {
		block.Decrypt(buf[i:i+xtea.BlockSize], buf[i:i+xtea.BlockSize])
	}
	swapWords(buf)

	if !utf8.Valid(buf) {
		return "", ErrInvalidUTF8
	}
	return strings.Trim(string(buf), "\x00"), nil
}
