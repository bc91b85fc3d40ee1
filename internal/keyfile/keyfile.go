// Package keyfile loads DESFire keys from .hex files on disk: one key per
// file, a single line of hex digits.
package keyfile

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KeyFile is one loaded key and the name of the file it came from.
type KeyFile struct {
	Name string
	Key  []byte
}

// validLengths are the hex-character counts accepted for a key line: 16
// hex chars (8-byte single-DES/legacy), 32 (16-byte AES or 2TDEA), 48
// (24-byte 3TDEA).
var validLengths = map[int]bool{16: true, 32: true, 48: true}

// LoadKeyHexFile reads a single key from a file containing one line of hex
// digits (8, 16, or 24 raw bytes).
func LoadKeyHexFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !validLengths[len(line)] {
			return nil, fmt.Errorf("keyfile: %s: key must be 16, 32, or 48 hex chars, got %d", path, len(line))
		}
		key, err := hex.DecodeString(line)
		if err != nil {
			return nil, fmt.Errorf("keyfile: %s: invalid hex: %w", path, err)
		}
		return key, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("keyfile: %s: empty key file", path)
}

// LoadAllHexKeys loads every .hex file in dir, skipping files that fail to
// parse rather than aborting the whole directory.
func LoadAllHexKeys(dir string) ([]KeyFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var keys []KeyFile
	for _, e := range entries {
		if e.IsDir() || strings.ToLower(filepath.Ext(e.Name())) != ".hex" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		key, err := LoadKeyHexFile(path)
		if err != nil {
			continue
		}
		keys = append(keys, KeyFile{Name: e.Name(), Key: key})
	}
	if len(keys) == 0 {
		return nil, errors.New("keyfile: no valid .hex key files found")
	}
	return keys, nil
}
