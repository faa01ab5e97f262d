package ufdr

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Storage keeps uploaded bytes in a flat local directory.
type Storage struct {
	baseDir string
}

func NewStorage(baseDir string) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{baseDir: baseDir}, nil
}

type storedObject struct {
	Path string
	Size int64
	Hash string
}

// Save streams r to name while hashing it. At most limit bytes are accepted;
// anything larger is removed and reported as ErrFileTooLarge.
func (s *Storage) Save(name string, r io.Reader, limit int64) (*storedObject, error) {
	path := filepath.Join(s.baseDir, name)
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	h := sha256.New()
	n, copyErr := io.Copy(io.MultiWriter(dst, h), io.LimitReader(r, limit+1))
	closeErr := dst.Close()

	switch {
	case copyErr != nil:
		s.Remove(path)
		return nil, fmt.Errorf("write file: %w", copyErr)
	case closeErr != nil:
		s.Remove(path)
		return nil, fmt.Errorf("close file: %w", closeErr)
	case n > limit:
		s.Remove(path)
		return nil, ErrFileTooLarge
	}

	return &storedObject{Path: path, Size: n, Hash: hex.EncodeToString(h.Sum(nil))}, nil
}

// Remove deletes path, ignoring files that are already gone.
func (s *Storage) Remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("ufdr_storage_remove_failed path=%s err=%v", path, err)
	}
}

// maxFilenameBytes bounds stored names; the tail is kept so the extension
// survives.
const maxFilenameBytes = 200

// SanitizeFilename strips path separators so the name cannot escape the
// storage directory.
func SanitizeFilename(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	if len(name) > maxFilenameBytes {
		cut := len(name) - maxFilenameBytes
		for cut < len(name) && !utf8.RuneStart(name[cut]) {
			cut++
		}
		name = name[cut:]
	}
	return name
}
