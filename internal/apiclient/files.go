package apiclient

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Upload is one file selected for import.
type Upload struct {
	Filename string
	Content  io.Reader
}

// FileSaver receives a downloaded payload; it plays the part of the
// browser's "save file" dialog.
type FileSaver interface {
	Save(filename string, data []byte) error
}

// DirSaver writes downloads into a local directory.
type DirSaver struct {
	Dir string
}

func (s DirSaver) Save(filename string, data []byte) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("crear directorio de descargas: %w", err)
	}
	path := filepath.Join(s.Dir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("guardar %s: %w", path, err)
	}
	return nil
}

// MemorySaver keeps the last saved file in memory. The web console uses it
// to hand the bytes to the browser as an attachment.
type MemorySaver struct {
	mu       sync.Mutex
	filename string
	data     []byte
}

func (s *MemorySaver) Save(filename string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filename = filename
	s.data = append([]byte(nil), data...)
	return nil
}

// File returns the last saved file, if any.
func (s *MemorySaver) File() (string, []byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filename, s.data, s.filename != ""
}
