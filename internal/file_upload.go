package internal

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"webchat/internal/storage"
)

// FileIngress stores uploaded binaries outside the realtime channel and hands
// back the stable reference that gets embedded in a message.
type FileIngress struct {
	uploadDir   string // Base directory for stored files
	maxFileSize int64  // Maximum file size in bytes
}

func NewFileIngress(uploadDir string, maxFileSize int64) *FileIngress {
	return &FileIngress{uploadDir: uploadDir, maxFileSize: maxFileSize}
}

// Dir returns the base directory served under /uploads/.
func (f *FileIngress) Dir() string {
	return f.uploadDir
}

// MaxFileSize returns the upload size limit in bytes.
func (f *FileIngress) MaxFileSize() int64 {
	return f.maxFileSize
}

// Receive writes the upload to disk under a collision-resistant name and
// returns the file reference plus the number of bytes written. The reference
// path is the public /uploads/ URL, not the filesystem path.
func (f *FileIngress) Receive(file multipart.File, header *multipart.FileHeader) (storage.FileRef, int64, error) {
	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." || filename == ".." {
		return storage.FileRef{}, 0, fmt.Errorf("invalid filename %q", header.Filename)
	}
	if header.Size > f.maxFileSize {
		return storage.FileRef{}, 0, fmt.Errorf("file exceeds size limit")
	}

	stored := storedFilename(filename)
	if err := os.MkdirAll(f.uploadDir, 0o755); err != nil {
		return storage.FileRef{}, 0, fmt.Errorf("create upload directory: %w", err)
	}
	destPath := filepath.Join(f.uploadDir, stored)
	dest, err := os.Create(destPath)
	if err != nil {
		return storage.FileRef{}, 0, fmt.Errorf("create file: %w", err)
	}
	defer dest.Close()

	written, err := io.Copy(dest, file)
	if err != nil {
		os.Remove(destPath)
		return storage.FileRef{}, 0, fmt.Errorf("save file: %w", err)
	}

	ref := storage.FileRef{
		Filename: filename,
		Path:     "/uploads/" + stored,
		Mimetype: detectMimetype(header),
	}
	return ref, written, nil
}

// storedFilename builds a timestamp-plus-random name that keeps the original
// extension, so concurrent uploads of the same file never collide.
func storedFilename(original string) string {
	ext := sanitizeExtension(filepath.Ext(original))
	return fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.NewString(), ext)
}

func sanitizeExtension(ext string) string {
	ext = strings.ReplaceAll(ext, "/", "")
	ext = strings.ReplaceAll(ext, "\\", "")
	ext = strings.ReplaceAll(ext, "\x00", "")
	return ext
}

func detectMimetype(header *multipart.FileHeader) string {
	if declared := header.Header.Get("Content-Type"); declared != "" {
		return declared
	}
	if byExt := mime.TypeByExtension(filepath.Ext(header.Filename)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
