// Package assetstore keeps uploaded city images and serves them back.
package assetstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTimeout is returned when an upload does not finish in time.
	ErrTimeout = errors.New("asset upload timed out")
	// ErrInvalidFile is returned for unsupported or oversized files.
	ErrInvalidFile = errors.New("invalid asset file")
)

// Store persists an uploaded image and returns its public URL.
type Store interface {
	Put(ctx context.Context, folder, filename string, r io.Reader) (string, error)
}

var allowedExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// Local stores assets under a directory on the local file system.
type Local struct {
	dir      string
	baseURL  string
	maxBytes int64
	timeout  time.Duration
}

var _ Store = (*Local)(nil)

// NewLocal creates dir if needed. baseURL is the public prefix assets are
// served under, e.g. "/assets".
func NewLocal(dir, baseURL string, maxBytes int64, timeout time.Duration) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("assetstore: resolve dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("assetstore: mkdir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Local{
		dir:      abs,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
		timeout:  timeout,
	}, nil
}

// Dir returns the absolute asset directory.
func (l *Local) Dir() string { return l.dir }

// Put stores r under folder with a fresh random name that keeps the
// extension of filename.
func (l *Local) Put(ctx context.Context, folder, filename string, r io.Reader) (string, error) {
	if !safeSegment(folder) {
		return "", fmt.Errorf("%w: bad folder %q", ErrInvalidFile, folder)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	mime, ok := allowedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: unsupported extension %q (allowed: jpg, jpeg, png)", ErrInvalidFile, ext)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	data, err := io.ReadAll(io.LimitReader(ctxReader{ctx: ctx, r: r}, l.maxBytes+1))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("assetstore: read upload: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return "", fmt.Errorf("%w: larger than %d bytes", ErrInvalidFile, l.maxBytes)
	}
	if detected := http.DetectContentType(data); !strings.HasPrefix(detected, mime) {
		return "", fmt.Errorf("%w: content does not match extension %s (detected: %s)", ErrInvalidFile, ext, detected)
	}

	name := uuid.NewString() + ext
	if err := l.write(filepath.Join(l.dir, folder), name, data); err != nil {
		return "", err
	}
	return l.baseURL + "/" + path.Join(folder, name), nil
}

func (l *Local) write(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("assetstore: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("assetstore: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("assetstore: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("assetstore: close: %w", err)
	}
	_ = os.Chmod(tmpName, 0o644)
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("assetstore: rename: %w", err)
	}
	return nil
}

// safeSegment accepts a single path element without traversal.
func safeSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`) && !strings.HasPrefix(s, ".")
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
