package archive

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// FormatVersion is the current archive layout.
const FormatVersion = 1

// MaxPayloadSize bounds the decompressed payload (1 GiB).
const MaxPayloadSize = 1 << 30

var (
	ErrChecksum = errors.New("archive checksum mismatch")
	ErrFormat   = errors.New("unrecognized archive format")
)

// Header is the plain-text first line of an archive file.
type Header struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
	Evaluator string    `json:"evaluator"`
	Documents int       `json:"documents"`
	// Size is the total size of the archived documents in bytes.
	Size int64 `json:"size"`
}

// Document is one stitched document, stored byte for byte.
type Document struct {
	// Path is slash-separated and relative to the evaluator directory.
	Path    string `json:"path"`
	Content []byte `json:"content"`
}

// Payload is the compressed body of an archive.
type Payload struct {
	Evaluator string     `json:"evaluator"`
	Documents []Document `json:"documents"`
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// write stores p at path as a header line followed by the gzip payload.
func write(path string, p *Payload, createdAt time.Time) (*Header, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw); err != nil {
		return nil, fmt.Errorf("compressing payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}

	h := &Header{
		Version:   FormatVersion,
		CreatedAt: createdAt.UTC(),
		Checksum:  checksum(compressed.Bytes()),
		Evaluator: p.Evaluator,
		Documents: len(p.Documents),
	}
	for _, d := range p.Documents {
		h.Size += int64(len(d.Content))
	}
	line, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encoding header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating archive: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.Write(line)
	w.WriteByte('\n')
	w.Write(compressed.Bytes())
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("writing archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}
	return h, nil
}

// open reads the header and the still-compressed body.
func open(path string) (*Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	h, err := readHeader(r)
	if err != nil {
		return nil, nil, err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading payload: %w", err)
	}
	return h, body, nil
}

func readHeader(r *bufio.Reader) (*Header, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: reading header line: %v", ErrFormat, err)
	}
	var h Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &h); err != nil {
		return nil, fmt.Errorf("%w: parsing header: %v", ErrFormat, err)
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("%w: version %d", ErrFormat, h.Version)
	}
	return &h, nil
}

// ReadHeader reads only the header line.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()
	return readHeader(bufio.NewReader(f))
}

// Verify checks the payload checksum without decompressing.
func Verify(path string) (*Header, error) {
	h, body, err := open(path)
	if err != nil {
		return nil, err
	}
	if got := checksum(body); got != h.Checksum {
		return nil, fmt.Errorf("%w: header %s, payload %s", ErrChecksum, h.Checksum, got)
	}
	return h, nil
}

// Read verifies and decompresses an archive.
func Read(path string) (*Header, *Payload, error) {
	h, body, err := open(path)
	if err != nil {
		return nil, nil, err
	}
	if got := checksum(body); got != h.Checksum {
		return nil, nil, fmt.Errorf("%w: header %s, payload %s", ErrChecksum, h.Checksum, got)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("opening payload: %w", err)
	}
	defer gzr.Close()
	raw, err := io.ReadAll(io.LimitReader(gzr, MaxPayloadSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if len(raw) > MaxPayloadSize {
		return nil, nil, fmt.Errorf("payload exceeds %d bytes", MaxPayloadSize)
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, nil, fmt.Errorf("parsing payload: %w", err)
	}
	return h, &p, nil
}
