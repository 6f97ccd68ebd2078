package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrNotText         = errors.New("document is not valid UTF-8 text")
	ErrEmptyDocument   = errors.New("document has no text content")
)

// Loader turns a file on disk into plain text.
type Loader interface {
	Load(path string) (string, error)
}

// TextLoader reads source files and plain-text documents. Binary formats
// are rejected.
type TextLoader struct {
	maxBytes int64
}

func NewTextLoader(maxBytes int64) *TextLoader {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &TextLoader{maxBytes: maxBytes}
}

var _ Loader = (*TextLoader)(nil)

const defaultMaxBytes = 25 << 20 // 25MB

// DocumentLoader picks a loader by file extension and falls back to text.
type DocumentLoader struct {
	byExt    map[string]Loader
	fallback Loader
}

// NewDocumentLoader handles PDFs and plain text, each capped at maxBytes.
func NewDocumentLoader(maxBytes int64) *DocumentLoader {
	return &DocumentLoader{
		byExt:    map[string]Loader{".pdf": NewPDFLoader(maxBytes)},
		fallback: NewTextLoader(maxBytes),
	}
}

var _ Loader = (*DocumentLoader)(nil)

func (d *DocumentLoader) Load(path string) (string, error) {
	if l, ok := d.byExt[strings.ToLower(filepath.Ext(path))]; ok {
		return l.Load(path)
	}
	return d.fallback.Load(path)
}

var binaryExtensions = map[string]struct{}{
	".docx": {}, ".doc": {}, ".xlsx": {}, ".pptx": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".zip": {},
	".class": {}, ".jar": {}, ".exe": {}, ".so": {}, ".dll": {},
}

func (l *TextLoader) Load(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := binaryExtensions[ext]; ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	if err := checkSize(path, l.maxBytes); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return Decode(data)
}

func checkSize(path string, maxBytes int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat document: %w", err)
	}
	if info.Size() > maxBytes {
		return fmt.Errorf("document is %d bytes, limit is %d", info.Size(), maxBytes)
	}
	return nil
}

// Decode validates raw bytes as text, stripping a UTF-8 byte order mark.
func Decode(data []byte) (string, error) {
	data = []byte(strings.TrimPrefix(string(data), "\ufeff"))
	if !utf8.Valid(data) || strings.ContainsRune(string(data), 0) {
		return "", ErrNotText
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}
