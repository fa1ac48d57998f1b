package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Common errors for fault file loading.
var (
	ErrFileNotFound     = errors.New("fault file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidJSON      = errors.New("invalid JSON syntax")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("fault file is empty")
	ErrSchema           = errors.New("fault file does not match schema")
)

// Format is the encoding of a fault file.
type Format int

// Supported formats.
const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFromPath picks the format from a file extension (.yaml, .yml for
// YAML, otherwise JSON).
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadFile reads and validates a fault file.
// Returns wrapped errors for common failure cases.
func LoadFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	f, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a fault file in the given format.
func Parse(data []byte, format Format) (*File, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyFile
	}

	var doc any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidYAML, err)
		}
	default:
		if !json.Valid(data) {
			return nil, ErrInvalidJSON
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
	}

	if err := validateSchema(doc); err != nil {
		return nil, err
	}

	var f File
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidYAML, err)
		}
	default:
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// ParseYAML is Parse with FormatYAML.
func ParseYAML(data []byte) (*File, error) {
	return Parse(data, FormatYAML)
}

// ParseJSON is Parse with FormatJSON.
func ParseJSON(data []byte) (*File, error) {
	return Parse(data, FormatJSON)
}

// ToYAML encodes f as YAML.
func ToYAML(f *File) ([]byte, error) {
	return yaml.Marshal(f)
}

// ToJSON encodes f as indented JSON.
func ToJSON(f *File) ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}
