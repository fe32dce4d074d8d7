package upload

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Policy limits which files may be attached as supporting documents
type Policy struct {
	MaxSizeMB         int64
	AllowedTypes      []string
	AllowedExtensions []string
}

// DefaultPolicy accepts PDFs and common image formats up to 10MB
func DefaultPolicy() Policy {
	return Policy{
		MaxSizeMB:         10,
		AllowedTypes:      []string{"application/pdf", "image/jpeg", "image/png"},
		AllowedExtensions: []string{".pdf", ".jpg", ".jpeg", ".png"},
	}
}

// MaxBytes returns the size limit in bytes
func (p Policy) MaxBytes() int64 {
	return p.MaxSizeMB << 20
}

// PolicyError is a file refused before any byte is stored
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return "file rejected: " + e.Reason
}

// Check validates a file's declared metadata
func (p Policy) Check(name, contentType string, size int64) error {
	if size < 0 {
		return &PolicyError{Reason: "unknown size"}
	}
	if p.MaxSizeMB > 0 && size > p.MaxBytes() {
		return &PolicyError{Reason: fmt.Sprintf("file exceeds %dMB", p.MaxSizeMB)}
	}
	if len(p.AllowedTypes) > 0 {
		mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
		if !contains(p.AllowedTypes, mediaType) {
			return &PolicyError{Reason: fmt.Sprintf("type %q is not allowed", mediaType)}
		}
	}
	if len(p.AllowedExtensions) > 0 {
		ext := strings.ToLower(filepath.Ext(name))
		if !contains(p.AllowedExtensions, ext) {
			return &PolicyError{Reason: fmt.Sprintf("extension %q is not allowed", ext)}
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
