// Package utils provides small helpers shared by the HTTP and service
// layers. They carry no domain logic.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as an int, returning def when s is blank or invalid.
// Surrounding spaces are ignored.
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// ParsePage reads page and page_size query values.
func ParsePage(page, pageSize string, defSize, maxSize int) Page {
	return Page{
		Number: AtoiDefault(page, 1),
		Size:   AtoiDefault(pageSize, defSize),
	}.Clamp(defSize, maxSize)
}

// Clamp bounds the page number to >= 1 and the size to [1, maxSize].
// A non-positive size becomes defSize; maxSize <= 0 disables the cap.
func (p Page) Clamp(defSize, maxSize int) Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defSize
	}
	if p.Size < 1 {
		p.Size = 1
	}
	if maxSize > 0 && p.Size > maxSize {
		p.Size = maxSize
	}
	return p
}

// Offset is the number of rows to skip.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// TotalPages returns ceil(total/size), 0 for an empty result.
func TotalPages(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
