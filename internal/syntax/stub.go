//go:build !cgo

package syntax

import (
	"context"
	"log/slog"

	"annot/internal/anchor"
)

// Classifier is a no-op without cgo: tree-sitter grammars are C libraries.
type Classifier struct{}

// NewClassifier returns a classifier that always answers Unknown.
func NewClassifier(cacheSize int, logger *slog.Logger) (*Classifier, error) {
	return &Classifier{}, nil
}

// Available reports whether parsing is compiled in.
func Available() bool { return false }

// NodeTypeAt always returns Unknown.
func (c *Classifier) NodeTypeAt(ctx context.Context, path string, source []byte, r anchor.Range) string {
	return Unknown
}

// CachedTrees is always zero.
func (c *Classifier) CachedTrees() int { return 0 }
