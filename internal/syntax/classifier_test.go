//go:build cgo

package syntax

import (
	"context"
	"testing"

	"annot/internal/anchor"
)

const cppSource = `#include <chrono>

int main() {
  auto dt = 5;
  auto twice = dt * 2;
  return twice;
}
`

func rng(sl, sc, el, ec int) anchor.Range {
	return anchor.Range{
		Start: anchor.Position{Line: sl, Character: sc},
		End:   anchor.Position{Line: el, Character: ec},
	}
}

func TestNodeTypeAt(t *testing.T) {
	c, err := NewClassifier(4, nil)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		name string
		path string
		r    anchor.Range
		want string
	}{
		{"identifier", "main.cpp", rng(3, 7, 3, 9), "identifier"},
		{"binary expression", "main.cpp", rng(4, 15, 4, 21), "binary_expression"},
		{"number", "main.cpp", rng(3, 12, 3, 13), "number_literal"},
		{"unsupported language", "notes.txt", rng(3, 7, 3, 9), Unknown},
		{"range past end", "main.cpp", rng(40, 0, 40, 1), Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.NodeTypeAt(ctx, tt.path, []byte(cppSource), tt.r)
			if got != tt.want {
				t.Errorf("NodeTypeAt = %q, want %q", got, tt.want)
			}
		})
	}
	if !Available() {
		t.Error("Available() = false in a cgo build")
	}
}

func TestTreeCache(t *testing.T) {
	c, err := NewClassifier(2, nil)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	ctx := context.Background()
	src := []byte(cppSource)

	c.NodeTypeAt(ctx, "a.cpp", src, rng(3, 7, 3, 9))
	c.NodeTypeAt(ctx, "b.cpp", src, rng(4, 15, 4, 21))
	if got := c.CachedTrees(); got != 1 {
		t.Errorf("same content parsed into %d trees, want 1", got)
	}

	c.NodeTypeAt(ctx, "a.go", []byte("package a\n\nvar x = 1\n"), rng(2, 4, 2, 5))
	c.NodeTypeAt(ctx, "b.py", []byte("x = 1\n"), rng(0, 0, 0, 1))
	if got := c.CachedTrees(); got != 2 {
		t.Errorf("cache holds %d trees, want 2", got)
	}
}
