//go:build cgo

package syntax

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"
	tsc "github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"annot/internal/anchor"
	"annot/internal/slogutil"
)

// Classifier parses files with tree-sitter and keeps recent trees keyed by
// content, so repeated notes on an unchanged file parse it once.
type Classifier struct {
	mu     sync.Mutex // guards parser
	parser *sitter.Parser
	trees  *lru.Cache[string, *sitter.Tree]
	logger *slog.Logger
}

// NewClassifier creates a classifier caching up to cacheSize trees.
func NewClassifier(cacheSize int, logger *slog.Logger) (*Classifier, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	trees, err := lru.New[string, *sitter.Tree](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create tree cache: %w", err)
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Classifier{parser: sitter.NewParser(), trees: trees, logger: logger}, nil
}

// Available reports whether parsing is compiled in.
func Available() bool { return true }

// NodeTypeAt returns the type of the smallest named node spanning r, or
// Unknown when the language is unsupported or r does not fit the source.
func (c *Classifier) NodeTypeAt(ctx context.Context, path string, source []byte, r anchor.Range) string {
	lang, ok := LanguageFromPath(path)
	if !ok {
		return Unknown
	}
	startCol, endCol, err := anchor.ByteColumns(string(source), r)
	if err != nil {
		c.logger.Debug("Range does not fit source", "path", path, "range", r.String(), "error", err.Error())
		return Unknown
	}
	tree, err := c.tree(ctx, lang, source)
	if err != nil {
		c.logger.Debug("Parse failed", "path", path, "language", string(lang), "error", err.Error())
		return Unknown
	}

	start := sitter.Point{Row: uint32(r.Start.Line), Column: uint32(startCol)}
	end := sitter.Point{Row: uint32(r.End.Line), Column: uint32(endCol)}
	node := tree.RootNode().NamedDescendantForPointRange(start, end)
	if node == nil || node.IsNull() {
		return Unknown
	}
	return node.Type()
}

// CachedTrees is the number of parsed files held.
func (c *Classifier) CachedTrees() int {
	return c.trees.Len()
}

func (c *Classifier) tree(ctx context.Context, lang Language, source []byte) (*sitter.Tree, error) {
	key := cacheKey(lang, source)
	if tree, ok := c.trees.Get(key); ok {
		return tree, nil
	}

	grammar, err := grammarFor(lang)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.parser.SetLanguage(grammar)
	tree, err := c.parser.ParseCtx(ctx, nil, source)
	c.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	c.trees.Add(key, tree)
	return tree, nil
}

func cacheKey(lang Language, source []byte) string {
	h := sha256.New()
	h.Write([]byte(lang))
	h.Write([]byte{0})
	h.Write(source)
	return hex.EncodeToString(h.Sum(nil))
}

func grammarFor(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangC:
		return tsc.GetLanguage(), nil
	case LangCPP:
		return cpp.GetLanguage(), nil
	case LangGo:
		return golang.GetLanguage(), nil
	case LangJava:
		return java.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	case LangRust:
		return rust.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}
