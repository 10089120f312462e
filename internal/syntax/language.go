// Package syntax names the syntactic node under a source range so notes added
// by hand carry a node type like the ones populate receives.
package syntax

import (
	"path/filepath"
	"strings"
)

// Unknown is returned when no node type can be determined.
const Unknown = "Unknown"

// DefaultCacheSize is the number of parsed files kept.
const DefaultCacheSize = 64

// Language is a grammar the classifier can parse.
type Language string

const (
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangGo         Language = "go"
	LangJava       Language = "java"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
)

var extensions = map[string]Language{
	".c":    LangC,
	".h":    LangCPP,
	".cc":   LangCPP,
	".cpp":  LangCPP,
	".cxx":  LangCPP,
	".hh":   LangCPP,
	".hpp":  LangCPP,
	".hxx":  LangCPP,
	".go":   LangGo,
	".java": LangJava,
	".js":   LangJavaScript,
	".jsx":  LangJavaScript,
	".mjs":  LangJavaScript,
	".py":   LangPython,
	".rs":   LangRust,
	".ts":   LangTypeScript,
	".tsx":  LangTSX,
}

// LanguageFromPath picks a grammar by file extension. Headers are parsed as
// C++ since that is what the checker targets.
func LanguageFromPath(path string) (Language, bool) {
	lang, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}
