package syntax

import "testing"

func TestLanguageFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Language
		ok   bool
	}{
		{"src/main.cpp", LangCPP, true},
		{"include/frame.H", LangCPP, true},
		{"lib/a.c", LangC, true},
		{"cmd/main.go", LangGo, true},
		{"app.tsx", LangTSX, true},
		{"script.py", LangPython, true},
		{"README.md", "", false},
		{"Makefile", "", false},
	}
	for _, tt := range tests {
		got, ok := LanguageFromPath(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("LanguageFromPath(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}
