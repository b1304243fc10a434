package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Entity kinds used in symbol IDs.
const (
	KindClass    = "class"
	KindFunction = "function"
)

// BuildStableSymbolID creates a deterministic ID for an entity of a unit.
// Two entities with the same name in the same file stay distinct through
// their parent and position.
func BuildStableSymbolID(path, kind, name string, parent *string, lineno, col int) string {
	path = canonicalize(path)
	if path == "" {
		path = "_"
	}
	if kind == "" {
		kind = "symbol"
	}
	name = canonicalize(name)
	if name == "" {
		name = "_"
	}
	scope := "_"
	if parent != nil && *parent != "" {
		scope = canonicalize(*parent)
	}

	fingerprint := strings.Join([]string{
		path,
		kind,
		scope,
		name,
		fmt.Sprintf("%d:%d", lineno, col),
	}, "|")

	sum := sha256.Sum256([]byte(fingerprint))
	short := hex.EncodeToString(sum[:8])
	return fmt.Sprintf("py/%s:%s:%s:%s", path, kind, qualified(scope, name), short)
}

// ClassID returns the stable ID of a class entity.
func ClassID(path string, c ClassEntity) string {
	return BuildStableSymbolID(path, KindClass, c.Name, nil, c.Lineno, c.ColOffset)
}

// FunctionID returns the stable ID of a function entity.
func FunctionID(path string, f FunctionEntity) string {
	return BuildStableSymbolID(path, KindFunction, f.Name, f.Parent, f.Lineno, f.ColOffset)
}

func qualified(scope, name string) string {
	if scope == "_" {
		return name
	}
	return scope + "." + name
}

func canonicalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespaceRe.ReplaceAllString(s, " ")
}
