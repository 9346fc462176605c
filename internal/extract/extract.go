// Package extract recovers a JSON object from free-form model output.
//
// Models wrap JSON in prose or markdown fences despite being told not to, so
// extraction is layered: direct parse, fenced block, then the outermost braces.
// No semantic validation happens here.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/antonholmquist/jason"
)

// Strategy names the layer that produced an object
type Strategy string

const (
	StrategyDirect Strategy = "direct"
	StrategyFenced Strategy = "fenced"
	StrategyBraces Strategy = "braces"
	StrategyNone   Strategy = "none"
)

var fencePattern = regexp.MustCompile("(?s)```[ \t]*(?:[A-Za-z]+)?[ \t]*\r?\n?(.*?)```")

// Extract returns the first JSON object recoverable from text, or nil
func Extract(text string) *jason.Object {
	obj, _ := ExtractWithStrategy(text)
	return obj
}

// ExtractWithStrategy is Extract that also reports which layer succeeded
func ExtractWithStrategy(text string) (*jason.Object, Strategy) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, StrategyNone
	}

	if obj := parseObject(trimmed); obj != nil {
		return obj, StrategyDirect
	}

	if inner, ok := stripFences(trimmed); ok {
		if obj := parseObject(inner); obj != nil {
			return obj, StrategyFenced
		}
	}

	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start >= 0 && end > start {
		if obj := parseObject(trimmed[start : end+1]); obj != nil {
			return obj, StrategyBraces
		}
	}

	return nil, StrategyNone
}

// stripFences returns the body of the first ``` or ```json fenced block.
// An unterminated opening fence yields everything after it.
func stripFences(s string) (string, bool) {
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := strings.TrimPrefix(s[idx+3:], "json")
		rest = strings.TrimPrefix(rest, "JSON")
		return strings.TrimSpace(rest), true
	}
	return "", false
}

// parseObject accepts only a complete JSON object. Arrays, scalars and
// trailing text after the object are treated as no result.
func parseObject(s string) *jason.Object {
	if !strings.HasPrefix(s, "{") || !json.Valid([]byte(s)) {
		return nil
	}
	obj, err := jason.NewObjectFromBytes([]byte(s))
	if err != nil {
		return nil
	}
	return obj
}
