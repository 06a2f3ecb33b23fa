package aliasing

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

type (
	// compiledPattern holds a pre-compiled regex pattern and its canonical template.
	compiledPattern struct {
		regex     *regexp.Regexp
		canonical string
		variables []string
	}

	// AliasResolver resolves attribute keys using pattern-based aliasing.
	// Thread-safe for concurrent use (immutable after construction).
	//
	// The resolver transforms legacy or tool-specific attribute keys into the
	// canonical key the attribute type table was built under, so a traversal
	// run can look up metadata regardless of which name a record arrived
	// under.
	//
	// Pattern syntax:
	//   - {variable} captures any characters except "/"
	//   - {variable*} captures any characters including "/" (for nested keys)
	//   - Literal characters match exactly
	//   - First matching pattern wins (order matters)
	AliasResolver struct {
		patterns []compiledPattern
	}
)

// variableRegex matches {name} or {name*} patterns in the pattern string.
var variableRegex = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\*?\}`)

// compilePattern converts a pattern string to a compiled regex.
//
// Pattern: "ncbi_{field}" → Regex: ^ncbi_(?P<field>[^/]+)$.
// Pattern: "meta/{path*}" → Regex: ^meta/(?P<path>.+)$.
func compilePattern(pattern string) (*regexp.Regexp, []string, error) {
	variables := make([]string, 0, 4) //nolint:mnd // preallocate for typical pattern

	// Escape regex special characters in literal parts
	escaped := regexp.QuoteMeta(pattern)

	// Replace escaped variable placeholders with capture groups
	// QuoteMeta escapes { and }, so we look for \{...\}
	result := escaped

	// Find all variables in original pattern
	matches := variableRegex.FindAllStringSubmatch(pattern, -1)
	for _, match := range matches {
		fullMatch := match[0] // e.g., "{field}" or "{path*}"
		varName := match[1]   // e.g., "field" or "path"
		isGreedy := strings.HasSuffix(fullMatch, "*}")

		variables = append(variables, varName)

		// Build the capture group
		var captureGroup string
		if isGreedy {
			// {var*} captures anything including slashes
			captureGroup = "(?P<" + varName + ">.+)"
		} else {
			// {var} captures anything except slashes
			captureGroup = "(?P<" + varName + ">[^/]+)"
		}

		// Replace the escaped version in the result
		escapedVar := regexp.QuoteMeta(fullMatch)
		result = strings.Replace(result, escapedVar, captureGroup, 1)
	}

	// Anchor the regex to match the entire string
	result = "^" + result + "$"

	regex, err := regexp.Compile(result)
	if err != nil {
		return nil, nil, err
	}

	return regex, variables, nil
}

// substituteVariables replaces {var} placeholders in canonical with captured values.
func substituteVariables(canonical string, captures map[string]string) string {
	result := canonical

	for varName, value := range captures {
		// Replace both {var} and {var*} forms
		result = strings.ReplaceAll(result, "{"+varName+"}", value)
		result = strings.ReplaceAll(result, "{"+varName+"*}", value)
	}

	return result
}

// NewResolver creates a resolver from config with validation.
//
// Validates:
//   - Patterns with empty pattern or canonical are skipped with warning
//   - Patterns with invalid regex are skipped with warning
//
// Returns a resolver containing only valid patterns.
// If config is nil or has no patterns, returns a no-op resolver (passthrough).
func NewResolver(cfg *Config) *AliasResolver {
	if cfg == nil || len(cfg.KeyPatterns) == 0 {
		return &AliasResolver{
			patterns: []compiledPattern{},
		}
	}

	validPatterns := make([]compiledPattern, 0, len(cfg.KeyPatterns))

	for _, ka := range cfg.KeyPatterns {
		pattern := strings.TrimSpace(ka.Pattern)
		canonical := strings.TrimSpace(ka.Canonical)

		// Skip empty patterns
		if pattern == "" {
			slog.Warn("Skipping alias pattern with empty pattern string")

			continue
		}

		// Skip empty canonical
		if canonical == "" {
			slog.Warn("Skipping alias pattern with empty canonical",
				slog.String("pattern", pattern))

			continue
		}

		// Compile the pattern
		regex, variables, err := compilePattern(pattern)
		if err != nil {
			slog.Warn("Skipping alias pattern with invalid regex",
				slog.String("pattern", pattern),
				slog.String("error", err.Error()))

			continue
		}

		validPatterns = append(validPatterns, compiledPattern{
			regex:     regex,
			canonical: canonical,
			variables: variables,
		})

		slog.Debug("Compiled attribute key alias pattern",
			slog.String("pattern", pattern),
			slog.String("canonical", canonical),
			slog.Int("variables", len(variables)))
	}

	return &AliasResolver{
		patterns: validPatterns,
	}
}

// LoadAliasResolver reads an alias configuration file at path and compiles it
// into a resolver. It is the entry point the attribute type table uses (spec
// component A: "aliasPath is optional").
func LoadAliasResolver(path string) (*AliasResolver, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("loading attribute key alias config: %w", err)
	}

	return NewResolver(cfg), nil
}

// GetPatternCount returns the number of compiled patterns.
func (r *AliasResolver) GetPatternCount() int {
	if r == nil {
		return 0
	}

	return len(r.patterns)
}

// Resolve applies patterns to transform an attribute key to its canonical
// form. Returns the canonical key if a pattern matches, otherwise returns the
// original key unchanged.
//
// Patterns are evaluated in order; first match wins.
func (r *AliasResolver) Resolve(key string) string {
	if r == nil || len(r.patterns) == 0 || key == "" {
		return key
	}

	for _, cp := range r.patterns {
		match := cp.regex.FindStringSubmatch(key)
		if match == nil {
			continue
		}

		// Extract captured values
		captures := make(map[string]string)

		for i, name := range cp.regex.SubexpNames() {
			if i > 0 && name != "" && i < len(match) {
				captures[name] = match[i]
			}
		}

		// Substitute variables in canonical template
		return substituteVariables(cp.canonical, captures)
	}

	// No pattern matched - return original
	return key
}

// Match checks if a key matches any pattern and returns match details.
// Returns (canonical, true) if matched, ("", false) if no match.
func (r *AliasResolver) Match(key string) (string, bool) {
	if r == nil || len(r.patterns) == 0 || key == "" {
		return "", false
	}

	for _, cp := range r.patterns {
		match := cp.regex.FindStringSubmatch(key)
		if match == nil {
			continue
		}

		// Extract captured values
		captures := make(map[string]string)

		for i, name := range cp.regex.SubexpNames() {
			if i > 0 && name != "" && i < len(match) {
				captures[name] = match[i]
			}
		}

		// Substitute variables in canonical template
		return substituteVariables(cp.canonical, captures), true
	}

	return "", false
}
