// Package validation provides security validation functions for preventing
// command injection, path traversal, and other security vulnerabilities in
// the tool-adapter command construction path and the push-channel origin
// check.
package validation

import (
	"net/url"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"qualitygate/internal/qgerrors"
)

// ValidateArgument validates a command line argument to prevent injection attacks.
func ValidateArgument(arg string) error {
	const maxArgLength = 4096 // reasonable limit for command arguments
	if len(arg) > maxArgLength {
		return qgerrors.InvalidInputf("argument too long: %d bytes (max %d)", len(arg), maxArgLength)
	}

	if err := ValidateUnicodeString(arg); err != nil {
		return qgerrors.Wrap(qgerrors.InvalidInput, err, "unicode validation failed")
	}

	dangerous := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\\", "\"", "'", "~", "%"}
	for _, char := range dangerous {
		if strings.Contains(arg, char) {
			return qgerrors.InvalidInputf("argument contains dangerous character: %s", char)
		}
	}

	if strings.Contains(arg, "..") {
		return qgerrors.InvalidInputf("argument contains path traversal: %s", arg)
	}

	if filepath.IsAbs(arg) && !strings.HasPrefix(arg, "/usr/bin/") && !strings.HasPrefix(arg, "/bin/") {
		return qgerrors.InvalidInputf("absolute path not allowed: %s", arg)
	}

	return nil
}

// ValidateCommand validates a command name against an allowlist.
func ValidateCommand(command string, allowedCommands map[string]bool) error {
	if command == "" {
		return qgerrors.InvalidInputf("command cannot be empty")
	}

	if !allowedCommands[command] {
		return qgerrors.InvalidInputf("command %q is not allowed", command)
	}

	if err := ValidateArgument(command); err != nil {
		return qgerrors.Wrap(qgerrors.InvalidInput, err, "invalid command %q", command)
	}

	return nil
}

// ValidatePath validates a file path to prevent path traversal and access to
// sensitive system directories.
func ValidatePath(path string) error {
	if path == "" {
		return qgerrors.InvalidInputf("path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return qgerrors.InvalidInputf("path traversal detected: %s", path)
	}

	restrictedPaths := []string{
		"/etc/passwd",
		"/etc/shadow",
		"/proc/",
		"/sys/",
		"/dev/",
		"/root/",
		"/boot/",
	}

	cleanPathLower := strings.ToLower(cleanPath)
	for _, restricted := range restrictedPaths {
		if strings.HasPrefix(cleanPathLower, restricted) {
			return qgerrors.InvalidInputf("access to restricted path denied: %s", path)
		}
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">", "~", "%"}
	for _, char := range dangerousChars {
		if strings.Contains(path, char) {
			return qgerrors.InvalidInputf("path contains dangerous character: %s", char)
		}
	}

	return nil
}

// ValidateOrigin validates a WebSocket upgrade's Origin header against an
// allowlist. An empty allowedOrigins list allows any http/https origin,
// matching the single-user local-tool default.
func ValidateOrigin(origin string, allowedOrigins []string) error {
	if origin == "" {
		return qgerrors.InvalidInputf("origin header is required")
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return qgerrors.Wrap(qgerrors.InvalidInput, err, "invalid origin format")
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return qgerrors.InvalidInputf("invalid origin scheme %q: only http and https are allowed", originURL.Scheme)
	}

	if len(allowedOrigins) == 0 {
		return nil
	}

	for _, allowed := range allowedOrigins {
		if origin == allowed || originURL.Host == allowed {
			return nil
		}
	}

	return qgerrors.InvalidInputf("origin %q is not in allowed origins list", origin)
}

// ValidateFileExtension validates a filename's extension against an allowlist.
func ValidateFileExtension(filename string, allowedExtensions []string) error {
	if filename == "" {
		return qgerrors.InvalidInputf("filename cannot be empty")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return qgerrors.InvalidInputf("file must have an extension")
	}

	for _, allowed := range allowedExtensions {
		if ext == strings.ToLower(allowed) {
			return nil
		}
	}

	return qgerrors.InvalidInputf("file extension %q is not allowed", ext)
}

// SanitizeInput removes null bytes and control characters (other than
// common whitespace) from user-supplied input.
func SanitizeInput(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var sanitized strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' || r == '\r' {
			sanitized.WriteRune(r)
		}
	}

	return sanitized.String()
}

// ValidateUnicodeString validates a string against bidirectional-override,
// zero-width, homoglyph, and control-character attacks.
func ValidateUnicodeString(s string) error {
	if !utf8.ValidString(s) {
		return qgerrors.InvalidInputf("invalid UTF-8 sequence")
	}

	for i, r := range s {
		if isBidiOverride(r) {
			return qgerrors.InvalidInputf("contains bidirectional override character at position %d", i)
		}
		if isZeroWidth(r) {
			return qgerrors.InvalidInputf("contains zero-width character at position %d", i)
		}
		if isHomoglyphRisk(r) {
			return qgerrors.InvalidInputf("contains potentially confusing non-ASCII character at position %d", i)
		}
		if unicode.IsControl(r) {
			return qgerrors.InvalidInputf("contains control character at position %d", i)
		}
		if r == '�' {
			return qgerrors.InvalidInputf("contains Unicode replacement character at position %d", i)
		}
	}

	return nil
}

// isBidiOverride checks for bidirectional text override characters.
func isBidiOverride(r rune) bool {
	switch r {
	case '‭', // Left-to-Right Override (LRO)
		'‮', // Right-to-Left Override (RLO)
		'‬', // Pop Directional Formatting (PDF)
		'⁦', // Left-to-Right Isolate (LRI)
		'⁧', // Right-to-Left Isolate (RLI)
		'⁨', // First Strong Isolate (FSI)
		'⁩': // Pop Directional Isolate (PDI)
		return true
	}
	return false
}

// isZeroWidth checks for zero-width characters that could hide content.
func isZeroWidth(r rune) bool {
	switch r {
	case '​', // Zero Width Space (ZWSP)
		'‌', // Zero Width Non-Joiner (ZWNJ)
		'‍', // Zero Width Joiner (ZWJ)
		'⁠', // Word Joiner (WJ)
		'⁡', // Function Application
		'⁢', // Invisible Times
		'⁣', // Invisible Separator
		'⁤', // Invisible Plus
		0xFEFF: // Zero Width No-Break Space (BOM)
		return true
	}
	return false
}

// isHomoglyphRisk restricts command arguments to ASCII printable characters,
// since visually similar characters from other scripts could be used to
// deceive a reviewer or bypass a filter.
func isHomoglyphRisk(r rune) bool {
	return r > 127
}
