package ident

import (
	"strings"
)

// Sanitize converts an arbitrary declarative name into a safe identifier:
// every rune outside [A-Za-z0-9_] becomes '_', and an identifier starting
// with a digit is prefixed so it never begins with one.
func Sanitize(name string) string {
	if name == "" {
		return "_"
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if s[0] >= '0' && s[0] <= '9' {
		s = "t_" + s
	}
	return s
}

// PackageName derives a generated package name from a declarative name.
func PackageName(name string) string {
	return strings.ToLower(Sanitize(name))
}

// NormalizePath canonicalizes a declarative route or endpoint path:
// leading slash, no trailing slash (root stays "/"), and ":param"
// segments rewritten as bracket segments ("[param]").
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	segs := strings.Split(p[1:], "/")
	for i, s := range segs {
		if strings.HasPrefix(s, ":") && len(s) > 1 {
			segs[i] = "[" + s[1:] + "]"
		}
	}
	return "/" + strings.Join(segs, "/")
}

// Segments splits a normalized path into its non-empty segments.
func Segments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// IsParam reports whether a normalized segment is a bracket parameter.
func IsParam(seg string) bool {
	return strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]") && len(seg) > 2
}

// ParamName returns the parameter name of a bracket segment, or the
// segment itself when it is not one.
func ParamName(seg string) string {
	if IsParam(seg) {
		return seg[1 : len(seg)-1]
	}
	return seg
}

// ExportName converts a declarative id like "contact_form" into an
// exported Go identifier ("ContactForm").
func ExportName(id string) string {
	parts := strings.FieldsFunc(Sanitize(id), func(r rune) bool { return r == '_' })
	if len(parts) == 0 {
		return "X"
	}
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	s := b.String()
	if s[0] >= '0' && s[0] <= '9' {
		s = "X" + s
	}
	return s
}
