package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// FQDN is the five-part capability identifier
// "org.project.namespace.action.hash4" (spec.md §3, §6).
type FQDN string

// FQDNParts is the parsed form of an FQDN.
type FQDNParts struct {
	Org       string
	Project   string
	Namespace string
	Action    string
	Hash4     string
}

// NormalizeCodeSnippet collapses the whitespace variation that would
// otherwise make two semantically-identical snippets hash differently:
// trims, and joins on single spaces. This is deliberately simple — it is
// not a code formatter, just enough to make the FQDN hash stable under
// re-indentation (spec.md §3 invariant 11).
func NormalizeCodeSnippet(code string) string {
	fields := strings.Fields(code)
	return strings.Join(fields, " ")
}

// Hash4 returns the first 4 hex characters of SHA-256 over the normalized
// code snippet.
func Hash4(codeSnippet string) string {
	sum := sha256.Sum256([]byte(NormalizeCodeSnippet(codeSnippet)))
	return hex.EncodeToString(sum[:])[:4]
}

// BuildFQDN assembles a capability FQDN from its parts and code snippet.
// Every part must be non-empty and free of '.' characters.
func BuildFQDN(org, project, namespace, action, codeSnippet string) (FQDN, error) {
	for _, part := range []struct {
		name, value string
	}{{"org", org}, {"project", project}, {"namespace", namespace}, {"action", action}} {
		if part.value == "" {
			return "", fmt.Errorf("fqdn: %s must not be empty", part.name)
		}
		if strings.Contains(part.value, ".") {
			return "", fmt.Errorf("fqdn: %s must not contain '.'", part.name)
		}
	}
	hash := Hash4(codeSnippet)
	return FQDN(fmt.Sprintf("%s.%s.%s.%s.%s", org, project, namespace, action, hash)), nil
}

// ParseFQDN splits an FQDN string back into its parts. A string that does
// not split into exactly 5 dot-separated segments is rejected with an
// error; there is no partial parse.
func ParseFQDN(s FQDN) (FQDNParts, error) {
	parts := strings.Split(string(s), ".")
	if len(parts) != 5 {
		return FQDNParts{}, fmt.Errorf("fqdn: expected 5 dot-separated parts, got %d", len(parts))
	}
	return FQDNParts{
		Org:       parts[0],
		Project:   parts[1],
		Namespace: parts[2],
		Action:    parts[3],
		Hash4:     parts[4],
	}, nil
}

// CallName returns the "namespace:action" call name derived from an FQDN,
// used by C10 when the capability registry doesn't resolve a call name
// directly.
func (p FQDNParts) CallName() string {
	return p.Namespace + ":" + p.Action
}
