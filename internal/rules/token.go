package rules

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/andrewiankidd/crosspose-sub000/internal/platform"
)

// NATGatewayPlaceholder is substituted for cross-OS hostname references. The
// runtime orchestrator replaces it with the live WSL bridging address before
// the compose engines run; this translator never resolves it.
const NATGatewayPlaceholder = "${NAT_GATEWAY_IP}"

// The token grammar, resolved against the infra catalog:
//
//	token    = "{{", ws, "INFRA", "[", name, "]", ".", selector, ws, "}}" ;
//	selector = "HOSTNAME" | "ENVIRONMENT", "[", key, "]" ;
//	name     = { character - "]" } ;
//	key      = { character - "]" } ;
//	ws       = { " " } ;
//
// Keyword matching is case-insensitive. There is no nesting or escaping: a
// "{{" that does not begin a well-formed token is ordinary text.

// token is one parsed occurrence of the grammar above.
type token struct {
	infra    string // referenced infra name
	key      string // environment key; empty for HOSTNAME selectors
	hostname bool   // true for the HOSTNAME selector
}

// parseToken attempts to parse a token at the start of s (which must begin
// with "{{"). It returns the parsed token and the total length consumed, or
// ok=false when s does not start a well-formed token.
func parseToken(s string) (tok token, length int, ok bool) {
	const open, closing = "{{", "}}"

	rest := s[len(open):]
	rest = strings.TrimLeft(rest, " ")

	if !hasFold(rest, "INFRA[") {
		return token{}, 0, false
	}

	rest = rest[len("INFRA["):]

	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return token{}, 0, false
	}

	tok.infra = rest[:end]
	rest = rest[end+1:]

	if !strings.HasPrefix(rest, ".") {
		return token{}, 0, false
	}

	rest = rest[1:]

	switch {
	case hasFold(rest, "HOSTNAME"):
		tok.hostname = true
		rest = rest[len("HOSTNAME"):]

	case hasFold(rest, "ENVIRONMENT["):
		rest = rest[len("ENVIRONMENT["):]

		end = strings.IndexByte(rest, ']')
		if end < 0 {
			return token{}, 0, false
		}

		tok.key = rest[:end]
		rest = rest[end+1:]

	default:
		return token{}, 0, false
	}

	rest = strings.TrimLeft(rest, " ")
	if !strings.HasPrefix(rest, closing) {
		return token{}, 0, false
	}

	length = len(s) - len(rest) + len(closing)

	return tok, length, true
}

// hasFold reports whether s starts with prefix, ignoring case.
func hasFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Detokenize replaces every well-formed, resolvable token in value with its
// concrete substitution. Resolution is total: tokens that cannot be parsed or
// resolved are left in the output verbatim, with a warning for resolvable
// shapes that point at unknown catalog entries.
func (rc *RuntimeContext) Detokenize(value string, consumer platform.OS) string {
	return rc.detokenize(value, consumer, nil)
}

// detokenize carries the set of infra environment keys currently being
// resolved so that cyclic environment references terminate.
func (rc *RuntimeContext) detokenize(value string, consumer platform.OS, visiting map[string]bool) string {
	var out strings.Builder

	rest := value

	for {
		idx := strings.Index(rest, "{{")
		if idx < 0 {
			out.WriteString(rest)
			break
		}

		out.WriteString(rest[:idx])
		rest = rest[idx:]

		tok, length, ok := parseToken(rest)
		if !ok {
			// Not a token: emit the braces as literal text and move on.
			out.WriteString("{{")
			rest = rest[2:]

			continue
		}

		replacement, resolved := rc.resolveToken(tok, consumer, visiting)
		if resolved {
			out.WriteString(replacement)
		} else {
			out.WriteString(rest[:length])
		}

		rest = rest[length:]
	}

	return out.String()
}

// resolveToken resolves one parsed token against the catalog.
func (rc *RuntimeContext) resolveToken(tok token, consumer platform.OS, visiting map[string]bool) (string, bool) {
	infra, ok := rc.Infra(tok.infra)
	if !ok {
		rc.logger.Warn("unresolvable token: unknown infra",
			slog.String("infra", tok.infra))

		return "", false
	}

	if tok.hostname {
		// A windows service cannot reach the WSL loopback directly; the
		// placeholder is swapped for the bridging address downstream. Same-OS
		// consumers use the infra name as the compose network DNS alias.
		if consumer.IsWindows() && !infra.OS.IsWindows() {
			return NATGatewayPlaceholder, true
		}

		return infra.Name, true
	}

	raw, ok := infra.Environment[tok.key]
	if !ok {
		raw, ok = environmentFold(infra.Environment, tok.key)
	}

	if !ok {
		rc.logger.Warn("unresolvable token: unknown environment key",
			slog.String("infra", infra.Name), slog.String("key", tok.key))

		return "", false
	}

	// The infra's environment may itself contain tokens; resolve them from
	// the infra's own perspective, guarding against reference cycles.
	guard := strings.ToLower(infra.Name + "." + tok.key)

	if visiting[guard] {
		rc.logger.Warn("cyclic token reference",
			slog.String("infra", infra.Name), slog.String("key", tok.key))

		return "", false
	}

	if visiting == nil {
		visiting = make(map[string]bool)
	}

	visiting[guard] = true
	defer delete(visiting, guard)

	return rc.detokenize(raw, infra.OS, visiting), true
}

// environmentFold performs a case-insensitive environment key lookup.
func environmentFold(env map[string]string, key string) (string, bool) {
	for k, v := range env {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}

	return "", false
}

// InfraNamesIn returns the catalog infra names referenced by value. Token
// occurrences are collected first; catalog entries not accounted for by
// tokens are then matched with a whole-word scan, which covers values that
// mention an infra name without using token syntax.
func (rc *RuntimeContext) InfraNamesIn(value string) []string {
	seen := make(map[string]bool)

	var names []string

	rest := value

	for {
		idx := strings.Index(rest, "{{")
		if idx < 0 {
			break
		}

		rest = rest[idx:]

		tok, length, ok := parseToken(rest)
		if !ok {
			rest = rest[2:]
			continue
		}

		if infra, found := rc.Infra(tok.infra); found {
			key := strings.ToLower(infra.Name)
			if !seen[key] {
				seen[key] = true
				names = append(names, infra.Name)
			}
		}

		rest = rest[length:]
	}

	for _, key := range rc.infraNames {
		if seen[key] {
			continue
		}

		infra := rc.infra[key]
		if wholeWordPattern(infra.Name).MatchString(value) {
			seen[key] = true
			names = append(names, infra.Name)
		}
	}

	return names
}

// wholeWordPattern builds a case-insensitive whole-word matcher for an infra
// name.
func wholeWordPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
}
