package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewiankidd/crosspose-sub000/internal/platform"
)

func tokenContext() *RuntimeContext {
	sets := []RuleSet{{
		Infra: []InfraDefinition{
			{
				Name:  "mssql",
				Image: "mssql:2022",
				OS:    "linux",
				Environment: map[string]string{
					"SA_PASSWORD": "s3cret",
					"ACCEPT_EULA": "Y",
				},
			},
			{
				Name:  "win-svc",
				Image: "win-svc:1",
				OS:    "windows",
			},
			{
				Name:  "chained",
				Image: "chained:1",
				OS:    "linux",
				Environment: map[string]string{
					"UPSTREAM": "{{INFRA[mssql].HOSTNAME}}:{{INFRA[mssql].ENVIRONMENT[SA_PASSWORD]}}",
				},
			},
			{
				Name:  "loop",
				Image: "loop:1",
				Environment: map[string]string{
					"SELF": "{{INFRA[loop].ENVIRONMENT[SELF]}}",
				},
			},
		},
	}}

	return BuildContext(sets, testLogger())
}

func TestParseToken(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   token
		wantOK bool
	}{
		{
			name:   "hostname",
			input:  "{{INFRA[mssql].HOSTNAME}}",
			want:   token{infra: "mssql", hostname: true},
			wantOK: true,
		},
		{
			name:   "environment",
			input:  "{{INFRA[mssql].ENVIRONMENT[SA_PASSWORD]}}",
			want:   token{infra: "mssql", key: "SA_PASSWORD"},
			wantOK: true,
		},
		{
			name:   "case insensitive keywords",
			input:  "{{infra[mssql].hostname}}",
			want:   token{infra: "mssql", hostname: true},
			wantOK: true,
		},
		{
			name:   "spaces tolerated",
			input:  "{{ INFRA[mssql].HOSTNAME }}",
			want:   token{infra: "mssql", hostname: true},
			wantOK: true,
		},
		{name: "missing selector", input: "{{INFRA[mssql]}}", wantOK: false},
		{name: "unterminated name", input: "{{INFRA[mssql.HOSTNAME}}", wantOK: false},
		{name: "unterminated token", input: "{{INFRA[mssql].HOSTNAME", wantOK: false},
		{name: "plain braces", input: "{{not a token}}", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, length, ok := parseToken(tt.input)
			require.Equal(t, tt.wantOK, ok)

			if tt.wantOK {
				assert.Equal(t, tt.want, tok)
				assert.Equal(t, len(tt.input), length)
			}
		})
	}
}

func TestDetokenize_Hostname(t *testing.T) {
	rc := tokenContext()

	// Same-OS consumer: infra name is a compose DNS alias.
	got := rc.Detokenize("Server={{INFRA[mssql].HOSTNAME}}", platform.Linux)
	assert.Equal(t, "Server=mssql", got)

	// Windows consumer of linux infra crosses the virtualization boundary.
	got = rc.Detokenize("Server={{INFRA[mssql].HOSTNAME}}", platform.Windows)
	assert.Equal(t, "Server="+NATGatewayPlaceholder, got)

	// Windows consumer of windows infra stays on the same engine.
	got = rc.Detokenize("{{INFRA[win-svc].HOSTNAME}}", platform.Windows)
	assert.Equal(t, "win-svc", got)

	// Linux consumer of windows infra keeps the name: the windows engine
	// ports are published on the shared host address.
	got = rc.Detokenize("{{INFRA[win-svc].HOSTNAME}}", platform.Linux)
	assert.Equal(t, "win-svc", got)
}

func TestDetokenize_Environment(t *testing.T) {
	rc := tokenContext()

	got := rc.Detokenize("pw={{INFRA[mssql].ENVIRONMENT[SA_PASSWORD]}}", platform.Linux)
	assert.Equal(t, "pw=s3cret", got)

	// Environment key lookup is case-insensitive.
	got = rc.Detokenize("{{INFRA[mssql].ENVIRONMENT[sa_password]}}", platform.Windows)
	assert.Equal(t, "s3cret", got)
}

func TestDetokenize_ChainedEnvironmentResolvesFromInfraPerspective(t *testing.T) {
	rc := tokenContext()

	// The chained infra is linux, so its own upstream hostname resolves to
	// the plain service name even when the outermost consumer is windows.
	got := rc.Detokenize("{{INFRA[chained].ENVIRONMENT[UPSTREAM]}}", platform.Windows)
	assert.Equal(t, "mssql:s3cret", got)
}

func TestDetokenize_TotalOnUnresolvable(t *testing.T) {
	rc := tokenContext()

	tests := []struct {
		name  string
		input string
	}{
		{"unknown infra", "x={{INFRA[nope].HOSTNAME}}"},
		{"unknown env key", "x={{INFRA[mssql].ENVIRONMENT[NOPE]}}"},
		{"malformed token", "x={{INFRA[mssql].WRONG}}"},
		{"bare braces", "x={{just text}}"},
		{"unterminated", "x={{INFRA[mssql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Unresolvable text passes through verbatim.
			assert.Equal(t, tt.input, rc.Detokenize(tt.input, platform.Linux))
		})
	}
}

func TestDetokenize_CycleTerminates(t *testing.T) {
	rc := tokenContext()

	got := rc.Detokenize("{{INFRA[loop].ENVIRONMENT[SELF]}}", platform.Linux)

	// The inner self-reference is detected and left verbatim.
	assert.Equal(t, "{{INFRA[loop].ENVIRONMENT[SELF]}}", got)
}

func TestDetokenize_MultipleTokens(t *testing.T) {
	rc := tokenContext()

	got := rc.Detokenize(
		"Server={{INFRA[mssql].HOSTNAME}};Pwd={{INFRA[mssql].ENVIRONMENT[SA_PASSWORD]}};Eula={{INFRA[mssql].ENVIRONMENT[ACCEPT_EULA]}}",
		platform.Linux,
	)
	assert.Equal(t, "Server=mssql;Pwd=s3cret;Eula=Y", got)
}

func TestInfraNamesIn(t *testing.T) {
	rc := tokenContext()

	// Token references.
	names := rc.InfraNamesIn("{{INFRA[mssql].HOSTNAME}} and {{INFRA[MSSQL].ENVIRONMENT[SA_PASSWORD]}}")
	assert.Equal(t, []string{"mssql"}, names)

	// Whole-word fallback for plain-text mentions.
	names = rc.InfraNamesIn("Server=mssql,1433")
	assert.Equal(t, []string{"mssql"}, names)

	// Substrings do not count as mentions.
	names = rc.InfraNamesIn("Server=notmssqlhost")
	assert.Empty(t, names)

	assert.Empty(t, rc.InfraNamesIn("no references here"))
}
