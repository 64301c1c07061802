package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "raw github", input: "https://raw.githubusercontent.com/amy/theme/main/plugin.json"},
		{name: "forge with port", input: "http://git.example.com:3000/amy/theme/raw/branch/main/plugin.json"},
		{name: "empty", input: "", wantErr: ErrEmptyInput},
		{name: "file scheme", input: "file:///etc/passwd", wantErr: ErrInvalidURL},
		{name: "no host", input: "https:///plugin.json", wantErr: ErrInvalidURL},
		{name: "newline", input: "https://example.com/\nplugin.json", wantErr: ErrInvalidURL},
		{name: "too long", input: "https://example.com/" + strings.Repeat("a", 2048), wantErr: ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateURL(tt.input)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateRepo(t *testing.T) {
	t.Parallel()

	valid := []string{"amycatgirl/dyna", "a/b", "my.org/plugin_2"}
	for _, repo := range valid {
		assert.NoError(t, ValidateRepo(repo), repo)
	}

	invalid := []string{"dyna", "a/b/c", "../dyna", "amy/..", "amy/-x", "amy/dyna;rm"}
	for _, repo := range invalid {
		assert.ErrorIs(t, ValidateRepo(repo), ErrInvalidRepo, repo)
	}

	assert.ErrorIs(t, ValidateRepo(""), ErrEmptyInput)
}

func TestValidateHostname(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateHostname(""))
	assert.NoError(t, ValidateHostname("codeberg.org"))
	assert.NoError(t, ValidateHostname("git.example.com:3000"))
	assert.ErrorIs(t, ValidateHostname("codeberg.org/evil"), ErrInvalidHostname)
	assert.ErrorIs(t, ValidateHostname("has space.org"), ErrInvalidHostname)
	assert.ErrorIs(t, ValidateHostname(strings.Repeat("a", 254)), ErrInvalidHostname)
}

func TestValidateIdentifier(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateIdentifier("dyna-devel"))
	assert.ErrorIs(t, ValidateIdentifier(""), ErrEmptyInput)
	assert.ErrorIs(t, ValidateIdentifier("../x"), ErrInvalidID)
	assert.ErrorIs(t, ValidateIdentifier(strings.Repeat("a", 129)), ErrInvalidID)
}

func TestValidateCommandLine(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateCommandLine(""))
	assert.NoError(t, ValidateCommandLine("systemctl --user restart host"))
	assert.ErrorIs(t, ValidateCommandLine("reload\nrm -rf /"), ErrNewlineInjection)
}

func TestValidateListenAddress(t *testing.T) {
	t.Parallel()

	for _, addr := range []string{"", ":9090", "127.0.0.1:8080", "[::1]:9000"} {
		assert.NoError(t, ValidateListenAddress(addr), addr)
	}
	for _, addr := range []string{"localhost", "localhost:", ":http", ":123456", "host:80\n"} {
		assert.ErrorIs(t, ValidateListenAddress(addr), ErrInvalidAddress, addr)
	}
}
