package service

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]+$`)

func TestGenerateCodeFormat(t *testing.T) {
	code := generateCode("janedoe")

	require.Regexp(t, codePattern, code)
	require.True(t, strings.HasPrefix(code, "JANE"))
}

func TestGenerateCodeStripsNonAlphanumerics(t *testing.T) {
	code := generateCode("j.a-n_e!")

	require.Regexp(t, codePattern, code)
	require.True(t, strings.HasPrefix(code, "JANE"))
}

func TestGenerateCodeFallbackPrefix(t *testing.T) {
	code := generateCode("____")

	require.Regexp(t, codePattern, code)
	require.True(t, strings.HasPrefix(code, "USER"))
}

func TestGenerateCodeVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[generateCode("jane")] = true
	}

	// The random suffix makes collisions within one run vanishingly rare.
	require.Greater(t, len(seen), 1)
}
