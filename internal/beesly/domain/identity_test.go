package domain_test

import (
	"strings"
	"testing"

	"github.com/bincyber/beesly/internal/beesly/domain"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	valid := []string{
		"vagrant",
		"ab",
		"alice.smith",
		"bob-jones",
		"c_3po",
		"user@example.com",
		"Zz",
		"a" + strings.Repeat("b", 32), // 33 chars, upper bound
	}
	for _, name := range valid {
		t.Run("valid "+name, func(t *testing.T) {
			require.True(t, domain.ValidateUsername(name))
		})
	}

	invalid := map[string]string{
		"empty":                    "",
		"single char":              "a",
		"too long":                 "a" + strings.Repeat("b", 33),
		"leading digit":            "1admin",
		"leading dash":             "-admin",
		"embedded space":           "bad user!",
		"exclamation":              "user!",
		"uppercase after first":    "vAgrant",
		"slash":                    "a/etc/passwd",
		"shell metacharacter":      "a;reboot",
		"unicode":                  "ユーザー",
		"trailing newline":         "vagrant\n",
		"original test suite case": "vagrant d@.-0z",
	}
	for label, name := range invalid {
		t.Run("invalid "+label, func(t *testing.T) {
			require.False(t, domain.ValidateUsername(name))
		})
	}
}

func TestSanitizeUsername(t *testing.T) {
	t.Run("passes clean input through", func(t *testing.T) {
		require.Equal(t, "vagrant", domain.SanitizeUsername("vagrant"))
	})

	t.Run("escapes markup", func(t *testing.T) {
		escaped := domain.SanitizeUsername(`<script>alert("x")</script>`)
		require.NotContains(t, escaped, "<")
		require.NotContains(t, escaped, ">")
	})

	t.Run("escaped markup fails validation", func(t *testing.T) {
		require.False(t, domain.ValidateUsername(domain.SanitizeUsername("<b>bob</b>")))
		require.False(t, domain.ValidateUsername(domain.SanitizeUsername(`a"onmouseover=`)))
	})
}
