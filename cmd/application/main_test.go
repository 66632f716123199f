package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validArgs() []string {
	return []string{
		"-config", "/etc/reviewsync/config.yaml",
		"-table", "reviews",
		"-notify-url", "https://hooks.example.com/reviews",
	}
}

func TestParseFlags_Valid(t *testing.T) {
	flags, err := parseFlags(validArgs())
	require.NoError(t, err)
	assert.Equal(t, "/etc/reviewsync/config.yaml", flags.ConfigPath)
	assert.Equal(t, "reviews", flags.Table)
	assert.Equal(t, "https://hooks.example.com/reviews", flags.NotifyURL)
	assert.Empty(t, flags.MetricsAddr)
}

func TestParseFlags_MissingRequired(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"no config", []string{"-table", "reviews", "-notify-url", "u"}, "-config"},
		{"no table", []string{"-config", "c", "-notify-url", "u"}, "-table"},
		{"no notify url", []string{"-config", "c", "-table", "t"}, "-notify-url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseFlags(tc.args)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestParseFlags_UnknownFlag(t *testing.T) {
	_, err := parseFlags(append(validArgs(), "-definitely-unknown"))
	assert.Error(t, err)
}

func TestParseFlags_TrailingArguments(t *testing.T) {
	_, err := parseFlags(append(validArgs(), "stray"))
	assert.ErrorContains(t, err, "unexpected arguments")
}
