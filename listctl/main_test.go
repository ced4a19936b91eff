package main

import (
	"testing"

	"github.com/docopt/docopt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestlist/client"
)

func TestContainerArgs(t *testing.T) {
	c := &cli{opts: docopt.Opts{"<a>": "7", "<b>": "roots", "<c>": "list-3", "<d>": "sublist-3", "<e>": "0"}}

	for key, want := range map[string]int64{"<a>": 7, "<b>": client.Roots, "<c>": 3} {
		got, err := c.container(key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}
	for _, key := range []string{"<d>", "<e>", "<missing>"} {
		_, err := c.container(key)
		assert.Error(t, err, key)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("NESTLIST_TOKEN", "")

	assert.Empty(t, loadToken())
	require.NoError(t, saveToken("abc.def"))
	assert.Equal(t, "abc.def", loadToken())

	t.Setenv("NESTLIST_TOKEN", "from-env")
	assert.Equal(t, "from-env", loadToken())
}
