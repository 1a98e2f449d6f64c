package subcmd

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	mods := []Mod{{Name: "run"}, {Name: "query"}}
	m, err := Parse("query", mods)
	require.NoError(t, err)
	assert.Equal(t, "query", m.Name)

	_, err = Parse("", mods)
	assert.Error(t, err)
	_, err = Parse("fly", mods)
	assert.True(t, errors.IsNotFound(err))
	assert.Panics(t, func() { _, _ = Parse("x", []Mod{{}}) })
}
