package commands

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/glitch-codes/winback/internal/config"
)

func TestRunConfigList(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	config.Init()

	var buf bytes.Buffer
	configListCmd.SetOut(&buf)
	require.NoError(t, runConfigList(configListCmd, nil))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 1, got["version"])
	assert.Contains(t, got, "destination")
	assert.Contains(t, got, "limit_downloads")
}

func TestRunConfigGet_NotSet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	var buf bytes.Buffer
	configGetCmd.SetOut(&buf)
	require.NoError(t, runConfigGet(configGetCmd, []string{"folders"}))
	assert.Equal(t, "not set\n", buf.String())
}

func TestRunConfigSet_UnknownKey(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	configSetCmd.SetOut(new(bytes.Buffer))
	err := runConfigSet(configSetCmd, []string{"nope", "value"})
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Desktop", "Documents"}, splitList("Desktop, Documents"))
	assert.Equal(t, []string{"Desktop"}, splitList("Desktop,,"))
	assert.Nil(t, splitList(""))
}
