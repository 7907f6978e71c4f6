package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCloneCommand(t *testing.T) {
	cmd := NewCloneCommand()

	assert.Equal(t, "spclone", cmd.Name())
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)

	for _, flag := range []string{"directory", "keep-root", "branch", "force", "dry-run", "timeout", "no-cache", "refresh-cache", "no-fallback", "no-progress"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "missing flag %q", flag)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))
}

func TestNewCloneCommand_ArgValidation(t *testing.T) {
	cmd := NewCloneCommand()

	assert.Error(t, cmd.Args(cmd, []string{}))
	assert.NoError(t, cmd.Args(cmd, []string{"octocat/hello-world"}))
	assert.NoError(t, cmd.Args(cmd, []string{"octocat/hello-world", "dest"}))
	assert.Error(t, cmd.Args(cmd, []string{"a", "b", "c"}))
}

func TestNewInstallCommand(t *testing.T) {
	cmd := NewInstallCommand()

	assert.Equal(t, "spinstall", cmd.Name())
	assert.NotNil(t, cmd.Flags().Lookup("python"))
	assert.NotNil(t, cmd.Flags().Lookup("install-timeout"))
	assert.NotNil(t, cmd.Flags().Lookup("branch"))

	assert.Error(t, cmd.Args(cmd, []string{}))
	assert.NoError(t, cmd.Args(cmd, []string{"octocat/hello-world"}))
	assert.Error(t, cmd.Args(cmd, []string{"a", "b"}))
}

func TestSubcommands(t *testing.T) {
	for _, root := range []string{"clone", "install"} {
		cmd := NewCloneCommand()
		if root == "install" {
			cmd = NewInstallCommand()
		}

		names := make(map[string]bool)
		for _, sub := range cmd.Commands() {
			names[sub.Name()] = true
		}

		assert.True(t, names["version"], "%s is missing the version subcommand", root)
		assert.True(t, names["doctor"], "%s is missing the doctor subcommand", root)
		assert.True(t, names["config"], "%s is missing the config subcommand", root)
	}
}

func TestCheckInterpreter(t *testing.T) {
	orig := execLookPath
	t.Cleanup(func() { execLookPath = orig })

	execLookPath = func(name string) (string, error) {
		if name == "python3" {
			return "/usr/bin/python3", nil
		}
		return "", errors.New("not found")
	}
	assert.Equal(t, "/usr/bin/python3", checkInterpreter())

	execLookPath = func(string) (string, error) {
		return "", errors.New("not found")
	}
	assert.Empty(t, checkInterpreter())
}

func TestCheckWritePermissions(t *testing.T) {
	// Runs in the test's working directory, which is writable
	require.True(t, checkWritePermissions())
}
