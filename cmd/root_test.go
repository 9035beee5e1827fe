package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/contact-crawler/internal/config"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	body := "output:\n  dir: " + filepath.Join(dir, "out") + "\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRootRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	require.True(t, names["run"])
	require.True(t, names["collect"])
	require.True(t, names["resolve"])
	require.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestResolveEmptyCheckpointWritesNoContacts(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	links := filepath.Join(dir, "links.csv")
	require.NoError(t, os.WriteFile(links, []byte("url\n"), 0o600))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"resolve", "--config", cfgPath, "--links", links})
	require.NoError(t, root.ExecuteContext(context.Background()))

	require.NoFileExists(t, filepath.Join(dir, "out", "emails_wine.csv"))
	require.Contains(t, out.String(), "0 contacts")
}

func TestResolveMissingCheckpointFails(t *testing.T) {
	dir := t.TempDir()
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"resolve", "--config", writeConfig(t, dir), "--links", filepath.Join(dir, "missing.csv")})
	require.Error(t, root.ExecuteContext(context.Background()))
}

func TestBadConfigFails(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"collect", "--config", filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, root.ExecuteContext(context.Background()))
}

func TestDirectoryHosts(t *testing.T) {
	var cfg config.Config
	cfg.Scraper.BaseURL = "https://www.europages.co.uk"
	cfg.Scraper.StartURL = "://bad"
	require.Equal(t, []string{"www.europages.co.uk"}, directoryHosts(cfg))
}
