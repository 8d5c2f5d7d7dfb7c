package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t testing.TB, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0644)
	if err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "missing.json5"))
	require.NoError(t, err)
	require.Equal(t, "https://c.baobaot.com", cfg.Portal.BaseUrl)
	require.Equal(t, 30*time.Second, cfg.PortalTimeout())
	require.Equal(t, 200*time.Millisecond, cfg.BatchInterval())
	require.Equal(t, 200*time.Millisecond, cfg.BatchMinInterval())
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.NotEmpty(t, cfg.Database.Dsn)
	require.Equal(t, "Asia/Shanghai", cfg.Timezone)
	require.Equal(t, "today", cfg.Daemon.Range)
	require.Equal(t, "default", cfg.Profile)
	require.Empty(t, cfg.Llm.Provider)
}

func TestLoadMergesLocalOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tmsctl.json5"), `{
		// shared settings
		portal: { base_url: "https://tms.example.com", requests_per_second: 2 },
		batch: { interval_ms: 500 },
		database: { driver: "sqlite", dsn: "tms.db" },
	}`)
	writeFile(t, filepath.Join(dir, "tmsctl.local.json5"), `{
		database: { dsn: "local.db" },
		llm: { provider: "openai", model: "gpt-4o-mini" },
	}`)
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(filepath.Join(dir, "tmsctl.json5"))
	require.NoError(t, err)
	require.Equal(t, "https://tms.example.com", cfg.Portal.BaseUrl)
	require.Equal(t, float64(2), cfg.Portal.RequestsPerSecond)
	require.Equal(t, 500*time.Millisecond, cfg.BatchInterval())
	require.Equal(t, "local.db", cfg.Database.Dsn)
	require.Equal(t, "openai", cfg.Llm.Provider)
	require.Equal(t, "sk-env", cfg.Llm.ApiKey)
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "TMS_DB_DSN=from-dotenv.db\nTMS_PROFILE=work\n")
	t.Setenv("TMS_DB_DSN", "")
	t.Setenv("TMS_PROFILE", "")
	os.Unsetenv("TMS_DB_DSN")
	os.Unsetenv("TMS_PROFILE")

	cfg, err := Load(filepath.Join(dir, "missing.json5"), filepath.Join(dir, ".env"))
	require.NoError(t, err)
	require.Equal(t, "from-dotenv.db", cfg.Database.Dsn)
	require.Equal(t, "work", cfg.Profile)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tmsctl.json5"), `{ database: { driver: "mysql", dsn: "x" } }`)

	_, err := Load(filepath.Join(dir, "tmsctl.json5"))
	require.Error(t, err)

	writeFile(t, filepath.Join(dir, "tmsctl.json5"), `{ llm: { provider: "gemini" } }`)
	_, err = Load(filepath.Join(dir, "tmsctl.json5"))
	require.Error(t, err)
}
