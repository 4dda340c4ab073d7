package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
search:
  keywords: ["golang developer"]
  candidates:
    - id: acct-1
      credential_ref: profile-1
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, 2, cfg.Scheduler.Concurrency)
	require.Equal(t, "csv", cfg.Storage.Provider)
	require.Equal(t, "file", cfg.Processed.Provider)
	require.Equal(t, "static", cfg.JobSource.Provider)
	require.Equal(t, 3, cfg.Retry.MaxAttempts)
	require.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	require.Equal(t, "past-24h", cfg.Search.DateWindow)
	require.True(t, cfg.Browser.Headless)
}

func TestLoadFullFile(t *testing.T) {
	path := writeConfig(t, `
development: true
dry_run: true
scheduler:
  concurrency: 4
  max_contacts_per_run: 50
search:
  keywords: ["golang", "python"]
  candidates:
    - id: acct-1
      credential_ref: profile-1
  coverage: 2
  date_window: past-week
  sort_by: relevance
storage:
  provider: postgres
  postgres:
    conn_string: postgres://localhost/leads
  own_emails: ["me@mycorp.com"]
processed:
  provider: redis
  redis:
    addr: localhost:6379
telegram:
  enabled: true
  token: bot-token
  chat_id: 12345
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.True(t, cfg.Development)
	require.True(t, cfg.DryRun)
	require.Equal(t, 4, cfg.Scheduler.Concurrency)
	require.Equal(t, 50, cfg.Scheduler.MaxContactsPerRun)
	require.Equal(t, []string{"golang", "python"}, cfg.Search.Keywords)
	require.Equal(t, "postgres://localhost/leads", cfg.Storage.Postgres.ConnString)
	require.Equal(t, "localhost:6379", cfg.Processed.Redis.Addr)
	require.Equal(t, int64(12345), cfg.Telegram.ChatID)
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "static source without keywords",
			content: `
search:
  candidates:
    - id: acct-1
`,
			wantErr: "search.keywords",
		},
		{
			name: "static source without candidates",
			content: `
search:
  keywords: ["golang"]
`,
			wantErr: "search.candidates",
		},
		{
			name: "postgres without conn string",
			content: `
storage:
  provider: postgres
search:
  keywords: ["golang"]
  candidates:
    - id: acct-1
`,
			wantErr: "storage.postgres.conn_string",
		},
		{
			name: "unknown storage provider",
			content: `
storage:
  provider: s3
search:
  keywords: ["golang"]
  candidates:
    - id: acct-1
`,
			wantErr: "unknown storage provider",
		},
		{
			name: "backend source without base url",
			content: `
job_source:
  provider: backend
`,
			wantErr: "backend.base_url",
		},
		{
			name: "telegram enabled without token",
			content: `
search:
  keywords: ["golang"]
  candidates:
    - id: acct-1
telegram:
  enabled: true
`,
			wantErr: "telegram.token",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("LEADHARVEST_SCHEDULER_CONCURRENCY", "7")

	path := writeConfig(t, `
search:
  keywords: ["golang"]
  candidates:
    - id: acct-1
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Scheduler.Concurrency)
}
