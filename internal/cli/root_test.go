package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daethyra/ExecEye/internal/cli"
	"github.com/Daethyra/ExecEye/internal/search"
)

type stubProvider struct {
	calls atomic.Int32
	mu    sync.Mutex
	seen  []search.Request
}

func (p *stubProvider) Search(_ context.Context, req search.Request) ([]search.Record, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.seen = append(p.seen, req)
	p.mu.Unlock()

	switch req.Subject {
	case "Acme":
		if req.Intent == search.IntentNews {
			return []search.Record{{Title: "Acme beats estimates", Link: "https://news.example/acme"}}, nil
		}
		return []search.Record{
			{Title: "Jane Doe - CEO", Link: "https://acme.example/jane", Snippet: "Jane leads Acme."},
			{Title: "Acme Board of Directors", Link: "https://acme.example/board"},
		}, nil
	case "Globex":
		return []search.Record{{Title: "Hank Scorpio - CEO"}}, nil
	default:
		return nil, nil
	}
}

// testEnv isolates configuration and returns a database path.
func testEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("EXECEYE_HOME", t.TempDir())
	for _, name := range []string{"CACHE_SIZE", "EXECEYE_DB_PATH", "EXECEYE_POOL_SIZE", "EXECEYE_LOG_FILE", "EXECEYE_LOG_LEVEL"} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
	t.Setenv("SERP_API_KEY", "sk-test-0123456789")
	t.Setenv("EXECEYE_LOG_LEVEL", "error")
	return filepath.Join(t.TempDir(), "results.db")
}

func execute(t *testing.T, provider *stubProvider, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := cli.NewRootCmd("1.0.0",
		cli.WithProvider(provider),
		cli.WithDotEnvPath(filepath.Join(t.TempDir(), ".env")))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestSearchText(t *testing.T) {
	db := testEnv(t)
	provider := &stubProvider{}

	out, _, err := execute(t, provider, "", "search", "Acme", "Nobody", "--db", db, "--concurrency", "1")
	require.NoError(t, err)

	assert.Equal(t, "Executives found for Acme:\n"+
		"  - Jane Doe - CEO\n"+
		"    Link: https://acme.example/jane\n"+
		"    Snippet: Jane leads Acme.\n"+
		"  - Acme Board of Directors\n"+
		"    Link: https://acme.example/board\n"+
		"    Snippet: N/A\n"+
		"No executives found for Nobody.\n", out)
	assert.Equal(t, "Acme executives OR Acme board of directors", provider.seen[0].Query)
}

func TestSearchJSONDeduplicatesRepeatedNames(t *testing.T) {
	db := testEnv(t)
	provider := &stubProvider{}

	out, _, err := execute(t, provider, "", "search", "Acme", "acme", " ACME ", "Globex", "--db", db, "-o", "json", "--concurrency", "1")
	require.NoError(t, err)

	var results []struct {
		Company string          `json:"company"`
		Key     string          `json:"key"`
		Source  string          `json:"source"`
		Records []search.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 4)

	assert.Equal(t, "Acme", results[0].Company)
	assert.Equal(t, "provider", results[0].Source)
	assert.Equal(t, "cache", results[1].Source)
	assert.Equal(t, "cache", results[2].Source)
	assert.Equal(t, results[0].Key, results[2].Key)
	assert.Equal(t, results[0].Records, results[1].Records)
	assert.Equal(t, "Globex", results[3].Company)
	assert.Equal(t, int32(2), provider.calls.Load())
}

func TestSearchNewsIntent(t *testing.T) {
	db := testEnv(t)

	out, _, err := execute(t, &stubProvider{}, "", "search", "Acme", "--intent", "news", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "News found for Acme:")
	assert.Contains(t, out, "Acme beats estimates")
}

func TestSearchFlagErrors(t *testing.T) {
	db := testEnv(t)

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"no company", []string{"search"}, "requires at least 1 arg"},
		{"bad intent", []string{"search", "Acme", "--intent", "gossip"}, `unknown intent "gossip"`},
		{"bad output", []string{"search", "Acme", "-o", "xml"}, `unknown output format "xml"`},
		{"bad concurrency", []string{"search", "Acme", "--concurrency", "0"}, "--concurrency must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, &stubProvider{}, "", append(tt.args, "--db", db)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
			assert.Equal(t, cli.ExitFailure, cli.ExitCode(err))
		})
	}
}

func TestSearchBlankCompanyFails(t *testing.T) {
	db := testEnv(t)
	provider := &stubProvider{}

	_, errOut, err := execute(t, provider, "", "search", "  ", "--db", db)
	require.Error(t, err)
	assert.Equal(t, cli.ExitFailure, cli.ExitCode(err))
	assert.Contains(t, errOut, "Company name cannot be empty.")
	assert.Zero(t, provider.calls.Load())
}

func TestHistoryAfterSearch(t *testing.T) {
	db := testEnv(t)
	provider := &stubProvider{}

	_, _, err := execute(t, provider, "", "search", "Acme", "Globex", "--db", db, "--concurrency", "1")
	require.NoError(t, err)

	out, _, err := execute(t, provider, "", "history", "acme", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Jane Doe - CEO")
	assert.NotContains(t, out, "Hank Scorpio")

	out, _, err = execute(t, provider, "", "history", "--db", db, "-o", "json", "--limit", "1")
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Hank Scorpio - CEO", rows[0]["title"])
}

func TestHistoryDoesNotNeedAPIKey(t *testing.T) {
	db := testEnv(t)
	t.Setenv("SERP_API_KEY", "")
	require.NoError(t, os.Unsetenv("SERP_API_KEY"))

	var out, errOut bytes.Buffer
	cmd := cli.NewRootCmd("1.0.0", cli.WithDotEnvPath(filepath.Join(t.TempDir(), ".env")))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"history", "--db", db})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "No stored results.\n", out.String())
}

func TestREPLThroughRoot(t *testing.T) {
	db := testEnv(t)
	provider := &stubProvider{}

	out, _, err := execute(t, provider, "Globex\nglobex\nquit\n", "--db", db)
	require.NoError(t, err)

	prompt := "Enter the company name to search for leadership: "
	block := "Executives found for %s:\n  - Hank Scorpio - CEO\n    Link: N/A\n    Snippet: N/A\n"
	assert.Equal(t,
		prompt+strings.Replace(block, "%s", "Globex", 1)+
			prompt+strings.Replace(block, "%s", "globex", 1)+
			prompt+"Exiting program. Goodbye!\n",
		out)
	assert.Equal(t, int32(1), provider.calls.Load(), "the second lookup is served from cache")
}

func TestMissingAPIKeyIsConfigurationError(t *testing.T) {
	db := testEnv(t)
	t.Setenv("SERP_API_KEY", "")
	require.NoError(t, os.Unsetenv("SERP_API_KEY"))

	cmd := cli.NewRootCmd("1.0.0", cli.WithDotEnvPath(filepath.Join(t.TempDir(), ".env")))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"search", "Acme", "--db", db})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERP_API_KEY")
	assert.Equal(t, cli.ExitConfiguration, cli.ExitCode(err))
}

func TestInvalidCacheSizeFlag(t *testing.T) {
	db := testEnv(t)

	_, _, err := execute(t, &stubProvider{}, "", "search", "Acme", "--db", db, "--cache-size", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.capacity")
	assert.Equal(t, cli.ExitConfiguration, cli.ExitCode(err))
}

func TestConfigCommands(t *testing.T) {
	testEnv(t)

	out, _, err := execute(t, &stubProvider{}, "", "config", "show", "--cache-size", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "capacity: 42")
	assert.Contains(t, out, "****6789")
	assert.NotContains(t, out, "sk-test-0123456789")

	out, _, err = execute(t, &stubProvider{}, "", "config", "validate")
	require.NoError(t, err)
	assert.Equal(t, "Configuration is valid.\n", out)

	_, _, err = execute(t, &stubProvider{}, "", "config", "validate", "--pool-size", "0")
	require.Error(t, err)
	assert.Equal(t, cli.ExitConfiguration, cli.ExitCode(err))
}

func TestConfigFileFlag(t *testing.T) {
	testEnv(t)
	path := filepath.Join(t.TempDir(), "execeye.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  capacity: 7\n"), 0600))

	out, _, err := execute(t, &stubProvider{}, "", "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "capacity: 7")

	_, _, err = execute(t, &stubProvider{}, "", "config", "show", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, cli.ExitConfiguration, cli.ExitCode(err))
}

func TestVersionCommand(t *testing.T) {
	testEnv(t)

	out, _, err := execute(t, &stubProvider{}, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "commit:")
}
