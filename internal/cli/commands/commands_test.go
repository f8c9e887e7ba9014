package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/datquest/docquery/internal/cli/config"
	clitestutil "github.com/datquest/docquery/internal/cli/testutil"
	"github.com/datquest/docquery/internal/page"
	"github.com/datquest/docquery/internal/session"
	"github.com/datquest/docquery/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Setup Helpers
// =============================================================================

func testConfig(t *testing.T, backendURL, mode string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.BackendURL = backendURL
	cfg.StatePath = filepath.Join(t.TempDir(), "state.db")
	cfg.OutputFormat = mode
	return cfg
}

func testContext(t *testing.T, cfg *config.Config) context.Context {
	t.Helper()
	ctx := config.WithConfig(context.Background(), cfg)
	return context.WithValue(ctx, config.LoggerKey(), testutil.NewTestLogger(t))
}

// execute runs cmd under a bare root carrying cfg, the way the CLI root does.
func execute(t *testing.T, cfg *config.Config, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	root := &cobra.Command{Use: "docquery", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(cmd)

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{cmd.Name()}, args...))

	err := root.ExecuteContext(testContext(t, cfg))
	return stdout.String(), stderr.String(), err
}

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &v), "output: %s", s)
	return v
}

// =============================================================================
// Command Metadata Tests
// =============================================================================

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewUploadCommand(), "upload <file.pdf>", []string{"company", "model"}},
		{NewCompaniesCommand(), "companies", []string{"current"}},
		{NewModelsCommand(), "models [company]", nil},
		{NewSelectCommand(), "select", nil},
		{NewAskCommand(), "ask <question...>", []string{"company", "model"}},
		{NewSessionCommand(), "session", nil},
		{NewHealthCommand(), "health", nil},
		{NewFilesCommand(), "files", nil},
		{NewRemoveFileCommand(), "remove-file <name>", nil},
		{NewShellCommand(), "shell", nil},
		{NewServeCommand(), "serve", []string{"port", "store", "open"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestSubcommands(t *testing.T) {
	names := func(cmd *cobra.Command) []string {
		var out []string
		for _, c := range cmd.Commands() {
			out = append(out, c.Name())
		}
		return out
	}

	assert.ElementsMatch(t, []string{"company", "model"}, names(NewSelectCommand()))
	assert.ElementsMatch(t, []string{"show", "clear", "list"}, names(NewSessionCommand()))
}

// =============================================================================
// Upload and Ask
// =============================================================================

func TestUploadThenAsk(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	fake.SetAnswer("Rated at 12V")
	cfg := testConfig(t, fake.URL, "json")
	pdf := clitestutil.WriteTestPDF(t, "manual.pdf")

	out, _, err := execute(t, cfg, NewUploadCommand(), pdf, "--company", "Acme", "--model", "X1")
	require.NoError(t, err)

	res := decode(t, out)
	status := res["status"].(map[string]any)
	assert.Equal(t, "PDF uploaded successfully", status["text"])
	assert.Equal(t, "success", status["tone"])
	sess := res["session"].(map[string]any)
	assert.Equal(t, "Acme", sess["company_name"])
	assert.Equal(t, "X1", sess["product_name"])
	assert.Equal(t, "manual.pdf", sess["filename"])

	uploads := fake.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, clitestutil.MinimalPDF(), uploads[0].Content)

	out, _, err = execute(t, cfg, NewAskCommand(), "What", "is", "the", "voltage?")
	require.NoError(t, err)
	assert.Equal(t, "Rated at 12V", decode(t, out)["text"])

	queries := fake.Queries()
	require.Len(t, queries, 1)
	assert.Equal(t, "What is the voltage?", queries[0].Query)
	require.NotNil(t, queries[0].CompanyName)
	require.NotNil(t, queries[0].ProductCode)
	assert.Equal(t, "Acme", *queries[0].CompanyName)
	assert.Equal(t, "X1", *queries[0].ProductCode)
}

func TestUpload_Failures(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		failDetail  string
		wantText    string
		wantUploads int
	}{
		{
			name:     "missing company",
			args:     []string{"--model", "X1"},
			wantText: page.MsgEnterCompany,
		},
		{
			name:     "blank model",
			args:     []string{"--company", "Acme", "--model", "  "},
			wantText: page.MsgEnterCompany,
		},
		{
			name:        "server detail",
			args:        []string{"--company", "Acme", "--model", "X1"},
			failDetail:  "Storage unavailable",
			wantText:    "Storage unavailable",
			wantUploads: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeBackend(t)
			if tt.failDetail != "" {
				fake.FailUploads(tt.failDetail)
			}
			cfg := testConfig(t, fake.URL, "json")
			pdf := clitestutil.WriteTestPDF(t, "manual.pdf")

			out, _, err := execute(t, cfg, NewUploadCommand(), append([]string{pdf}, tt.args...)...)

			require.ErrorIs(t, err, page.ErrActionFailed)
			status := decode(t, out)["status"].(map[string]any)
			assert.Equal(t, tt.wantText, status["text"])
			assert.Equal(t, "error", status["tone"])
			assert.Len(t, fake.Uploads(), tt.wantUploads)
		})
	}
}

func TestUpload_MissingFile(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	cfg := testConfig(t, fake.URL, "json")

	_, _, err := execute(t, cfg, NewUploadCommand(), filepath.Join(t.TempDir(), "nope.pdf"), "-c", "Acme", "-m", "X1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open")
	assert.Empty(t, fake.Uploads())
}

func TestAsk(t *testing.T) {
	t.Run("no company", func(t *testing.T) {
		fake := testutil.NewFakeBackend(t)
		cfg := testConfig(t, fake.URL, "json")

		_, _, err := execute(t, cfg, NewAskCommand(), "hello")

		require.ErrorIs(t, err, errNoCompany)
		assert.Empty(t, fake.Queries())
	})

	t.Run("company flag", func(t *testing.T) {
		fake := testutil.NewFakeBackend(t)
		fake.AddModel("Acme", "X1", "x1.pdf")
		cfg := testConfig(t, fake.URL, "json")

		_, _, err := execute(t, cfg, NewAskCommand(), "--company", "Acme", "hello")
		require.NoError(t, err)

		queries := fake.Queries()
		require.Len(t, queries, 1)
		assert.Equal(t, "Acme", *queries[0].CompanyName)
		assert.Nil(t, queries[0].ProductCode)
	})

	t.Run("unknown model", func(t *testing.T) {
		fake := testutil.NewFakeBackend(t)
		fake.AddModel("Acme", "X1", "x1.pdf")
		cfg := testConfig(t, fake.URL, "json")

		_, _, err := execute(t, cfg, NewAskCommand(), "-c", "Acme", "-m", "Z9", "hello")

		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown model "Z9"`)
		assert.Empty(t, fake.Queries())
	})

	t.Run("server detail", func(t *testing.T) {
		fake := testutil.NewFakeBackend(t)
		fake.AddModel("Acme", "X1", "x1.pdf")
		fake.FailQueries("No document for this model")
		cfg := testConfig(t, fake.URL, "json")

		out, _, err := execute(t, cfg, NewAskCommand(), "-c", "Acme", "hello")

		require.ErrorIs(t, err, page.ErrActionFailed)
		assert.Equal(t, "No document for this model", decode(t, out)["text"])
	})
}

// =============================================================================
// Catalog and Selection
// =============================================================================

func TestCompanies(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	fake.AddModel("Acme", "X1", "x1.pdf")
	fake.AddModel("Globex", "G7", "g7.pdf")
	cfg := testConfig(t, fake.URL, "text")

	_, _, err := execute(t, cfg, NewSelectCommand(), "company", "Globex")
	require.NoError(t, err)

	out, _, err := execute(t, cfg, NewCompaniesCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "  Acme")
	assert.Contains(t, out, "* Globex")
	clitestutil.AssertNoANSI(t, out)

	out, _, err = execute(t, cfg, NewCompaniesCommand(), "--current")
	require.NoError(t, err)
	assert.Equal(t, "Globex", strings.TrimSpace(out))
}

func TestModels(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	id := fake.AddModel("Acme", "X1", "x1.pdf")
	cfg := testConfig(t, fake.URL, "json")

	_, _, err := execute(t, cfg, NewModelsCommand())
	require.ErrorIs(t, err, errNoCompany)

	out, _, err := execute(t, cfg, NewModelsCommand(), "Acme")
	require.NoError(t, err)

	var opts []page.Option
	require.NoError(t, json.Unmarshal([]byte(out), &opts))
	require.Len(t, opts, 1)
	assert.Equal(t, page.Option{Value: "X1", Label: "X1 (x1.pdf)", RecordID: id, Filename: "x1.pdf"}, opts[0])
}

func TestSelect(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	id := fake.AddModel("Acme", "X1", "x1.pdf")
	cfg := testConfig(t, fake.URL, "json")

	_, _, err := execute(t, cfg, NewSelectCommand(), "model", "X1")
	require.ErrorIs(t, err, errNoCompany)

	_, _, err = execute(t, cfg, NewSelectCommand(), "company", "Initech")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown company "Initech"`)

	out, _, err := execute(t, cfg, NewSelectCommand(), "company", "Acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", decode(t, out)["company_name"])

	_, _, err = execute(t, cfg, NewSelectCommand(), "model", "Z9")
	require.Error(t, err)

	out, _, err = execute(t, cfg, NewSelectCommand(), "model", id)
	require.NoError(t, err)
	sess := decode(t, out)
	assert.Equal(t, "X1", sess["product_name"])
	assert.Equal(t, id, sess["db_id"])
	assert.Equal(t, "x1.pdf", sess["filename"])

	out, _, err = execute(t, cfg, NewSelectCommand(), "company", "")
	require.NoError(t, err)
	assert.Equal(t, "", decode(t, out)["company_name"])
}

// =============================================================================
// Session
// =============================================================================

func TestSession(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	fake.AddModel("Acme", "X1", "x1.pdf")
	cfg := testConfig(t, fake.URL, "text")

	_, _, err := execute(t, cfg, NewSelectCommand(), "company", "Acme")
	require.NoError(t, err)

	out, _, err := execute(t, cfg, NewSessionCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "Session:")
	assert.Contains(t, out, "default")
	assert.Contains(t, out, "Acme")

	out, _, err = execute(t, cfg, NewSessionCommand(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "default")

	_, _, err = execute(t, cfg, NewSessionCommand(), "clear")
	require.NoError(t, err)

	cfg.OutputFormat = "json"
	out, _, err = execute(t, cfg, NewSessionCommand(), "show")
	require.NoError(t, err)
	assert.Equal(t, "", decode(t, out)["company_name"])
}

func TestSession_Isolation(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	fake.AddModel("Acme", "X1", "x1.pdf")
	cfg := testConfig(t, fake.URL, "json")

	_, _, err := execute(t, cfg, NewSelectCommand(), "company", "Acme")
	require.NoError(t, err)

	other := *cfg
	other.Session = "other"
	out, _, err := execute(t, &other, NewSessionCommand(), "show")
	require.NoError(t, err)
	assert.Equal(t, "other", decode(t, out)["session"])
	assert.Equal(t, "", decode(t, out)["company_name"])
}

// =============================================================================
// Remote endpoints
// =============================================================================

func TestRemoteCommands(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	fake.AddModel("Acme", "X1", "x1.pdf")
	cfg := testConfig(t, fake.URL, "json")

	out, _, err := execute(t, cfg, NewHealthCommand())
	require.NoError(t, err)
	assert.Equal(t, "ok", decode(t, out)["status"])

	out, _, err = execute(t, cfg, NewFilesCommand())
	require.NoError(t, err)
	assert.JSONEq(t, `["x1.pdf"]`, out)

	_, _, err = execute(t, cfg, NewRemoveFileCommand(), "nope.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "File not found")

	out, _, err = execute(t, cfg, NewRemoveFileCommand(), "x1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "File removed successfully", decode(t, out)["message"])
}

func TestHealth_Unreachable(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1", "text")

	_, _, err := execute(t, cfg, NewHealthCommand())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "is unhealthy")
}

// =============================================================================
// Shell
// =============================================================================

func newTestShell(t *testing.T, backendURL string) (*shell, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cfg := testConfig(t, backendURL, "text")

	cmd := &cobra.Command{}
	cmd.SetContext(testContext(t, cfg))
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	cc, cleanup, err := NewCommandContext(cmd)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	return &shell{cc: cc, out: &stdout, err: &stderr}, &stdout, &stderr
}

func TestShell_HandleLine(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	fake.AddModel("Acme Co", "X1", "x1.pdf")
	fake.SetAnswer("Hold reset for 5s")
	sh, stdout, stderr := newTestShell(t, fake.URL)
	ctx := context.Background()

	assert.False(t, sh.handleLine(ctx, "what now?"))
	assert.Contains(t, stderr.String(), errNoCompany.Error())
	stderr.Reset()

	assert.False(t, sh.handleLine(ctx, `.company "Acme Co"`))
	assert.Contains(t, stdout.String(), "x1.pdf")
	assert.Equal(t, "Acme Co> ", sh.prompt(ctx))

	assert.False(t, sh.handleLine(ctx, ".model X1"))
	assert.Equal(t, "Acme Co/X1> ", sh.prompt(ctx))

	stdout.Reset()
	assert.False(t, sh.handleLine(ctx, "how do I reset it?"))
	assert.Contains(t, stdout.String(), "Hold reset for 5s")

	assert.False(t, sh.handleLine(ctx, ".model Z9"))
	assert.Contains(t, stderr.String(), `unknown model "Z9"`)

	assert.False(t, sh.handleLine(ctx, ".upload only-one-arg"))
	assert.Contains(t, stderr.String(), "Usage: .upload")

	assert.False(t, sh.handleLine(ctx, ".frob"))
	assert.Contains(t, stderr.String(), "Unknown command: .frob")

	assert.False(t, sh.handleLine(ctx, "   "))
	assert.True(t, sh.handleLine(ctx, ".quit"))
	assert.True(t, sh.handleLine(ctx, ".EXIT"))

	queries := fake.Queries()
	require.Len(t, queries, 1)
	assert.Equal(t, "Acme Co", *queries[0].CompanyName)
	assert.Equal(t, "X1", *queries[0].ProductCode)
}

func TestShell_Upload(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	sh, stdout, stderr := newTestShell(t, fake.URL)
	ctx := context.Background()
	pdf := clitestutil.WriteTestPDF(t, "manual.pdf")

	assert.False(t, sh.handleLine(ctx, `.upload "`+pdf+`" Acme X1`))

	assert.Empty(t, stderr.String())
	assert.Contains(t, stdout.String(), "PDF uploaded successfully")
	assert.Equal(t, session.Context{Company: "Acme", ModelName: "X1", ModelID: sh.cc.Controller.Session(ctx).ModelID, Filename: "manual.pdf"},
		sh.cc.Controller.Session(ctx))
	assert.Equal(t, "Acme/X1> ", sh.prompt(ctx))
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{line: ".company Acme", want: []string{".company", "Acme"}},
		{line: `.company "Acme Co"`, want: []string{".company", "Acme Co"}},
		{line: `.upload "a b.pdf"  Acme	X1`, want: []string{".upload", "a b.pdf", "Acme", "X1"}},
		{line: `.company ""`, want: []string{".company", ""}},
		{line: `.company "Acme`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := splitArgs(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHistoryPath(t *testing.T) {
	assert.Equal(t, "", historyPath(""))
	assert.Equal(t, "", historyPath(":memory:"))
	assert.Equal(t, filepath.Join("/tmp/dq", "shell_history"), historyPath("/tmp/dq/state.db"))
}

// =============================================================================
// Serve helpers
// =============================================================================

func TestOpenUIStore(t *testing.T) {
	ctx := context.Background()

	mem, err := openUIStore(ctx, config.StoreMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &session.MemoryStore{}, mem)
	require.NoError(t, mem.Close())

	db, err := openUIStore(ctx, config.StoreSQLite, filepath.Join(t.TempDir(), "ui.db"))
	require.NoError(t, err)
	assert.IsType(t, &session.SQLiteStore{}, db)
	require.NoError(t, db.Close())

	_, err = openUIStore(ctx, "redis", "")
	require.Error(t, err)
}

func TestGenerateSessionSecret(t *testing.T) {
	a, err := generateSessionSecret()
	require.NoError(t, err)
	b, err := generateSessionSecret()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
