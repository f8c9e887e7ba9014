package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/datquest/docquery/internal/page"
	"github.com/spf13/cobra"
)

// NewShellCommand creates the shell command.
func NewShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive question shell",
		Long: `Start an interactive shell. Lines are sent as questions; lines starting
with a dot are commands (.help lists them). Selections are stored in the
session like the other commands.`,
		Args: cobra.NoArgs,
		RunE: runShell,
	}
}

// shell holds one interactive session's dependencies.
type shell struct {
	cc  *CommandContext
	out io.Writer
	err io.Writer
}

func runShell(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := commandContext(cmd)
	sh := &shell{cc: cc, out: cmd.OutOrStdout(), err: cmd.ErrOrStderr()}
	if err := cc.Controller.Bootstrap(ctx); err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          sh.prompt(ctx),
		HistoryFile:     historyPath(cc.Cfg.StatePath),
		AutoComplete:    sh.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(sh.out, "docquery shell (backend: %s, session: %s)\n", cc.Client.BaseURL(), cc.Session.ID())
	_, _ = fmt.Fprintln(sh.out, "Type a question, .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(sh.out)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			break
		}

		if quit := sh.handleLine(ctx, line); quit {
			break
		}
		rl.SetPrompt(sh.prompt(ctx))
	}
	return nil
}

// historyPath keeps the shell history next to the session database.
func historyPath(statePath string) string {
	if statePath == "" || statePath == ":memory:" {
		return ""
	}
	return filepath.Join(filepath.Dir(statePath), "shell_history")
}

func (sh *shell) prompt(ctx context.Context) string {
	sc := sh.cc.Controller.Session(ctx)
	switch {
	case sc.Company != "" && sc.ModelName != "":
		return fmt.Sprintf("%s/%s> ", sc.Company, sc.ModelName)
	case sc.Company != "":
		return sc.Company + "> "
	default:
		return "docquery> "
	}
}

// handleLine runs one input line and reports whether the shell should exit.
func (sh *shell) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, ".") {
		sh.ask(ctx, line)
		return false
	}

	args, err := splitArgs(line)
	if err != nil {
		sh.errorf("%v", err)
		return false
	}
	ctrl := sh.cc.Controller
	r := sh.cc.Renderer

	switch strings.ToLower(args[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		printShellHelp(sh.out)

	case ".upload":
		if len(args) != 4 {
			sh.errorf("Usage: .upload <file.pdf> <company> <model>")
			return false
		}
		sh.upload(ctx, args[1], args[2], args[3])

	case ".companies":
		ctrl.RefreshCompanies(ctx)
		sh.report(renderDropdown(r, "Companies", ctrl.Snapshot().Companies, false, "(no companies)"))

	case ".company":
		name := ""
		if len(args) > 1 {
			name = strings.Join(args[1:], " ")
		}
		sh.report(ctrl.OnCompanySelected(ctx, name))
		sh.report(renderDropdown(r, "Models", ctrl.Snapshot().Models, true, "(no models)"))

	case ".models":
		company := ctrl.Session(ctx).Company
		if company == "" {
			sh.errorf("%v", errNoCompany)
			return false
		}
		ctrl.RefreshModels(ctx, company)
		sh.report(renderDropdown(r, "Models for "+company, ctrl.Snapshot().Models, true, "(no models)"))

	case ".model":
		if len(args) < 2 {
			sh.errorf("Usage: .model <model|record-id>")
			return false
		}
		key := strings.Join(args[1:], " ")
		if _, ok := ctrl.Snapshot().Models.Find(key); !ok {
			sh.errorf("unknown model %q (run .models)", key)
			return false
		}
		sh.report(ctrl.OnModelSelected(ctx, key))

	case ".session":
		sh.report(renderSession(r, sh.cc.Session.ID(), ctrl.Session(ctx)))

	default:
		sh.errorf("Unknown command: %s (type .help for commands)", args[0])
	}
	return false
}

func (sh *shell) ask(ctx context.Context, question string) {
	ctrl := sh.cc.Controller
	if err := ctrl.HandleQuery(ctx, page.QueryForm{Question: question}); err != nil {
		if errors.Is(err, page.ErrControlDisabled) {
			sh.errorf("%v", errNoCompany)
			return
		}
		sh.errorf("%v", err)
		return
	}
	sh.report(renderMessage(sh.cc.Renderer, ctrl.Snapshot().Output))
}

func (sh *shell) upload(ctx context.Context, path, company, model string) {
	f, err := os.Open(path) //nolint:gosec // user-supplied upload path
	if err != nil {
		sh.errorf("failed to open %s: %v", path, err)
		return
	}
	defer func() { _ = f.Close() }()

	ctrl := sh.cc.Controller
	err = ctrl.HandleUpload(ctx, page.UploadForm{
		File:    &page.FileInput{Name: filepath.Base(path), Content: f},
		Company: company,
		Model:   model,
	})
	if err != nil {
		sh.errorf("%v", err)
		return
	}
	sh.report(renderMessage(sh.cc.Renderer, ctrl.Snapshot().UploadStatus))
}

func (sh *shell) report(err error) {
	if err != nil {
		sh.errorf("%v", err)
	}
}

func (sh *shell) errorf(format string, a ...any) {
	_, _ = fmt.Fprintf(sh.err, "Error: "+format+"\n", a...)
}

func (sh *shell) completer() *readline.PrefixCompleter {
	companies := func(string) []string {
		ctrl := sh.cc.Controller
		names := make([]string, 0)
		for _, o := range ctrl.Snapshot().Companies.Choices() {
			names = append(names, o.Value)
		}
		return names
	}
	models := func(string) []string {
		names := make([]string, 0)
		for _, o := range sh.cc.Controller.Snapshot().Models.Choices() {
			names = append(names, o.Value)
		}
		return names
	}

	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".upload"),
		readline.PcItem(".companies"),
		readline.PcItem(".company", readline.PcItemDynamic(companies)),
		readline.PcItem(".models"),
		readline.PcItem(".model", readline.PcItemDynamic(models)),
		readline.PcItem(".session"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}

func printShellHelp(w io.Writer) {
	help := `
Commands:
  .help                               Show this help message
  .upload <file.pdf> <company> <model> Upload a document and select it
  .companies                          List companies
  .company [name]                     Select a company (no name clears it)
  .models                             List models of the selected company
  .model <model|record-id>            Select a model
  .session                            Show the session
  .quit / .exit                       Exit the shell

Tips:
  - Any other line is sent as a question
  - Quote arguments that contain spaces: .upload "a b.pdf" "Acme Co" X1
  - Tab completion works for companies and models
`
	_, _ = fmt.Fprintln(w, help)
}

// splitArgs splits a command line on whitespace, honouring double quotes.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case !inQuote && (r == ' ' || r == '\t'):
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if inQuote {
		return nil, errors.New("unterminated quote")
	}
	if started {
		args = append(args, cur.String())
	}
	return args, nil
}
