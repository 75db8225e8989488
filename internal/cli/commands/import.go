package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mgb22/chatbotjourney/internal/cli/output"
	"github.com/mgb22/chatbotjourney/internal/source"
	"github.com/mgb22/chatbotjourney/internal/source/file"
	"github.com/mgb22/chatbotjourney/internal/source/sqlite"
)

// ImportOptions holds options for the import command.
type ImportOptions struct {
	Store string
	List  bool
	Limit int
}

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	opts := &ImportOptions{}

	cmd := &cobra.Command{
		Use:   "import [file.csv|-]",
		Short: "Load chatbot event logs into the local SQLite store",
		Long: `Import per-session event logs into the local SQLite event store.

The CSV needs session_id, seq and event_id columns, in any order. Steps
already stored for the same session and position are replaced.

When source.type is sqlite the configured source path is the store;
otherwise --store selects it.`,
		Example: `  # Import an export
  journey import events.csv

  # From stdin
  cat events.csv | journey import -

  # Show recent imports
  journey import --list`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.List {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.List {
				return runImportList(cmd, opts)
			}
			return runImport(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "", "Store path when the source is not sqlite (default: "+sqlite.DefaultPath+")")
	cmd.Flags().BoolVar(&opts.List, "list", false, "List recent imports instead of importing")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "Imports to show with --list")

	return cmd
}

// storePath picks the store the command writes to.
func storePath(cmdCtx *CommandContext, opts *ImportOptions) string {
	if opts.Store != "" {
		return opts.Store
	}
	if cmdCtx.Cfg.Source.Type == "sqlite" && cmdCtx.Cfg.Source.Path != "" {
		return cmdCtx.Cfg.Source.Path
	}
	return sqlite.DefaultPath
}

func openStore(cmd *cobra.Command, cmdCtx *CommandContext, path string) (*sqlite.Store, error) {
	store := sqlite.New(cmdCtx.Logger)
	if err := store.Open(cmd.Context(), source.Config{Type: "sqlite", Path: path}); err != nil {
		return nil, err
	}
	return store, nil
}

func runImport(cmd *cobra.Command, opts *ImportOptions, arg string) error {
	cmdCtx := NewCommandContextWithoutSource(cmd)
	r := cmdCtx.Renderer

	var (
		in     io.Reader
		origin string
	)
	if arg == "-" {
		in, origin = cmd.InOrStdin(), "stdin"
	} else {
		f, err := os.Open(arg) //nolint:gosec // user-supplied input file
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", arg, err)
		}
		defer func() { _ = f.Close() }()
		in = f
		origin = arg
		if abs, err := filepath.Abs(arg); err == nil {
			origin = abs
		}
	}

	steps, err := file.ReadStepsCSV(in)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", arg, err)
	}

	path := storePath(cmdCtx, opts)
	store, err := openStore(cmd, cmdCtx, path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	imp, err := store.Import(cmd.Context(), steps, origin)
	if err != nil {
		return err
	}

	out := output.ImportOutput{ID: imp.ID, Origin: imp.Origin, Rows: imp.Rows, Store: store.Path()}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	r.StatusLine(arg, "success", fmt.Sprintf("%d steps", imp.Rows))
	r.Success(fmt.Sprintf("Imported into %s", out.Store))
	return nil
}

func runImportList(cmd *cobra.Command, opts *ImportOptions) error {
	cmdCtx := NewCommandContextWithoutSource(cmd)
	r := cmdCtx.Renderer

	store, err := openStore(cmd, cmdCtx, storePath(cmdCtx, opts))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	imports, err := store.ListImports(cmd.Context(), opts.Limit)
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		list := make([]output.ImportOutput, len(imports))
		for i, imp := range imports {
			list[i] = output.ImportOutput{ID: imp.ID, Origin: imp.Origin, Rows: imp.Rows, Store: store.Path()}
		}
		return r.JSON(list)
	case output.ModeMarkdown:
		r.Header(2, "Imports")
		r.Println(output.FormatTableRow("ID", "Origin", "Rows", "Imported"))
		r.Println(output.FormatTableSeparator(4))
		for _, imp := range imports {
			r.Println(output.FormatTableRow(imp.ID, imp.Origin, strconv.Itoa(imp.Rows), imp.ImportedAt.Format("2006-01-02 15:04:05")))
		}
	default:
		if len(imports) == 0 {
			r.Println(r.Styles().Muted.Render("No imports yet"))
			return nil
		}
		t := table.NewWriter()
		t.SetOutputMirror(r.Writer())
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"ID", "Origin", "Rows", "Imported"})
		for _, imp := range imports {
			t.AppendRow(table.Row{imp.ID, imp.Origin, imp.Rows, imp.ImportedAt.Format("2006-01-02 15:04:05")})
		}
		t.Render()
	}
	return nil
}
