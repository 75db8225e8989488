package commands

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mgb22/chatbotjourney/internal/server"
)

// ServeOptions holds options for the serve command. Addr and Watch are
// read through the config loader so journey.yaml and env apply too.
type ServeOptions struct {
	Addr  string
	Watch bool
	Open  bool
	Title string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive journey page and JSON API",
		Long: `Start a local web server with the interactive journey diagram.

The page offers an event selector and step-window sliders; the chart
redraws whenever they change. With --watch (the default) connected pages
refresh when the source file or store changes.

The JSON API is available under /api:
  GET /api/events
  GET /api/flow?event=<name>&before=<n>&after=<n>
  GET /api/flow/figure?event=<name>&before=<n>&after=<n>`,
		Example: `  # Serve the configured source
  journey serve

  # Serve a CSV export on another port and open a browser
  journey serve --source file --source-path events.csv --addr :9000 --open`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (default: server.addr)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Refresh clients when the source changes")
	cmd.Flags().BoolVar(&opts.Open, "open", false, "Open the page in a browser")
	cmd.Flags().StringVar(&opts.Title, "title", "", "Page title")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cmdCtx.Cfg
	srv := server.New(server.Config{
		Server: cfg.Server,
		Chart:  cfg.Chart,
		Window: cfg.Window,
		Title:  opts.Title,
	}, cmdCtx.Source, cmdCtx.Logger)

	url := "http://" + displayAddr(cfg.Server.Addr)
	if opts.Open {
		go openBrowser(url)
	}

	r := cmdCtx.Renderer
	r.Println("Serving journey flows on " + url)
	r.Println(r.Styles().Muted.Render("Press Ctrl+C to stop"))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Serve(ctx)
}

// displayAddr turns ":8765" into "localhost:8765" for printing.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

// openBrowser opens the default browser to url.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(context.Background(), "open", url)
	case "linux":
		cmd = exec.CommandContext(context.Background(), "xdg-open", url)
	case "windows":
		cmd = exec.CommandContext(context.Background(), "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}

	_ = cmd.Start()
}
