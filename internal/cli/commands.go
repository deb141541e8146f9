package cli

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/rahul4469/qrguard/internal/scanner"
	"github.com/samber/do"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the scanner command tree. Commands read from in
// and write to out so tests can drive them.
func NewRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "scanner",
		Short:         "QR Guard terminal scanner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "scanner.yaml", "Path to config yaml file")

	build := func(cmd *cobra.Command) (*do.Injector, func(), error) {
		return newInjector(cmd.Context(), configPath, cmd.InOrStdin(), cmd.OutOrStdout())
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "analyze <url>",
			Short: "Ask the server whether a URL is safe",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				di, done, err := build(cmd)
				if err != nil {
					return err
				}
				defer done()

				ctx, cancel := requestContext(cmd.Context(), do.MustInvoke[*Config](di).Timeout)
				defer cancel()

				client := do.MustInvoke[*scanner.Client](di)
				if err := client.AnalyzeAndDispatch(ctx, args[0], do.MustInvoke[*TerminalPresenter](di)); err != nil {
					return oops.With("url", args[0]).Wrapf(err, "analyze failed")
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "goto <page>",
			Short: "Open a section of the app",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				di, done, err := build(cmd)
				if err != nil {
					return err
				}
				defer done()

				scanner.GoTo(do.MustInvoke[*TerminalPresenter](di), args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "camera",
			Short: "Check that the rear camera can be opened",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				di, done, err := build(cmd)
				if err != nil {
					return err
				}
				defer done()

				surface := NewLogSurface(cmd.OutOrStdout())
				scanner.AcquireCamera(cmd.Context(), do.MustInvoke[DeviceHost](di), surface, do.MustInvoke[*TerminalPresenter](di))
				if s := surface.Stream(); s != nil {
					return s.Close()
				}
				return nil
			},
		},
	)

	return root
}

// newInjector wires config, logging, the HTTP client and the presenter.
func newInjector(ctx context.Context, configPath string, in io.Reader, out io.Writer) (*do.Injector, func(), error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	closeLog, err := InitLogging(cfg)
	if err != nil {
		return nil, nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		_ = closeLog()
		return nil, nil, oops.Wrapf(err, "failed to create cookie jar")
	}

	di := do.New()
	do.ProvideValue(di, ctx)
	do.ProvideValue(di, cfg)
	do.ProvideValue(di, DeviceHost{Device: cfg.Device})
	do.ProvideValue(di, NewTerminalPresenter(in, out, cfg.BaseURL))
	do.Provide(di, func(i *do.Injector) (*scanner.Client, error) {
		c := do.MustInvoke[*Config](i)
		return scanner.NewClient(c.BaseURL, &http.Client{Jar: jar}), nil
	})

	slog.Debug("Scanner configured", slog.String("base_url", cfg.BaseURL))

	done := func() {
		if err := di.Shutdown(); err != nil {
			slog.Warn("Failed to shut down", slog.Any("error", err))
		}
		_ = closeLog()
	}
	return di, done, nil
}

// requestContext bounds ctx by timeout; zero or negative means no bound.
func requestContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
