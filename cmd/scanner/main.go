package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/rahul4469/qrguard/internal/cli"
	"go.szostok.io/version/extension"
)

func main() {
	cli.Preinit()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := cli.NewRootCommand(os.Stdin, os.Stdout)
	rootCmd.AddCommand(extension.NewVersionCobraCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("Command failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}
