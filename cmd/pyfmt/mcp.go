package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	pyfmtmcp "github.com/deixis/pyfmt/internal/mcp"
	"github.com/deixis/pyfmt/internal/report"
)

func newMCPCmd(f *rootFlags, stderr io.Writer) *cobra.Command {
	var instructions bool
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if instructions {
				fmt.Fprint(cmd.OutOrStdout(), pyfmtmcp.Instructions)
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			e, err := setup(f, stderr)
			if err != nil {
				return err
			}
			defer e.Close()

			var back report.Store = report.NewDiskStore("")
			if e.history != nil {
				back = e.history
			}
			store := report.NewLRUStore(5, back)
			server := pyfmtmcp.NewServer(e.loaded, store, e.logger)

			if httpAddr != "" {
				return serveHTTP(ctx, server, httpAddr, e)
			}
			return server.Run(ctx, &mcpsdk.StdioTransport{})
		},
	}
	cmd.Flags().BoolVar(&instructions, "instructions", false, "print model instructions and exit")
	cmd.Flags().StringVar(&httpAddr, "http", "", "start HTTP server on address (e.g. :9090)")
	return cmd
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string, e *env) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	e.logger.Info("listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
