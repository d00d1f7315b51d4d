package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyberedpro/cybered/pkg/mockapi"
)

const shutdownTimeout = 5 * time.Second

// mockCommand creates the mock command, which serves the in-memory API.
func (c *CLI) mockCommand() *cobra.Command {
	var (
		addr  string
		delay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve the in-memory mock API",
		Long: `Serve an in-memory imitation of the LMS API for local development.

The demo account is student@example.com with password "password". Data is
reset every time the server starts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			srv := mockapi.NewServer(mockapi.WithLogger(logger), mockapi.WithDelay(delay))
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}

			printSuccess("Mock API listening")
			printKeyValue("URL", StyleLink.Render("http://"+ln.Addr().String()+mockapi.Prefix))
			printKeyValue("Login", mockapi.DemoEmail+" / "+mockapi.DemoPassword)
			printNewline()
			printNextStep("Point the client at it", "CYBERED_BASE_URL=http://"+ln.Addr().String()+mockapi.Prefix+" cybered courses list")

			return serve(ctx, &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}, ln)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "listen address")
	cmd.Flags().DurationVar(&delay, "delay", 0, "hold every response for this long")

	return cmd
}

// serve runs hs on ln until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, hs *http.Server, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- hs.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
