// -- cmd/watch.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ckarabey/attendbot/internal/forms"
	"github.com/ckarabey/attendbot/internal/observability"
	"github.com/ckarabey/attendbot/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the chat client for attendance form links",
	Long: `Open the configured messaging web client and poll it for attendance
form links. Every new supported link is filled and submitted automatically.

The first run shows the client's login screen (QR code); complete it in the
browser window. The session persists in the browser profile, so subsequent
runs attach without logging in again.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()

	if _, err := forms.NewUserData(appConfig.User.StudentName, appConfig.User.StudentID); err != nil {
		return fmt.Errorf("user identity not configured (set user.student_name and user.student_id): %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	w := watcher.New(appConfig.Watcher, a.browser, a.intel, a.orch, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		// Operator stop, not a failure.
		return nil
	}
	return err
}
