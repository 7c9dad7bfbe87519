// -- cmd/fill.go --
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ckarabey/attendbot/internal/forms"
	"github.com/ckarabey/attendbot/internal/observability"
)

// formRunner is the slice of the orchestrator the interactive loop needs.
type formRunner interface {
	ProcessForm(ctx context.Context, url string) (*forms.Submission, error)
}

var fillCmd = &cobra.Command{
	Use:   "fill [form-url]",
	Short: "Fill and submit an attendance form",
	Long: `Fill and submit an attendance form at the given URL.

Without a URL argument the command enters an interactive loop that reads one
URL per line from stdin; type quit, exit or q to leave.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFill,
}

func init() {
	rootCmd.AddCommand(fillCmd)
}

func runFill(cmd *cobra.Command, args []string) error {
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

	if len(args) == 1 {
		return fillOne(ctx, a, args[0])
	}
	return fillInteractive(ctx, a)
}

// fillOne processes a single URL; a failed pipeline makes the process exit
// non-zero.
func fillOne(ctx context.Context, a *app, url string) error {
	if a.intel.IdentifyProvider(url) == nil {
		return fmt.Errorf("no form provider handles %q", url)
	}

	sub, err := a.orch.ProcessForm(ctx, url)
	if err != nil {
		return fmt.Errorf("form processing failed (status %s): %w", sub.Status, err)
	}
	fmt.Printf("Submitted %s (confidence %.2f, took %s)\n",
		sub.FormURL, sub.Confidence, sub.ProcessingTime.Round(10*time.Millisecond))
	return nil
}

// fillInteractive reads URLs from stdin until EOF or a quit word. Pipeline
// failures are reported and absorbed so one bad form never ends the session.
func fillInteractive(ctx context.Context, a *app) error {
	return interactiveLoop(ctx, os.Stdin, os.Stdout, a.intel, a.orch, a.logger)
}

func interactiveLoop(ctx context.Context, in io.Reader, out io.Writer, intel *forms.Intelligence, runner formRunner, logger *zap.Logger) error {
	fmt.Fprintln(out, "Enter form URLs one per line (quit to exit):")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit", "q":
			return nil
		}

		if intel.IdentifyProvider(line) == nil {
			fmt.Fprintf(out, "No form provider handles %q\n", line)
			continue
		}

		sub, err := runner.ProcessForm(ctx, line)
		if err != nil {
			logger.Error("Form processing failed.",
				zap.String("url", line),
				zap.String("status", string(sub.Status)),
				zap.Error(err))
			fmt.Fprintf(out, "Failed (%s): %v\n", sub.Status, err)
			continue
		}

		if sub.Status == forms.StatusSuccess {
			fmt.Fprintf(out, "Submitted (confidence %.2f, took %s)\n",
				sub.Confidence, sub.ProcessingTime.Round(10*time.Millisecond))
		}
	}
}
