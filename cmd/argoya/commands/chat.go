package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"argoya/internal/domain"
	sessionsvc "argoya/internal/services/session"
)

const chatHelp = `commands:
  /users   list participants
  /whoami  show your name, anonymous id and key fingerprint
  /quit    leave and erase everything
anything else is sent to the group`

// chat [name]: join and run the interactive loop.
func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [name]",
		Short: "Join under a throwaway name and chat",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			var name string
			if len(args) == 1 {
				name = args[0]
			} else {
				fmt.Fprint(out, "display name: ")
				line, err := in.ReadString('\n')
				if err != nil && line == "" {
					return err
				}
				name = line
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runChat(ctx, appCtx.Lifecycle, name, in, out)
		},
	}
}

// runChat joins as name, forwards input lines until /quit, EOF or ctx ends,
// and prints the conversation as it changes. It always leaves before
// returning.
func runChat(ctx context.Context, lc *sessionsvc.Lifecycle, name string, in io.Reader, out io.Writer) error {
	sess, err := lc.Join(ctx, name)
	if err != nil {
		return fmt.Errorf("join: %w", err)
	}
	defer func() {
		leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if lerr := lc.Leave(leaveCtx); lerr != nil {
			fmt.Fprintf(out, "left locally; relay was not notified: %v\n", lerr)
			return
		}
		fmt.Fprintln(out, "left; keys and history erased")
	}()

	eng, ok := lc.Engine()
	if !ok {
		return domain.ErrNotActive
	}
	fmt.Fprintf(out, "joined as %s. /help for commands\n", sess.DisplayName)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-loopCtx.Done():
				return
			}
		}
	}()

	printed := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-eng.Updates():
			printed = render(out, eng, sess.DisplayName, printed)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch cmd := strings.TrimSpace(line); cmd {
			case "":
			case "/quit", "/exit":
				return nil
			case "/help":
				fmt.Fprintln(out, chatHelp)
			case "/users":
				fmt.Fprintf(out, "online: %s\n", joinNames(eng.Participants(), sess.DisplayName))
			case "/whoami":
				fp, err := lc.Fingerprint()
				if err != nil {
					fp = "-"
				}
				fmt.Fprintf(out, "%s (anonymous id %s, key %s)\n", sess.DisplayName, sess.UserHash, fp)
			default:
				if err := eng.Send(ctx, line); err != nil {
					switch {
					case errors.Is(err, domain.ErrEmptyMessage):
					case domain.IsTransport(err):
						fmt.Fprintf(out, "not sent, try again: %v\n", err)
					default:
						fmt.Fprintf(out, "not sent: %v\n", err)
					}
				}
			}
		}
	}
}

// render prints messages past the first printed ones and returns the new count.
func render(out io.Writer, eng domain.SyncService, me domain.DisplayName, printed int) int {
	i := 0
	for m := range eng.Messages() {
		if i >= printed {
			who := m.Sender.String()
			if m.Own || m.Sender == me {
				who += " (you)"
			}
			fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp.Local().Format(time.TimeOnly), who, m.Text)
		}
		i++
	}
	return i
}

func joinNames(names []domain.DisplayName, me domain.DisplayName) string {
	parts := make([]string, 0, len(names))
	for _, n := range names {
		if n == me {
			parts = append(parts, n.String()+" (you)")
			continue
		}
		parts = append(parts, n.String())
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}
