package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/johncui/hydrogpt/pkg/chat"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			// keep log lines off the conversation
			a, err := newApp(ctx, cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			return runREPL(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), a.chats, cfg.Chat.TypingDelay)
		},
	}
}

var (
	userPrompt = color.New(color.FgCyan, color.Bold)
	botPrompt  = color.New(color.FgGreen, color.Bold)
	hint       = color.New(color.Faint)
)

// runREPL reads one message per line until EOF, /quit or ctx is done.
// typingDelay paces each reply.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, chats *chat.Manager, typingDelay time.Duration) error {
	current := chats.NewChat(ctx)
	hint.Fprintln(out, "HydroGPT is ready. Commands: /new, /chats, /quit")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		userPrompt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			current = chats.NewChat(ctx)
			hint.Fprintf(out, "started %s\n", current.ID)
			continue
		case "/chats":
			for _, s := range chats.List() {
				hint.Fprintf(out, "%s  %-33s %d messages\n", s.ID, s.Title, s.MessageCount)
			}
			continue
		}

		if err := pause(ctx, typingDelay); err != nil {
			return nil
		}
		reply, err := chats.Send(ctx, current.ID, line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		botPrompt.Fprint(out, "hydrogpt> ")
		fmt.Fprintln(out, reply.Text)
	}
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
