package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/seekerhq/seeker/internal/log"
	"github.com/seekerhq/seeker/internal/schema"
)

// runInteractive starts the conversational REPL.
func runInteractive(logger log.Logger) error {
	ctx, cancel, a, err := newAssistant(logger)
	if err != nil {
		return err
	}
	defer cancel()
	defer a.Close()

	return runLoop(ctx, a, os.Stdin, os.Stdout)
}

func printWelcome(w io.Writer, version string) {
	fmt.Fprintln(w, "╔══════════════════════════════════════════╗")
	fmt.Fprintf(w, "║  Seeker v%-31s ║\n", version)
	fmt.Fprintln(w, "║  Conversational search assistant         ║")
	fmt.Fprintln(w, "║  Type /help for commands, Ctrl+D to exit ║")
	fmt.Fprintln(w, "╚══════════════════════════════════════════╝")
}

// runLoop is the REPL body. A failed query prints its error and the
// loop keeps going; only EOF or /exit ends it.
func runLoop(ctx context.Context, b backend, in io.Reader, out io.Writer) error {
	printWelcome(out, AppVersion)

	convID := b.StartConversation("local")
	defer func() { _ = b.EndConversation(convID) }()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Goodbye!")
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			exit := handleSlashCommand(ctx, b, &convID, line, out)
			if exit {
				fmt.Fprintln(out, "Goodbye!")
				return nil
			}
			continue
		}

		chat(ctx, b, convID, line, out)
	}
}

// handleSlashCommand dispatches a /command line. It returns true when
// the REPL should exit.
func handleSlashCommand(ctx context.Context, b backend, convID *uuid.UUID, line string, out io.Writer) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/exit", "/quit":
		return true
	case "/help":
		printInteractiveHelp(out)
	case "/version":
		runVersion(out)
	case "/new":
		_ = b.EndConversation(*convID)
		*convID = b.StartConversation("local")
		fmt.Fprintln(out, "Started a new conversation.")
	case "/stats":
		stats, err := b.ConversationStats(*convID)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return false
		}
		fmt.Fprintf(out, "Conversation %s\n", stats.ID)
		fmt.Fprintf(out, "  Messages:    %d\n", stats.MessageCount)
		fmt.Fprintf(out, "  Started:     %s\n", stats.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "  Last active: %s\n", stats.LastActiveAt.Format("2006-01-02 15:04:05"))
		if stats.Topic != "" {
			fmt.Fprintf(out, "  Topic:       %s\n", stats.Topic)
		}
	case "/search":
		if rest == "" {
			fmt.Fprintln(out, "Usage: /search <query>")
			return false
		}
		if err := searchAndPrint(ctx, b, rest, schema.SearchConfig{}, false, out); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	case "/templates":
		printTemplates(out, b)
	case "/workflow":
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			fmt.Fprintln(out, "Usage: /workflow <template> [key=value ...]")
			return false
		}
		params, err := parseParams(fields[1:])
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return false
		}
		if err := streamWorkflow(ctx, b, fields[0], params, out); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	default:
		fmt.Fprintf(out, "Unknown command: %s (try /help)\n", cmd)
	}
	return false
}

// chat runs one conversational turn, printing the reply as it streams.
func chat(ctx context.Context, b backend, convID uuid.UUID, message string, out io.Writer) {
	ch, err := b.ChatStream(ctx, convID, message)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	streamed := false
	for chunk := range ch {
		switch chunk.Type {
		case schema.ChunkText:
			fmt.Fprint(out, asText(chunk.Content))
			streamed = true
		case schema.ChunkComplete:
			if !streamed {
				fmt.Fprint(out, asText(chunk.Content))
			}
		case schema.ChunkError:
			if streamed {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "Error: %s", asText(chunk.Content))
		}
	}
	fmt.Fprintln(out)
}

func printInteractiveHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  /help                            Show this help")
	fmt.Fprintln(out, "  /version                         Show version")
	fmt.Fprintln(out, "  /search <query>                  One-shot search")
	fmt.Fprintln(out, "  /workflow <template> [k=v ...]   Run a workflow template")
	fmt.Fprintln(out, "  /templates                       List workflow templates")
	fmt.Fprintln(out, "  /stats                           Show conversation stats")
	fmt.Fprintln(out, "  /new                             Start a fresh conversation")
	fmt.Fprintln(out, "  /exit, /quit                     Exit seeker")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Anything else is sent to the assistant as a chat message.")
}
