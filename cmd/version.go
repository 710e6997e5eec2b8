package cmd

import (
	"fmt"
	"io"
	"runtime"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

func runVersion(w io.Writer) {
	fmt.Fprintf(w, "Seeker v%s\n", AppVersion)
	fmt.Fprintf(w, "Build: %s\n", BuildTime)
	fmt.Fprintf(w, "Commit: %s\n", GitCommit)
	fmt.Fprintf(w, "Go: %s (%s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// runHelp displays the help message.
func runHelp(w io.Writer) {
	fmt.Fprintln(w, "Seeker - Conversational search assistant")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  seeker search <query> [flags]       One-shot search with a synthesized answer")
	fmt.Fprintln(w, "  seeker workflow <template> [k=v...] Run a workflow template with streamed progress")
	fmt.Fprintln(w, "  seeker templates                    List built-in workflow templates")
	fmt.Fprintln(w, "  seeker interactive                  Start the conversational REPL")
	fmt.Fprintln(w, "  seeker version                      Show version information")
	fmt.Fprintln(w, "  seeker help                         Show this help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Search flags:")
	fmt.Fprintln(w, "  -type string   Search type: general, news, academic, product, tech_doc")
	fmt.Fprintln(w, "  -max int       Maximum number of results (1-20)")
	fmt.Fprintln(w, "  -json          Print the raw result as JSON")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Interactive commands:")
	fmt.Fprintln(w, "  /help              Show available commands")
	fmt.Fprintln(w, "  /search <query>    One-shot search inside the session")
	fmt.Fprintln(w, "  /templates         List workflow templates")
	fmt.Fprintln(w, "  /stats             Show current conversation stats")
	fmt.Fprintln(w, "  /new               Start a fresh conversation")
	fmt.Fprintln(w, "  /exit, /quit       Exit seeker")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  GEMINI_API_KEY     Gemini API key (default provider)")
	fmt.Fprintln(w, "  OPENAI_API_KEY     OpenAI API key (provider=openai)")
	fmt.Fprintln(w, "  TAVILY_API_KEY     Tavily search key (search_provider=tavily)")
	fmt.Fprintln(w, "  SEEKER_PROVIDER    Model provider: gemini, openai, ollama")
	fmt.Fprintln(w, "  DEBUG              Enable debug logging")
}
