package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"

	"github.com/teemow/chatscout/internal/logging"
)

const mainPrompt = "\nYou > "

// Loop is the interactive conversation loop: it reads user queries with
// line editing and history, hands each one to the turn driver, and ends the
// session on exit, quit, or end of input.
type Loop struct {
	driver *TurnDriver
	rl     *readline.Instance
	out    io.Writer
	logger *slog.Logger
}

// LoopOption adjusts the interactive loop.
type LoopOption func(*loopConfig)

type loopConfig struct {
	historyFile string
}

// WithHistoryFile stores readline history at path instead of the default
// under the system temp directory. An empty path keeps the default.
func WithHistoryFile(path string) LoopOption {
	return func(c *loopConfig) {
		if path != "" {
			c.historyFile = path
		}
	}
}

// NewLoop builds the interactive loop for the given session. The readline
// instance owns the terminal; agent output and the consent paste-back go
// through it so prompts and output do not fight over the cursor.
func NewLoop(runner Submitter, sessionID string, opts ...LoopOption) (*Loop, error) {
	cfg := loopConfig{
		historyFile: filepath.Join(os.TempDir(), ".chatscout_history"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          mainPrompt,
		HistoryFile:     cfg.historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline instance: %w", err)
	}

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	spin.Suffix = " Thinking..."

	l := &Loop{
		rl:     rl,
		out:    rl.Stdout(),
		logger: logging.WithComponent(slog.Default(), "console"),
	}
	l.driver = NewTurnDriver(runner, sessionID, l.out, l.promptLine, WithSpinner(spin))
	return l, nil
}

// Run processes queries until the user ends the session or ctx is
// cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.rl.Close()

	fmt.Fprintln(l.out, "--- Google Chat Agent Initialized (Local CLI) ---")
	fmt.Fprintln(l.out, "Type 'exit' or 'quit' to end.")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := l.rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				continue
			}
		} else if err == io.EOF {
			fmt.Fprintln(l.out, "Ending session. Goodbye!")
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}
		if isExit(query) {
			fmt.Fprintln(l.out, "Ending session. Goodbye!")
			return nil
		}

		if err := l.driver.Turn(ctx, query); err != nil {
			l.logger.Error("conversation turn failed", logging.Err(err))
			fmt.Fprintf(l.out, "\nError: %v\n", err)
		}
	}
}

// promptLine reads one line under a temporary prompt, restoring the main
// prompt afterwards. Interrupt and end of input are reported as an empty
// line, which the driver treats as a cancelled paste-back.
func (l *Loop) promptLine(prompt string) (string, error) {
	l.rl.SetPrompt(prompt)
	defer l.rl.SetPrompt(mainPrompt)

	line, err := l.rl.Readline()
	if err == readline.ErrInterrupt || err == io.EOF {
		return "", nil
	}
	return line, err
}

// isExit reports whether the query ends the session. Matching ignores case.
func isExit(query string) bool {
	switch strings.ToLower(query) {
	case "exit", "quit":
		return true
	}
	return false
}
