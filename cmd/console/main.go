// Command console is an operator-facing client for coreserver: a Bubble
// Tea chat TUI by default, with a readline-based REPL fallback for
// non-interactive terminals. Grounded on the teacher's cmd/alex TUI/REPL
// split (tui_chat.ChatTUI vs interactive.go's RunInteractive), rebuilt as
// an HTTP client of internal/server/http instead of an in-process
// AgentCoordinator, since the core now runs as its own server.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var (
	serverURL   string
	workspaceID string
	threadID    string
	replMode    bool
)

func main() {
	root := &cobra.Command{
		Use:   "console",
		Short: "Chat with a running coreserver instance",
		RunE:  run,
	}
	root.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "coreserver base URL")
	root.Flags().StringVar(&workspaceID, "workspace", "", "workspace id (prompted if omitted)")
	root.Flags().StringVar(&threadID, "thread", "", "thread id (empty selects the workspace's default thread)")
	root.Flags().BoolVar(&replMode, "repl", false, "use the readline REPL instead of the full-screen TUI")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	banner := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Println(banner("Conversation Orchestration Core — Console"))

	c := newClient(serverURL)

	if workspaceID == "" {
		prompt := promptui.Prompt{Label: "Workspace ID"}
		result, err := prompt.Run()
		if err != nil {
			return fmt.Errorf("workspace prompt: %w", err)
		}
		workspaceID = result
	}

	if replMode {
		return runREPL(c, workspaceID, threadID)
	}

	model := newConsoleModel(c, workspaceID, threadID)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
