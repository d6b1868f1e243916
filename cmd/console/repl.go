package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/chzyer/readline"
	"github.com/manifoldco/promptui"
)

// runREPL is the non-interactive-terminal fallback console: a readline
// loop with history, for scripted use or terminals bubbletea can't take
// over, grounded on the teacher's cmd/alex/interactive.go RunInteractive.
func runREPL(c *client, workspaceID, threadID string) error {
	fmt.Println("Core Console (REPL mode)")
	fmt.Println("Type a message and press Enter. Type 'exit' or 'quit' to quit.")
	fmt.Println()

	homeDir, _ := os.UserHomeDir()
	historyFile := filepath.Join(homeDir, ".coreserver-console-history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		UniqueEditLine:    true,
		Stdin:             readline.NewCancelableStdin(os.Stdin),
		Stdout:            os.Stdout,
		Stderr:            os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	ctx := context.Background()
	for {
		input, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(input) == 0 {
				fmt.Println("\nGoodbye!")
				return nil
			}
			continue
		} else if err == io.EOF {
			fmt.Println("\nGoodbye!")
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "exit" || input == "quit" || input == "q" {
			fmt.Println("Goodbye!")
			return nil
		}
		if input == "" {
			continue
		}

		result, err := c.sendMessage(ctx, workspaceID, input, threadID)
		if err != nil {
			fmt.Printf("\nError: %v\n\n", err)
			continue
		}

		for _, e := range result.DisplayEvents {
			content, _ := e.Payload["message"].(string)
			if content == "" || e.Actor != "assistant" {
				continue
			}
			fmt.Printf("\n%s\n", renderMarkdown(content))
		}

		if err := confirmPendingCTAs(ctx, c, workspaceID); err != nil {
			fmt.Printf("\nCTA confirmation skipped: %v\n\n", err)
		}
	}
}

// confirmPendingCTAs lists the workspace's timeline, and for every item
// still carrying an un-confirmed call-to-action (spec.md §7's "external
// write blocked by confirmation"), prompts the operator to pick one — or
// skip — before posting the confirming turn back to the core.
func confirmPendingCTAs(ctx context.Context, c *client, workspaceID string) error {
	items, err := c.listTimeline(ctx, workspaceID)
	if err != nil {
		return err
	}

	for _, item := range items {
		if len(item.CTA) == 0 {
			continue
		}
		if confirmed, _ := item.Data["confirmed"].(bool); confirmed {
			continue
		}

		labels := make([]string, 0, len(item.CTA)+1)
		for _, cta := range item.CTA {
			labels = append(labels, cta.Label)
		}
		labels = append(labels, "(skip)")

		prompt := promptui.Select{Label: fmt.Sprintf("Confirm action for %q", item.Title), Items: labels}
		index, _, err := prompt.Run()
		if err != nil {
			return err
		}
		if index >= len(item.CTA) {
			continue
		}

		if _, err := c.sendCTA(ctx, workspaceID, item.ID, item.CTA[index].Action, true); err != nil {
			return err
		}
	}
	return nil
}

// renderMarkdown renders assistant replies for the 100-column terminal the
// REPL assumes when no TTY size is available.
func renderMarkdown(content string) string {
	return string(markdown.Render(content, 100, 6))
}
