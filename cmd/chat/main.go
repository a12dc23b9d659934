// Command chat is the terminal chat client. It talks to the relay over HTTP or WebSocket.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/xiaot623/embedchat/internal/adapter/relayclient"
	"github.com/xiaot623/embedchat/internal/config"
	"github.com/xiaot623/embedchat/internal/session"
	"github.com/xiaot623/embedchat/internal/tui"
	"github.com/xiaot623/embedchat/pkg/logger"
)

func main() {
	cfg := config.Load()

	plain := flag.Bool("plain", false, "Line-based mode instead of the full-screen UI")
	mode := flag.String("transport", cfg.Client.Transport, "Relay transport: http or ws")
	relayURL := flag.String("relay", cfg.Client.RelayURL, "Relay chat endpoint")
	wsURL := flag.String("ws", cfg.Client.WSURL, "Relay WebSocket endpoint")
	flag.Parse()

	logger.Init(cfg.Log.Level, cfg.Log.Format)
	closeLog := redirectLog(cfg.Client.LogFile, *plain)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var transport session.Transport
	switch *mode {
	case "ws":
		wsClient, err := relayclient.DialWS(ctx, *wsURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to %s: %v\n", *wsURL, err)
			os.Exit(1)
		}
		defer wsClient.Close()
		transport = wsClient
	case "http":
		transport = relayclient.NewClient(*relayURL)
	default:
		fmt.Fprintf(os.Stderr, "Unknown transport %q (want http or ws)\n", *mode)
		os.Exit(2)
	}

	sessionID := session.NewSessionID()
	logger.Infof("Session %s using %s transport", sessionID, *mode)

	if *plain {
		runPlain(ctx, session.NewClient(sessionID, transport))
		return
	}

	changes := tui.NewChanges()
	client := session.NewClient(sessionID, transport, session.WithObserver(changes.Notify))
	p := tea.NewProgram(tui.NewModel(ctx, client, changes), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// redirectLog keeps log lines off the terminal while the full-screen UI owns it.
func redirectLog(path string, plain bool) func() {
	if plain && path == "" {
		logger.SetOutput(os.Stderr)
		return func() {}
	}
	if path == "" {
		logger.SetOutput(io.Discard)
		return func() {}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	logger.SetOutput(f)
	return func() { f.Close() }
}

func runPlain(ctx context.Context, client *session.Client) {
	fmt.Printf("Session %s\n", client.SessionID())
	fmt.Println("Type a message and press Enter to send.")
	fmt.Println("Commands: /quit to exit, /vec N to toggle the vector of message N")
	fmt.Println()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Println("\nInterrupted")
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			line = l
		}

		cmd := strings.TrimSpace(line)
		switch {
		case cmd == "":
			continue
		case cmd == "/quit":
			fmt.Println("Bye!")
			return
		case strings.HasPrefix(cmd, "/vec "):
			toggleVector(client, strings.TrimPrefix(cmd, "/vec "))
			continue
		}

		fmt.Println("Thinking...")
		client.SetInput(line)
		client.Submit(ctx)
		msgs := client.Messages()
		last := msgs[len(msgs)-1]
		fmt.Println(last.Content)
		if last.HasEmbedding() {
			fmt.Printf("  (message %d, %d dim embedding)\n", len(msgs)-1, len(last.Embedding))
		}
	}
}

func toggleVector(client *session.Client, arg string) {
	var index int
	if _, err := fmt.Sscanf(arg, "%d", &index); err != nil {
		fmt.Println("usage: /vec N")
		return
	}
	msgs := client.Messages()
	if index < 0 || index >= len(msgs) || !msgs[index].HasEmbedding() {
		fmt.Printf("no vector at message %d\n", index)
		return
	}
	if expanded, ok := client.SelectEmbedding(index); !ok || expanded != index {
		fmt.Println("(hidden)")
		return
	}
	fmt.Println(tui.EmbeddingPreview(msgs[index].Embedding))
}
