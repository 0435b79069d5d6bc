// Command bookchat is a terminal client for the textbook chat server.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/Habibullahdevv/ai-native-book/internal/domain"
)

// Globals are the flags shared by every command.
type Globals struct {
	Server  string        `help:"Base URL of the chat server" default:"http://localhost:8000" env:"BOOKCHAT_SERVER"`
	Timeout time.Duration `help:"Timeout of single-shot requests" default:"90s"`
}

func (g *Globals) client() *Client {
	return NewClient(g.Server, g.Timeout)
}

var cli struct {
	Globals

	Session SessionCmd `cmd:"" help:"Manage chat sessions"`
	Ask     AskCmd     `cmd:"" help:"Ask a single question"`
	Chat    ChatCmd    `cmd:"" help:"Chat interactively over a streaming connection"`
}

type SessionCmd struct {
	New    SessionNewCmd    `cmd:"" help:"Create a session"`
	Show   SessionShowCmd   `cmd:"" help:"Print a session and its messages"`
	Delete SessionDeleteCmd `cmd:"" help:"Delete a session"`
}

type SessionNewCmd struct{}

func (c *SessionNewCmd) Run(g *Globals) error {
	session, err := g.client().CreateSession(context.Background())
	if err != nil {
		return err
	}
	fmt.Println(session.ID)
	return nil
}

type SessionShowCmd struct {
	ID string `arg:"" help:"Session ID"`
}

func (c *SessionShowCmd) Run(g *Globals) error {
	result, err := g.client().GetSession(context.Background(), c.ID)
	if err != nil {
		return err
	}
	fmt.Println(renderSession(result))
	return nil
}

type SessionDeleteCmd struct {
	ID string `arg:"" help:"Session ID"`
}

func (c *SessionDeleteCmd) Run(g *Globals) error {
	return g.client().DeleteSession(context.Background(), c.ID)
}

type AskCmd struct {
	Question  string `arg:"" help:"Question about the textbook"`
	Session   string `help:"Session to ask in; a new one is created when empty"`
	Selection string `help:"Selected textbook passage to ask about"`
	Stream    bool   `help:"Stream the answer as it is generated"`
}

func (c *AskCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := g.client()
	sessionID, err := ensureSession(ctx, client, c.Session)
	if err != nil {
		return err
	}

	req := domain.ChatRequest{SessionID: sessionID, Message: c.Question}
	if c.Selection != "" {
		req.SelectedText = &c.Selection
	}

	if !c.Stream {
		rsp, err := client.Chat(ctx, req)
		if err != nil {
			return err
		}
		fmt.Println(renderAnswer(rsp))
		return nil
	}

	// The stream is not bounded by the request timeout.
	streamer := NewClient(g.Server, 0)
	err = streamer.Stream(ctx, req, func(event domain.StreamEvent) error {
		switch event.Type {
		case domain.StreamEventToken:
			fmt.Print(event.Content)
		case domain.StreamEventDone:
			fmt.Println()
			fmt.Println(renderDone(&event))
		case domain.StreamEventError:
			fmt.Println()
			fmt.Println(errorStyle.Render(event.Error))
		}
		return nil
	})
	return err
}

type ChatCmd struct {
	Session string `help:"Session to continue; a new one is created when empty"`
}

func (c *ChatCmd) Run(g *Globals) error {
	ctx := context.Background()
	client := g.client()

	sessionID, err := ensureSession(ctx, client, c.Session)
	if err != nil {
		return err
	}

	conn, err := client.DialChat(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Println(titleStyle.Render("Textbook chat"))
	fmt.Println(metaStyle.Render("session " + sessionID))
	fmt.Println(metaStyle.Render("Type a question and press Enter. /quit exits, Ctrl+C stops an answer."))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("> "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" {
			return nil
		}

		askCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		done, err := conn.Ask(askCtx, domain.ChatRequest{SessionID: sessionID, Message: input}, func(token string) {
			fmt.Print(token)
		})
		stop()
		fmt.Println()

		switch {
		case errors.Is(err, context.Canceled):
			fmt.Println(metaStyle.Render("(cancelled)"))
		case err != nil:
			fmt.Println(errorStyle.Render(err.Error()))
		default:
			fmt.Println(renderDone(done))
		}
	}
}

func ensureSession(ctx context.Context, client *Client, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	session, err := client.CreateSession(ctx)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return session.ID, nil
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("bookchat"),
		kong.Description("Ask questions about the textbook."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
