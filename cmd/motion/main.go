// Command motion is a terminal chat frontend for the motion server. It hosts
// the conversation session controller and maps its environment hooks onto
// the terminal: notices print as status lines, navigation updates the prompt.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"

	"github.com/manu-0990/motion/internal/client"
	"github.com/manu-0990/motion/internal/service"
	"github.com/manu-0990/motion/internal/session"
	"github.com/manu-0990/motion/internal/types"
)

// Config holds client configuration.
type Config struct {
	ServerURL      string `envconfig:"MOTION_SERVER_URL" default:"http://localhost:8080"`
	Token          string `envconfig:"MOTION_TOKEN" required:"true"`
	ConversationID string `envconfig:"MOTION_CONVERSATION_ID"`
}

// terminal adapts the session controller's environment ports to stdout.
type terminal struct {
	location string
}

func (t *terminal) Location() string { return t.location }

func (t *terminal) Navigate(conversationID string) {
	t.location = conversationID
	fmt.Printf("-- opened conversation %s\n", conversationID)
}

func (t *terminal) Success(message string) { fmt.Printf("ok: %s\n", message) }
func (t *terminal) Error(message string)   { fmt.Printf("error: %s\n", message) }

// listRefresher re-fetches the conversation list when the controller signals
// that a cached list went stale.
type listRefresher struct {
	api *client.Client
}

func (r *listRefresher) Invalidate(ctx context.Context) error {
	convs, err := r.api.Conversations(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("-- %d conversation(s)\n", len(convs))
	return nil
}

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{})

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	userID, err := userIDFromToken(cfg.Token)
	if err != nil {
		logger.WithError(err).Fatal("invalid MOTION_TOKEN")
	}

	api := client.New(cfg.ServerURL, cfg.Token)
	term := &terminal{location: cfg.ConversationID}

	ctrl := session.New(session.Config{
		UserID:    userID,
		Generator: api,
		Reviewer:  api,
		History:   api,
		Navigator: term,
		Notifier:  term,
		Cache:     &listRefresher{api: api},
		Logger:    logger,
	})

	ctx := context.Background()
	ctrl.Bootstrap(ctx)
	printTranscript(ctrl.Messages())

	fmt.Println(`Describe the concept you want to visualize. Commands: /approve <message-id>, /reject <message-id>, /history, /quit`)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "/quit":
			return
		case line == "/history":
			printTranscript(ctrl.Messages())
		case strings.HasPrefix(line, "/approve "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/approve "))
			code, ok := codeForMessage(ctrl.Messages(), id)
			if !ok {
				fmt.Println("error: no code block found for that message")
				continue
			}
			if err := ctrl.Approve(ctx, id, code); errors.Is(err, session.ErrReviewInFlight) {
				fmt.Println("error: another review is still running")
			}
		case strings.HasPrefix(line, "/reject "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/reject "))
			if err := ctrl.Reject(ctx, id); errors.Is(err, session.ErrReviewInFlight) {
				fmt.Println("error: another review is still running")
			}
			printLast(ctrl.Messages())
		default:
			ctrl.SetDraft(line)
			if err := ctrl.SendMessage(ctx, ctrl.Draft()); err == nil {
				printLast(ctrl.Messages())
			}
		}
	}
}

// userIDFromToken reads the user id claim without verifying the signature;
// the server is the one that enforces it.
func userIDFromToken(token string) (string, error) {
	claims := &service.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", err
	}
	if claims.UserID == "" {
		return "", errors.New("token missing user id")
	}
	return claims.UserID, nil
}

var codeBlockRe = regexp.MustCompile("(?s)```(?:python)?\n(.*?)```")

// codeForMessage extracts the embedded code block from a transcript message.
func codeForMessage(msgs []types.Message, id string) (string, bool) {
	for _, m := range msgs {
		if m.ID == id {
			match := codeBlockRe.FindStringSubmatch(m.Content)
			if match == nil {
				return "", false
			}
			return match[1], true
		}
	}
	return "", false
}

func printTranscript(msgs []types.Message) {
	for _, m := range msgs {
		printMessage(m)
	}
}

func printLast(msgs []types.Message) {
	if len(msgs) > 0 {
		printMessage(msgs[len(msgs)-1])
	}
}

func printMessage(m types.Message) {
	status := ""
	if m.IsApproved {
		status = fmt.Sprintf(" [approved, video %s]", m.VideoID)
	} else if m.IsRejected {
		status = " [rejected]"
	}
	fmt.Printf("[%s] %s%s\n%s\n", m.Role, m.ID, status, m.Content)
}
