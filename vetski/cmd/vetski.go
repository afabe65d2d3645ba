// Command vetski uploads consultation audio and chats with the assistant
// from a terminal.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
	"vetski/vetski/config"
	"vetski/vetski/services/uploader"
	"vetski/vetski/utils/color"
	httputils "vetski/vetski/utils/http"
	"vetski/vetski/utils/jsonutils"
	"vetski/vetski/utils/logging"
	"vetski/vetski/utils/types"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func main() {
	logging.InitLogger()
	defer logging.Sync()
	cfg := config.LoadConfig()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	if cfg.CLIToken == "" && os.Args[1] != "token" {
		fmt.Println(color.Warning("VETSKI_TOKEN is not set; requests will be rejected"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "upload":
		err = runUpload(ctx, cfg, os.Args[2:])
	case "chat":
		err = runChat(ctx, cfg, os.Args[2:])
	case "sync":
		err = runSync(ctx, cfg, os.Args[2:])
	case "token":
		err = runToken(cfg, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Println(color.Error(err.Error()))
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Vetski CLI usage:")
	fmt.Println("  vetski upload -consultation <id> [-animal <id>] [-language en] [-speakers 2] [-vocabulary words] [-interval 0s] chunk...")
	fmt.Println("  vetski chat (-consultation <id> | -conversation <id>)")
	fmt.Println("  vetski sync -consultation <id>")
	fmt.Println("  vetski token -user <uuid> [-email addr] [-ttl 24h]")
}

// runUpload dispatches one chunk per file. Ctrl-C stops further chunks;
// those already sent still finish at the provider.
func runUpload(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	consultation := fs.String("consultation", "", "consultation id")
	animal := fs.String("animal", "", "animal id")
	language := fs.String("language", "", "spoken language code")
	vocabulary := fs.String("vocabulary", "", "domain words to bias recognition")
	speakers := fs.Int("speakers", 0, "expected number of speakers")
	interval := fs.Duration("interval", 0, "pause between chunks, e.g. 30s to mimic live recording")
	fs.Parse(args)

	if *consultation == "" || fs.NArg() == 0 {
		return fmt.Errorf("upload needs -consultation and at least one chunk file")
	}

	up := uploader.New(cfg.ServerURL, cfg.CLIToken)
	up.OnResult = func(c uploader.Chunk, resp *uploader.SubmitResponse, err error) {
		if err != nil {
			fmt.Println(color.Error(fmt.Sprintf("✗ %s: %v", c.Filename, err)))
			return
		}
		fmt.Println(color.Info(fmt.Sprintf("✓ %s → job %s (%s)", c.Filename, resp.ID, resp.Status)))
	}

	for i, path := range fs.Args() {
		if ctx.Err() != nil {
			up.Stop()
			fmt.Println(color.Warning("stopped, waiting for chunks in flight"))
			break
		}
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Println(color.Error(fmt.Sprintf("✗ %s: %v", path, err)))
			continue
		}
		up.Dispatch(context.Background(), uploader.Chunk{
			Data:           data,
			Filename:       filepath.Base(path),
			ContentType:    mime.TypeByExtension(filepath.Ext(path)),
			ConsultationID: *consultation,
			AnimalID:       *animal,
			Language:       *language,
			Vocabulary:     *vocabulary,
			Speakers:       *speakers,
		})
		if *interval > 0 && i < fs.NArg()-1 {
			select {
			case <-time.After(*interval):
			case <-ctx.Done():
			}
		}
	}

	stats := up.Wait()
	summary := fmt.Sprintf("%d chunk(s) submitted, %d failed", stats.Sent, stats.Failed)
	fmt.Println(color.UploadSummary(summary, stats.Failed > 0))
	return nil
}

func runChat(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	consultation := fs.String("consultation", "", "consultation id")
	conversation := fs.String("conversation", "", "conversation id")
	fs.Parse(args)

	var url string
	switch {
	case *consultation != "":
		url = cfg.ServerURL + "/consultations/" + *consultation + "/chat"
	case *conversation != "":
		url = cfg.ServerURL + "/conversations/" + *conversation + "/chat"
	default:
		return fmt.Errorf("chat needs -consultation or -conversation")
	}

	fmt.Println("Type your question or 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(color.Prompt("vetski> "))
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			return nil
		}
		if line == "" {
			continue
		}
		if err := streamTurn(ctx, cfg.CLIToken, url, line); err != nil {
			fmt.Println(color.Error(err.Error()))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func streamTurn(ctx context.Context, token, url, content string) error {
	body, err := httputils.PostStream(ctx, url, token, types.ChatTurnRequest{Content: content})
	if err != nil {
		return err
	}
	defer body.Close()

	reader := bufio.NewReader(body)
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}
		data, ok := strings.CutPrefix(strings.TrimSpace(line), "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			fmt.Println()
			return nil
		}
		var chunk types.StreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		fmt.Print(color.AssistantReply(chunk.Content))
	}
}

func runSync(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	consultation := fs.String("consultation", "", "consultation id")
	fs.Parse(args)
	if *consultation == "" {
		return fmt.Errorf("sync needs -consultation")
	}

	var res map[string]interface{}
	url := cfg.ServerURL + "/consultations/" + *consultation + "/transcript/sync"
	if err := httputils.PostJSON(ctx, url, cfg.CLIToken, struct{}{}, &res); err != nil {
		return err
	}
	fmt.Println(color.Info(jsonutils.ToJSON(res)))
	return nil
}

// runToken mints a bearer token signed with JWT_SECRET for local testing.
func runToken(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	user := fs.String("user", "", "user uuid (random when empty)")
	email := fs.String("email", "", "email claim")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	fs.Parse(args)

	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	sub := *user
	if sub == "" {
		sub = uuid.NewString()
	} else if _, err := uuid.Parse(sub); err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(*ttl).Unix(),
	}
	if *email != "" {
		claims["email"] = *email
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
