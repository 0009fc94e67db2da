package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"chat-backend/pkg/api"
	"chat-backend/pkg/client"

	"github.com/schollz/progressbar/v3"
)

const usage = `usage: chatctl [-url URL] <command> [flags]

commands:
  history    -email EMAIL
  send       -email EMAIL -prompt PROMPT
  summarize  -email EMAIL (-file ARTICLE.json | -title T -description D -content C)
  transcript -email EMAIL [-out FILE]`

// withSpinner shows an indeterminate spinner on stderr while fn runs.
func withSpinner[T any](description string, fn func() (T, error)) (T, error) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	res, err := fn()
	close(stop)
	_ = bar.Finish()
	return res, err
}

func printHistory(history api.HistoryResponse) {
	fmt.Printf("chat %s (%s)\n", history.ChatId, history.Email)
	for _, msg := range history.Messages {
		speaker := "AI"
		if msg.Role == "user" {
			speaker = "You"
		}
		fmt.Printf("[%s] %s: %s\n", msg.CreatedAt.Local().Format("15:04"), speaker, msg.Text)
	}
}

func loadArticle(path string) (api.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.Article{}, fmt.Errorf("error reading article file: %w", err)
	}
	var article api.Article
	if err := json.Unmarshal(data, &article); err != nil {
		return api.Article{}, fmt.Errorf("error parsing article file: %w", err)
	}
	return article, nil
}

func main() {
	baseURL := flag.String("url", envOr("CHAT_API_URL", "http://localhost:5000"), "chat api base url")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	c := client.New(*baseURL)
	ctx := context.Background()

	command, args := flag.Arg(0), flag.Args()[1:]
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	email := fs.String("email", os.Getenv("CHAT_EMAIL"), "user email")

	switch command {
	case "history":
		fs.Parse(args)
		history, err := c.History(ctx, *email)
		if err != nil {
			log.Fatalf("error fetching history: %v", err)
		}
		printHistory(history)

	case "send":
		prompt := fs.String("prompt", "", "prompt to send")
		fs.Parse(args)
		answer, err := withSpinner("waiting for reply", func() (string, error) {
			return c.Send(ctx, *email, *prompt)
		})
		if err != nil {
			log.Fatalf("error sending prompt: %v", err)
		}
		fmt.Println(answer)

	case "summarize":
		file := fs.String("file", "", "json file with title, description and content")
		title := fs.String("title", "", "article title")
		description := fs.String("description", "", "article description")
		content := fs.String("content", "", "article content")
		fs.Parse(args)

		article := api.Article{Title: *title, Description: *description, Content: *content}
		if *file != "" {
			var err error
			if article, err = loadArticle(*file); err != nil {
				log.Fatal(err)
			}
		}

		summary, err := withSpinner("summarizing", func() (string, error) {
			return c.Summarize(ctx, *email, article)
		})
		if err != nil {
			log.Fatalf("error summarizing article: %v", err)
		}
		fmt.Println(summary)

	case "transcript":
		out := fs.String("out", "", "write the transcript to this file instead of stdout")
		fs.Parse(args)
		transcript, err := c.Transcript(ctx, *email)
		if err != nil {
			log.Fatalf("error fetching transcript: %v", err)
		}
		if *out == "" {
			fmt.Println(transcript)
			return
		}
		if err := os.WriteFile(*out, []byte(transcript), 0o644); err != nil {
			log.Fatalf("error writing transcript: %v", err)
		}
		log.Printf("transcript written to %s", *out)

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
