package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/walletfeed/wallet-feed/internal/domain"
	"github.com/walletfeed/wallet-feed/internal/feedapi"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		server   string
		author   string
		text     string
		pageKey  string
		tag      string
		link     string
		provider string
		lat      float64
		lon      float64
		located  bool
	)

	flag.StringVar(&server, "server", envOrDefault("FEED_SERVER", "http://localhost:8080"), "Feed server base URL")
	flag.StringVar(&author, "author", envOrDefault("FEED_AUTHOR", ""), "Author wallet address (40 hex chars, no 0x prefix)")
	flag.StringVar(&text, "text", "", "Message text to post (e.g. '#build @abcd...')")
	flag.StringVar(&pageKey, "key", "", "Target user key for -tag or -link")
	flag.StringVar(&tag, "tag", "", "Hashtag to post on the target user (without #)")
	flag.StringVar(&link, "link", "", "Profile URL to attach to the target user")
	flag.StringVar(&provider, "provider", "", "Provider hint for -link (x, ig, tg)")
	flag.Float64Var(&lat, "lat", 0, "Latitude to attach")
	flag.Float64Var(&lon, "lon", 0, "Longitude to attach")
	flag.BoolVar(&located, "located", false, "Attach -lat/-lon to the message")
	flag.Parse()

	if author == "" {
		return fmt.Errorf("--author is required (or set FEED_AUTHOR)")
	}

	ctx := context.Background()
	client := feedapi.NewClient(server)

	var coords *domain.Coordinates
	if located {
		coords = &domain.Coordinates{Latitude: lat, Longitude: lon}
	}

	var (
		msg *domain.Message
		err error
	)
	switch {
	case text != "":
		msg, err = client.SubmitMessage(ctx, author, text, coords)
	case tag != "" && pageKey != "":
		msg, err = client.SubmitHashtag(ctx, author, pageKey, tag)
	case link != "" && pageKey != "":
		msg, err = client.SubmitLink(ctx, author, pageKey, link, provider)
	default:
		return fmt.Errorf("provide --text, or --key with --tag or --link")
	}
	if err != nil {
		return err
	}

	fmt.Printf("Posted message %s at %s\n", msg.ID, msg.Timestamp)
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
