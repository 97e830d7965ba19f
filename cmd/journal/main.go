// Command journal prints what a file-backed journal recorded.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"profile_watch_bot/internal/storage"
)

func main() {
	dsn := flag.String("db", os.Getenv("JOURNAL_DSN"), "path to the sqlite journal")
	chatID := flag.Int64("chat", 0, "chat id for the deliveries command")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: journal -db path <command>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  subscriptions    List registered subscribers")
		fmt.Fprintln(os.Stderr, "  deliveries       List notifications sent to -chat")
		fmt.Fprintln(os.Stderr, "  counts           Show delivered notifications per chat")
		fmt.Fprintln(os.Stderr, "  failures         List subscribers that failed onboarding")
		os.Exit(1)
	}
	if *dsn == "" || *dsn == ":memory:" {
		log.Fatal("a file-backed journal is required: pass -db or set JOURNAL_DSN")
	}

	j, err := storage.NewSQLite(*dsn)
	if err != nil {
		log.Fatalf("open journal: %v", err)
	}
	defer func() { _ = j.Close() }()

	ctx := context.Background()
	cmd := args[0]
	switch cmd {
	case "subscriptions":
		err = printSubscriptions(ctx, j)
	case "deliveries":
		if *chatID == 0 {
			log.Fatal("deliveries requires -chat")
		}
		err = printDeliveries(ctx, j, *chatID)
	case "counts":
		err = printCounts(ctx, j)
	case "failures":
		err = printFailures(ctx, j)
	default:
		log.Fatalf("unknown command: %s", cmd)
	}

	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func printSubscriptions(ctx context.Context, j storage.Journal) error {
	subs, err := j.ListSubscriptions(ctx)
	if err != nil {
		return err
	}
	for _, s := range subs {
		fmt.Printf("%s\t%d\t%s\n", s.CreatedAt.Format(time.RFC3339), s.ChatID, s.Profile)
	}
	return nil
}

func printDeliveries(ctx context.Context, j storage.Journal, chatID int64) error {
	deliveries, err := j.ListDeliveries(ctx, chatID)
	if err != nil {
		return err
	}
	for _, d := range deliveries {
		fmt.Printf("%s\t%s\n", d.SentAt.Format(time.RFC3339), d.Text)
	}
	return nil
}

func printCounts(ctx context.Context, j storage.Journal) error {
	counts, err := j.DeliveryCounts(ctx)
	if err != nil {
		return err
	}
	for _, c := range counts {
		fmt.Printf("%d\t%d\n", c.ChatID, c.Count)
	}
	return nil
}

func printFailures(ctx context.Context, j storage.Journal) error {
	failures, err := j.ListFailures(ctx)
	if err != nil {
		return err
	}
	for _, f := range failures {
		fmt.Printf("%s\t%d\t%s\t%s\n", f.CreatedAt.Format(time.RFC3339), f.ChatID, f.Profile, f.Reason)
	}
	return nil
}
