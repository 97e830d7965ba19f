// Command checkprofile fetches one profile page and prints the records the
// extractor finds on it. Strict mode is on by default so that pattern drift
// shows up as an error instead of an empty list.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"profile_watch_bot/internal/extractor"
	"profile_watch_bot/internal/fetcher"
)

func main() {
	url := flag.String("url", "", "profile URL, e.g. http://knigilub.ru/users/42")
	strict := flag.Bool("strict", true, "fail on entry blocks that do not match the record pattern")
	timeout := flag.Duration("timeout", 30*time.Second, "fetch timeout")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *url == "" {
		fmt.Fprintln(os.Stderr, "Usage: checkprofile -url <profile> [-strict=false] [-timeout 30s]")
		os.Exit(2)
	}

	f := fetcher.New(http.DefaultClient)
	f.SetTimeout(*timeout)

	page, err := f.Fetch(context.Background(), *url)
	if err != nil {
		log.Error("fetch profile", "profile", *url, "error", err)
		os.Exit(1)
	}

	x := &extractor.Extractor{Strict: *strict}
	records, err := x.Extract(*url, page)
	if err != nil {
		var extractErr *extractor.ExtractionError
		if errors.As(err, &extractErr) {
			log.Error("entry block does not match record pattern", "profile", extractErr.Profile, "block", extractErr.Block)
		} else {
			log.Error("extract records", "profile", *url, "error", err)
		}
		os.Exit(1)
	}

	log.Info("profile checked", "profile", *url, "blocks", len(extractor.Segment(page)), "records", len(records))
	for _, r := range records {
		fmt.Printf("%s\t%s\t%s\t%s\n", r.Name, r.URL, r.LastChanges, r.SizeChanges)
	}
	if len(records) == 0 {
		log.Warn("no records found; this profile would fail onboarding")
		os.Exit(1)
	}
}
