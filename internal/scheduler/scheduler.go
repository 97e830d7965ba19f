// Package scheduler runs the three periodic tasks of the watcher:
// discovering subscribers, polling their profiles and delivering queued
// notifications. Each task runs on its own ticker in its own goroutine, so a
// slow poll never delays delivery, while a single task never overlaps itself.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"profile_watch_bot/internal/bot"
	"profile_watch_bot/internal/extractor"
	"profile_watch_bot/internal/fetcher"
	"profile_watch_bot/internal/storage"
	"profile_watch_bot/internal/subscriber"
)

// Messenger is the interface for reading updates and sending Telegram messages.
type Messenger interface {
	Updates(offset int) ([]bot.Update, error)
	SendMarkdown(chatID int64, text string) error
}

const (
	defaultDiscoveryInterval = 10 * time.Minute
	defaultPollInterval      = 5 * time.Minute
	defaultDeliveryInterval  = 10 * time.Second
	defaultSendRate          = 20
)

// Scheduler owns the registry and the update cursor and drives all tasks.
type Scheduler struct {
	registry  *subscriber.Registry
	matcher   *bot.ProfileMatcher
	fetcher   *fetcher.Fetcher
	messenger Messenger
	journal   storage.Journal
	allow     func(chatID int64) bool
	limiter   *rate.Limiter
	log       *slog.Logger

	discoveryEvery time.Duration
	pollEvery      time.Duration
	deliveryEvery  time.Duration

	// cursor is the highest update ID acknowledged to Telegram.
	// Only the discovery task reads or writes it.
	cursor int
}

// New creates a Scheduler with default intervals and no allow list.
func New(
	registry *subscriber.Registry,
	matcher *bot.ProfileMatcher,
	f *fetcher.Fetcher,
	messenger Messenger,
	journal storage.Journal,
	log *slog.Logger,
) *Scheduler {
	return &Scheduler{
		registry:       registry,
		matcher:        matcher,
		fetcher:        f,
		messenger:      messenger,
		journal:        journal,
		allow:          func(int64) bool { return true },
		limiter:        rate.NewLimiter(rate.Limit(defaultSendRate), 1),
		log:            log,
		discoveryEvery: defaultDiscoveryInterval,
		pollEvery:      defaultPollInterval,
		deliveryEvery:  defaultDeliveryInterval,
	}
}

// SetIntervals overrides the task periods. Non-positive values keep the
// current period.
func (s *Scheduler) SetIntervals(discovery, poll, delivery time.Duration) {
	if discovery > 0 {
		s.discoveryEvery = discovery
	}
	if poll > 0 {
		s.pollEvery = poll
	}
	if delivery > 0 {
		s.deliveryEvery = delivery
	}
}

// SetSendRate limits outgoing messages to perSecond across all chats.
func (s *Scheduler) SetSendRate(perSecond int) {
	if perSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// SetAllowFunc restricts which chats may subscribe.
func (s *Scheduler) SetAllowFunc(allow func(chatID int64) bool) {
	if allow != nil {
		s.allow = allow
	}
}

type task struct {
	name  string
	every time.Duration
	run   func(ctx context.Context)
}

// Run starts all tasks and blocks until ctx is cancelled and every task
// has returned.
func (s *Scheduler) Run(ctx context.Context) {
	tasks := []task{
		{name: "discovery", every: s.discoveryEvery, run: s.discover},
		{name: "poll", every: s.pollEvery, run: s.poll},
		{name: "delivery", every: s.deliveryEvery, run: s.deliver},
	}

	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, t)
		}()
	}
	wg.Wait()
}

// loop runs t immediately and then on every tick. A tick that arrives while
// the task is still running is dropped by the ticker.
func (s *Scheduler) loop(ctx context.Context, t task) {
	s.log.Info("task started", "task", t.name, "every", t.every)
	t.run(ctx)

	ticker := time.NewTicker(t.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("task stopped", "task", t.name)
			return
		case <-ticker.C:
			t.run(ctx)
		}
	}
}

// discover drains the update backlog. Telegram caps each batch, so a full
// batch is followed by another request in the same tick.
func (s *Scheduler) discover(ctx context.Context) {
	for ctx.Err() == nil {
		before := s.cursor
		n, err := s.discoverBatch(ctx)
		if err != nil {
			s.log.Error("get updates", "offset", before+1, "error", err)
			return
		}
		if n < bot.MaxUpdatesPerCall || s.cursor == before {
			return
		}
	}
}

func (s *Scheduler) discoverBatch(ctx context.Context) (int, error) {
	updates, err := s.messenger.Updates(s.cursor + 1)
	if err != nil {
		return 0, err
	}

	for _, u := range updates {
		if u.ID > s.cursor {
			s.cursor = u.ID
		}
		if u.Message == nil {
			s.log.Debug("skipping update without message", "update_id", u.ID)
			continue
		}
		s.handleMessage(ctx, u.Message)
	}
	return len(updates), nil
}

func (s *Scheduler) handleMessage(ctx context.Context, msg *bot.Message) {
	profile, ok := s.matcher.Match(msg.Text)
	if !ok {
		return
	}
	if !s.allow(msg.ChatID) {
		s.log.Warn("subscription from chat outside allow list", "chat_id", msg.ChatID)
		return
	}
	if _, created := s.registry.Add(msg.ChatID, profile); !created {
		return
	}

	s.log.Info("new subscriber", "chat_id", msg.ChatID, "profile", profile)
	if err := s.journal.RecordSubscription(ctx, msg.ChatID, profile); err != nil {
		s.log.Error("journal subscription", "chat_id", msg.ChatID, "error", err)
	}
}

func (s *Scheduler) poll(ctx context.Context) {
	for _, sub := range s.registry.Snapshot() {
		if ctx.Err() != nil {
			return
		}
		if sub.State() == subscriber.StateFailed {
			continue
		}
		s.pollSubscriber(ctx, sub)
	}
}

func (s *Scheduler) pollSubscriber(ctx context.Context, sub *subscriber.Subscriber) {
	s.log.Debug("checking profile", "chat_id", sub.ID, "profile", sub.Profile)

	page, err := s.fetcher.Fetch(ctx, sub.Profile)
	if err != nil {
		s.log.Error("fetch profile", "chat_id", sub.ID, "profile", sub.Profile, "error", err)
		return
	}

	err = sub.Diff(page)
	var extractErr *extractor.ExtractionError
	switch {
	case err == nil:
		s.log.Debug("profile checked", "chat_id", sub.ID, "seen", sub.SeenLen(), "pending", sub.PendingLen())
	case errors.Is(err, subscriber.ErrEmptyBaseline):
		s.log.Error("no records on first check, polling disabled", "chat_id", sub.ID, "profile", sub.Profile)
		if jerr := s.journal.RecordFailure(ctx, sub.ID, sub.Profile, err.Error()); jerr != nil {
			s.log.Error("journal failure", "chat_id", sub.ID, "error", jerr)
		}
	case errors.As(err, &extractErr):
		s.log.Error("entry block does not match record pattern",
			"chat_id", sub.ID, "profile", extractErr.Profile, "block", extractErr.Block)
	default:
		s.log.Error("diff profile", "chat_id", sub.ID, "profile", sub.Profile, "error", err)
	}
}

func (s *Scheduler) deliver(ctx context.Context) {
	sent := 0
	for _, sub := range s.registry.Snapshot() {
		if ctx.Err() != nil {
			return
		}
		text, ok := sub.Peek()
		if !ok {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		if err := s.messenger.SendMarkdown(sub.ID, text); err != nil {
			if errors.Is(err, bot.ErrRejected) {
				sub.Pop()
				s.log.Error("notification rejected, dropped", "chat_id", sub.ID, "text", text, "error", err)
				continue
			}
			s.log.Error("send notification", "chat_id", sub.ID, "error", err)
			continue
		}

		sub.Pop()
		sent++
		if err := s.journal.RecordDelivery(ctx, sub.ID, text); err != nil {
			s.log.Error("journal delivery", "chat_id", sub.ID, "error", err)
		}
	}

	if sent > 0 {
		s.log.Info("sent notifications", "count", sent)
	}
}
