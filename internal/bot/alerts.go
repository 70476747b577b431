package bot

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v3"

	"freeco-signals/internal/domain"
)

type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// alertFilter selects which signals a chat hears about. An empty action means
// every action.
type alertFilter struct {
	action domain.Action
}

func (f alertFilter) matches(rec domain.SignalRecord) bool {
	return f.action == "" || rec.Signal.Features.Action == f.action
}

func (f alertFilter) String() string {
	if f.action == "" {
		return "all actions"
	}
	return string(f.action) + " only"
}

// AlertDispatcher relays every recorded signal to the chats that asked for it.
// Signals the broker never acknowledged are still announced, flagged with the
// publish error, so subscribers know the trading engine did not receive them.
type AlertDispatcher struct {
	sender messageSender

	mu    sync.RWMutex
	chats map[int64]alertFilter
}

func NewAlertDispatcher(sender messageSender) *AlertDispatcher {
	return &AlertDispatcher{
		sender: sender,
		chats:  make(map[int64]alertFilter),
	}
}

// Subscribe enables alerts for chatID, limited to action when it is set.
// It reports whether the chat's filter changed.
func (d *AlertDispatcher) Subscribe(chatID int64, action domain.Action) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := alertFilter{action: action}
	if cur, ok := d.chats[chatID]; ok && cur == next {
		return false
	}
	d.chats[chatID] = next
	return true
}

func (d *AlertDispatcher) Unsubscribe(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.chats[chatID]; !ok {
		return false
	}
	delete(d.chats, chatID)
	return true
}

// Subscription returns the chat's filter description and whether alerts are on.
func (d *AlertDispatcher) Subscription(chatID int64) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	f, ok := d.chats[chatID]
	return f.String(), ok
}

func (d *AlertDispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.chats)
}

// NotifySignal satisfies service.SignalNotifier. Delivery failures are logged.
func (d *AlertDispatcher) NotifySignal(rec domain.SignalRecord) {
	if err := d.Notify(context.Background(), rec); err != nil {
		log.Printf("telegram alert error: %v", err)
	}
}

// Notify sends rec to every matching chat and stops early once ctx is done.
func (d *AlertDispatcher) Notify(ctx context.Context, rec domain.SignalRecord) error {
	if d == nil || d.sender == nil {
		return nil
	}

	chatIDs := d.recipients(rec)
	if len(chatIDs) == 0 {
		return nil
	}

	msg := alertText(rec)
	var failures []string
	for _, chatID := range chatIDs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("signal #%d alerts interrupted: %w", rec.ID, err)
		}
		if _, err := d.sender.Send(&tele.Chat{ID: chatID}, msg); err != nil {
			failures = append(failures, fmt.Sprintf("chat %d: %v", chatID, err))
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("signal #%d alert failed for %d of %d chats: %s",
			rec.ID, len(failures), len(chatIDs), strings.Join(failures, "; "))
	}
	return nil
}

func (d *AlertDispatcher) recipients(rec domain.SignalRecord) []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	chatIDs := make([]int64, 0, len(d.chats))
	for chatID, f := range d.chats {
		if f.matches(rec) {
			chatIDs = append(chatIDs, chatID)
		}
	}
	slices.Sort(chatIDs)
	return chatIDs
}

func alertText(rec domain.SignalRecord) string {
	if rec.Published {
		return "New signal:\n" + formatSignal(rec)
	}
	reason := rec.PublishError
	if reason == "" {
		reason = "unknown error"
	}
	return fmt.Sprintf("Signal NOT delivered to %s: %s\n%s", rec.Topic, reason, formatSignal(rec))
}

// parseAlertArgs reads "/alerts [on [ACTION]|off|status]".
func parseAlertArgs(args []string) (string, domain.Action, error) {
	if len(args) == 0 {
		return "status", "", nil
	}

	mode := strings.ToLower(strings.TrimSpace(args[0]))
	switch mode {
	case "on":
		if len(args) == 1 {
			return mode, "", nil
		}
		if len(args) > 2 {
			return "", "", fmt.Errorf("too many arguments")
		}
		action, ok := domain.ParseAction(args[1])
		if !ok {
			return "", "", fmt.Errorf("unknown action %q", args[1])
		}
		return mode, action, nil
	case "off", "status":
		if len(args) > 1 {
			return "", "", fmt.Errorf("too many arguments")
		}
		return mode, "", nil
	default:
		return "", "", fmt.Errorf("invalid mode %q", args[0])
	}
}
