package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"freeco-signals/internal/chart"
	"freeco-signals/internal/domain"
)

const (
	defaultSignalCount = 5
	chartSignalCount   = 60
)

type SignalSource interface {
	ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.SignalRecord, error)
	LatestSignal(ctx context.Context) (domain.SignalRecord, bool, error)
	Snapshot(ctx context.Context) domain.MarketSnapshot
}

type ChartRenderer interface {
	RenderSignalHistory(recs []domain.SignalRecord) ([]byte, error)
}

// StartTelegramBot returns nil when no token is configured or the bot cannot
// reach Telegram.
func StartTelegramBot(token string, signals SignalSource) *AlertDispatcher {
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Printf("failed to create Telegram bot: %v", err)
		return nil
	}

	alerts := NewAlertDispatcher(b)
	cmds := &commands{signals: signals, alerts: alerts, charts: chart.NewRenderer()}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})
	b.Handle("/signal", cmds.latest)
	b.Handle("/signals", cmds.history)
	b.Handle("/market", cmds.market)
	b.Handle("/chart", cmds.chart)
	b.Handle("/alerts", cmds.alertsMode)

	log.Println("Telegram bot started")
	go b.Start()
	return alerts
}

type commands struct {
	signals SignalSource
	alerts  *AlertDispatcher
	charts  ChartRenderer
}

func (cmd *commands) latest(c tele.Context) error {
	if cmd.signals == nil {
		return c.Send("Signal service unavailable")
	}
	rec, ok, err := cmd.signals.LatestSignal(context.Background())
	if err != nil {
		return c.Send(fmt.Sprintf("Error fetching signal: %v", err))
	}
	if !ok {
		return c.Send("No signal published yet.")
	}
	return c.Send(formatSignal(rec))
}

func (cmd *commands) history(c tele.Context) error {
	if cmd.signals == nil {
		return c.Send("Signal service unavailable")
	}

	filter, err := parseSignalArgs(c.Args())
	if err != nil {
		return c.Send("Usage: /signals | /signals BUY | /signals SELL 10")
	}

	recs, err := cmd.signals.ListSignals(context.Background(), filter)
	if err != nil {
		return c.Send(fmt.Sprintf("Error fetching signals: %v", err))
	}
	if len(recs) == 0 {
		return c.Send("No matching signals right now.")
	}

	lines := make([]string, 0, len(recs)+1)
	lines = append(lines, "Latest signals:")
	for _, rec := range recs {
		lines = append(lines, formatSignalLine(rec))
	}
	return c.Send(strings.Join(lines, "\n"))
}

func (cmd *commands) market(c tele.Context) error {
	if cmd.signals == nil {
		return c.Send("Signal service unavailable")
	}
	snap := cmd.signals.Snapshot(context.Background())
	return c.Send(fmt.Sprintf(
		"%s\nPrice: %.6f\n24h Change: %.2f%%\n24h Volume: %.0f\nSource: %s",
		snap.Pair, snap.Price, snap.Change24h, snap.Volume24h, snap.Source,
	))
}

func (cmd *commands) chart(c tele.Context) error {
	if cmd.signals == nil || cmd.charts == nil {
		return c.Send("Signal service unavailable")
	}
	recs, err := cmd.signals.ListSignals(context.Background(), domain.SignalFilter{Limit: chartSignalCount})
	if err != nil {
		return c.Send(fmt.Sprintf("Error fetching signals: %v", err))
	}
	data, err := cmd.charts.RenderSignalHistory(recs)
	if errors.Is(err, chart.ErrNotEnoughSignals) {
		return c.Send("Not enough signals to chart yet.")
	}
	if err != nil {
		log.Printf("telegram chart render failed: %v", err)
		return c.Send("Unable to render chart right now.")
	}
	return c.Send(&tele.Photo{
		File:    tele.FromReader(bytes.NewReader(data)),
		Caption: fmt.Sprintf("%s last %d signals", recs[0].Pair, len(recs)),
	})
}

const alertsUsage = "Usage: /alerts on [BUY|SELL|HOLD] | /alerts off | /alerts status"

func (cmd *commands) alertsMode(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return c.Send("Unable to detect chat")
	}

	mode, action, err := parseAlertArgs(c.Args())
	if err != nil {
		return c.Send(alertsUsage)
	}

	switch mode {
	case "on":
		if cmd.alerts.Subscribe(chat.ID, action) {
			desc, _ := cmd.alerts.Subscription(chat.ID)
			return c.Send("Signal alerts enabled for this chat (" + desc + ").")
		}
		return c.Send("Signal alerts are already enabled for this chat.")
	case "off":
		if cmd.alerts.Unsubscribe(chat.ID) {
			return c.Send("Signal alerts disabled for this chat.")
		}
		return c.Send("Signal alerts are already disabled for this chat.")
	default:
		if desc, ok := cmd.alerts.Subscription(chat.ID); ok {
			return c.Send("Alerts status: ON (" + desc + ")")
		}
		return c.Send("Alerts status: OFF")
	}
}

func parseSignalArgs(args []string) (domain.SignalFilter, error) {
	filter := domain.SignalFilter{Limit: defaultSignalCount}
	seenLimit := false

	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		if n, err := strconv.Atoi(arg); err == nil {
			if seenLimit || n <= 0 || n > 20 {
				return domain.SignalFilter{}, errors.New("count must be between 1 and 20")
			}
			filter.Limit = n
			seenLimit = true
			continue
		}
		action, ok := domain.ParseAction(arg)
		if !ok {
			return domain.SignalFilter{}, errors.New("unknown action")
		}
		if filter.Action != "" {
			return domain.SignalFilter{}, errors.New("multiple actions provided")
		}
		filter.Action = action
	}

	return filter, nil
}

func formatSignal(rec domain.SignalRecord) string {
	f := rec.Signal.Features
	p := rec.Signal.Probabilities
	msg := fmt.Sprintf(
		"%s %s (confidence %.0f%%)\nPrice: %.6f (%+.2f%%)\nProbabilities short/neutral/long: %.2f/%.2f/%.2f\nTarget: %.2f%%\nProvider: %s",
		rec.Pair, f.Action, f.Confidence*100,
		f.Price, f.Change,
		p[0], p[1], p[2],
		rec.Signal.TargetPct*100,
		rec.Provider,
	)
	if f.Reasoning != "" {
		msg += "\n" + f.Reasoning
	}
	return msg
}

func formatSignalLine(rec domain.SignalRecord) string {
	return fmt.Sprintf(
		"#%d %s %.0f%% at %s via %s",
		rec.ID,
		rec.Signal.Features.Action,
		rec.Signal.Features.Confidence*100,
		time.UnixMilli(rec.Signal.Timestamp).UTC().Format(time.RFC822),
		rec.Provider,
	)
}
