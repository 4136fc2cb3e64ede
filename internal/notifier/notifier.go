// Package notifier fans a race_finished event out to subscribed Telegram
// chats, adapted from the teacher's notification.Manager
// (pkg/notification/manager.go), which does the same thing for a
// session-started event: build a notify.Notifier over a Telegram
// service, add every subscriber chat ID, send.
package notifier

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nikoksr/notify"
	"github.com/nikoksr/notify/service/telegram"

	"f1race/internal/eventbus"
	"f1race/internal/racestate"
)

// Lister supplies the chat IDs subscribed to race-finished notifications,
// mirroring the teacher's Lister interface which the real settings store
// satisfies.
type Lister interface {
	ListRaceFinishedSubscribers() ([]int64, error)
}

// Manager sends a race-finished summary to every subscriber whenever the
// director publishes a results event.
type Manager struct {
	ctx    context.Context
	bot    *tgbotapi.BotAPI
	lister Lister
}

// NewManager builds a notifier bound to bot and lister.
func NewManager(ctx context.Context, bot *tgbotapi.BotAPI, lister Lister) *Manager {
	return &Manager{ctx: ctx, bot: bot, lister: lister}
}

// Run subscribes to bus's race-finished topic and sends a notification
// for every event until exitChan closes.
func (m *Manager) Run(bus *eventbus.Bus[racestate.Result], exitChan <-chan bool) {
	events := bus.SubscribeRaceFinished()
	for {
		select {
		case <-exitChan:
			return
		case e := <-events:
			if err := m.notify(e.Entries); err != nil {
				fmt.Printf("notifier: error sending race-finished notification: %s\n", err)
			}
		}
	}
}

func (m *Manager) notify(results []racestate.Result) error {
	chatIDs, err := m.lister.ListRaceFinishedSubscribers()
	if err != nil {
		return fmt.Errorf("listing subscribers: %w", err)
	}
	if len(chatIDs) == 0 {
		return nil
	}

	tg, err := telegram.New(m.bot.Token)
	if err != nil {
		return fmt.Errorf("building telegram service: %w", err)
	}
	tg.AddReceivers(chatIDs...)

	n := notify.NewWithServices(tg)
	return n.Send(m.ctx, "Race finished", formatResults(results))
}

func formatResults(results []racestate.Result) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%d. #%d %s (%s)\n", r.Position, r.CarNumber, r.Driver, r.Team)
	}
	return b.String()
}
