// Command telegramcontrol is a Telegram-driven control surface for the
// race controller, grounded on the teacher's main.go/menu.go command
// dispatch: a long-poll update loop that recognises a small set of
// slash commands and replies on the same chat, here mapped onto
// spec.md section 6's initialise/start_race/pause_race/resume_race/
// stop_race/set_simulation_speed/set_lap_count operations instead of
// the teacher's hotlap-browsing menu.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"f1race/internal/config"
	"f1race/internal/controller"
	"f1race/internal/logging"
	"f1race/internal/roster"
)

const (
	cmdInit   = "/init"
	cmdStart  = "/start_race"
	cmdPause  = "/pause"
	cmdResume = "/resume"
	cmdStop   = "/stop"
	cmdSpeed  = "/speed"
	cmdLaps   = "/laps"
	cmdHelp   = "/help"
)

func main() {
	token := os.Getenv("TELEGRAM_TOKEN")
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Panic(err)
	}
	bot.Debug = false

	rosterMgr, err := roster.NewManager(roster.DbName)
	if err != nil {
		log.Panicf("telegramcontrol: %s", err)
	}
	defer rosterMgr.Close()

	cfg := config.Default()
	sink := logging.NewStdSink(logging.Race)
	seed := rand.New(rand.NewSource(time.Now().UnixNano())).Int63()
	ctrl := controller.New(cfg, sink, rosterMgr, seed)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	ctx, cancel := context.WithCancel(context.Background())
	updates := bot.GetUpdatesChan(u)

	go receiveUpdates(ctx, bot, ctrl, updates)

	log.Println("telegramcontrol: listening for updates")
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs
	cancel()
}

func receiveUpdates(ctx context.Context, bot *tgbotapi.BotAPI, ctrl *controller.Controller, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			handleCommand(bot, ctrl, update.Message)
		}
	}
}

func handleCommand(bot *tgbotapi.BotAPI, ctrl *controller.Controller, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	fields := strings.Fields(message.Text)
	command := fields[0]
	args := fields[1:]

	reply := func(text string) {
		if _, err := bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			log.Printf("telegramcontrol: send failed: %s", err)
		}
	}

	switch command {
	case cmdHelp:
		reply(fmt.Sprintf("%s <track> <laps>\n%s\n%s\n%s\n%s\n%s <factor>\n%s <laps>",
			cmdInit, cmdStart, cmdPause, cmdResume, cmdStop, cmdSpeed, cmdLaps))

	case cmdInit:
		if len(args) != 2 {
			reply("usage: " + cmdInit + " <track> <laps>")
			return
		}
		laps, err := strconv.Atoi(args[1])
		if err != nil {
			reply("laps must be a number")
			return
		}
		if err := ctrl.Initialise(args[0], laps); err != nil {
			reply("initialise failed: " + err.Error())
			return
		}
		reply(fmt.Sprintf("grid set for %s over %d laps", args[0], laps))

	case cmdStart:
		ctrl.StartRace()
		reply("race starting")

	case cmdPause:
		ctrl.PauseRace()
		reply("race paused")

	case cmdResume:
		ctrl.ResumeRace()
		reply("race resumed")

	case cmdStop:
		ctrl.StopRace()
		reply("race stopped")

	case cmdSpeed:
		if len(args) != 1 {
			reply("usage: " + cmdSpeed + " <factor>")
			return
		}
		factor, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			reply("factor must be a number")
			return
		}
		ctrl.SetSimulationSpeed(factor)
		reply(fmt.Sprintf("simulation speed set to %.2fx", factor))

	case cmdLaps:
		if len(args) != 1 {
			reply("usage: " + cmdLaps + " <laps>")
			return
		}
		laps, err := strconv.Atoi(args[0])
		if err != nil {
			reply("laps must be a number")
			return
		}
		ctrl.SetLapCount(laps)
		reply(fmt.Sprintf("lap count set to %d", laps))

	default:
		reply("unknown command, try " + cmdHelp)
	}
}
