// Command consoleview is a terminal view of the race, grounded on the
// teacher's proof-of-concept poc/drivers-progress/main.go: a
// go-pretty/progress writer with one tracker per car, driven here by
// each car's live completed-lap count instead of the PoC's random walk,
// followed by a go-pretty/table classification once the race
// finishes.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/jedib0t/go-pretty/v6/table"

	"f1race/internal/config"
	"f1race/internal/controller"
	"f1race/internal/logging"
	"f1race/internal/racestate"
	"f1race/internal/roster"
)

func main() {
	dbPath := flag.String("db", roster.DbName, "sqlite3 roster database path")
	trackName := flag.String("track", "Monza", "track name to load from the roster")
	laps := flag.Int("laps", 20, "total laps")
	simSpeed := flag.Float64("speed", 4, "simulation speed multiplier")
	flag.Parse()

	rosterMgr, err := roster.NewManager(*dbPath)
	if err != nil {
		log.Fatalf("consoleview: %s", err)
	}
	defer rosterMgr.Close()

	cfg := config.New(config.WithSimSpeed(*simSpeed))
	sink := logging.NewStdSink(logging.Race)
	seed := rand.New(rand.NewSource(time.Now().UnixNano())).Int63()

	ctrl := controller.New(cfg, sink, rosterMgr, seed)
	if err := ctrl.Initialise(*trackName, *laps); err != nil {
		log.Fatalf("consoleview: %s", err)
	}

	pw := progress.NewWriter()
	pw.SetAutoStop(false)
	pw.SetTrackerLength(34)
	pw.SetMessageWidth(16)
	pw.SetNumTrackersExpected(len(ctrl.State.Cars))
	pw.SetSortBy(progress.SortByMessage)
	pw.SetStyle(progress.StyleDefault)
	pw.SetTrackerPosition(progress.PositionRight)
	pw.SetUpdateFrequency(cfg.GUIUpdateInterval)
	pw.Style().Colors = progress.StyleColorsDefault
	pw.Style().Options.Separator = ""
	pw.Style().Visibility.ETA = false
	pw.Style().Visibility.ETAOverall = false
	pw.Style().Visibility.Speed = false
	pw.Style().Visibility.SpeedOverall = false
	pw.Style().Visibility.TrackerOverall = false
	pw.Style().Visibility.Pinned = false
	pw.Style().Chars.BoxLeft = "|"
	pw.Style().Chars.BoxRight = "🏁"

	trackers := make(map[int]*progress.Tracker, len(ctrl.State.Cars))
	for _, car := range ctrl.State.Cars {
		t := &progress.Tracker{
			Message: fmt.Sprintf("#%d %s", car.Number, car.Driver.Name),
			Total:   int64(*laps),
			Units:   progress.UnitsDefault,
		}
		trackers[car.Number] = t
		pw.AppendTracker(t)
	}

	go pw.Render()

	bus := ctrl.Bus()
	logLines := bus.SubscribeLog()
	standings := bus.SubscribeStandingsChanged()
	finished := bus.SubscribeRaceFinished()

	go func() {
		for e := range logLines {
			fmt.Fprintln(os.Stderr, e.Message)
		}
	}()

	done := make(chan []racestate.Result, 1)
	go func() {
		for {
			select {
			case <-standings:
				for _, car := range ctrl.State.Cars {
					if t, ok := trackers[car.Number]; ok {
						t.SetValue(int64(car.CompletedLaps()))
					}
				}
			case r := <-finished:
				for _, car := range ctrl.State.Cars {
					if t, ok := trackers[car.Number]; ok {
						t.MarkAsDone()
					}
				}
				done <- r.Entries
				return
			}
		}
	}()

	ctrl.StartRace()
	results := <-done
	time.Sleep(500 * time.Millisecond)

	renderResults(results)
	ctrl.Wait()
}

func renderResults(results []racestate.Result) {
	var b bytes.Buffer
	t := table.NewWriter()
	t.SetOutputMirror(&b)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Pos", "Car", "Driver", "Team", "Time", "Best lap", "Stops", "Gap"})

	for _, r := range results {
		gap := "-"
		switch {
		case r.Position == 1:
			gap = "leader"
		case r.LapsBehind > 0:
			gap = fmt.Sprintf("+%d lap(s)", r.LapsBehind)
		default:
			gap = "+" + r.GapToLeader.Round(time.Millisecond).String()
		}
		t.AppendRow(table.Row{r.Position, r.CarNumber, r.Driver, r.Team, r.TotalTime.Round(time.Millisecond), r.BestLap.Round(time.Millisecond), r.PitStops, gap})
	}
	t.Render()
	fmt.Println(b.String())
}
