// Package roster loads the track layout and team/driver grid from a
// sqlite3 database, adapted from the teacher's settings.Manager
// (pkg/settings/manager.go) which opens the same driver for its
// notification-preferences store. Here the schema holds race setup data
// instead of per-user Telegram preferences.
package roster

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"f1race/internal/model"
	"f1race/internal/raceerr"
)

// DbName is the default sqlite3 file, mirroring the teacher's DbName
// constant convention (pkg/settings/manager.go).
const DbName = "./f1race.db"

// Manager owns the sqlite3 handle used to load a track layout and grid
// roster. It is read-mostly; a single mutex matches the teacher's
// Manager, which also serialises all access through one mutex even
// though database/sql is itself safe for concurrent use, because the
// init-schema step and the load queries must not interleave.
type Manager struct {
	db *sql.DB
	mu sync.Mutex
}

// NewManager opens (creating if absent) the sqlite3 database at path and
// ensures its schema exists.
func NewManager(path string) (*Manager, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("roster: opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("roster: initialising schema: %w", err)
	}
	return &Manager{db: db}, nil
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS segments (
	track_name TEXT NOT NULL,
	position   INTEGER NOT NULL,
	kind       INTEGER NOT NULL,
	length     REAL NOT NULL,
	base_ms    INTEGER NOT NULL,
	PRIMARY KEY (track_name, position)
);
CREATE TABLE IF NOT EXISTS teams (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS drivers (
	team       TEXT NOT NULL REFERENCES teams(name),
	car_number INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	skill      REAL NOT NULL
);
`

// LoadTrack reads the ordered segment list for trackName and assembles
// the main ring plus its pit-lane detour (spec.md section 3). Rows are
// split by kind: the pit-entry, pit-lane and pit-exit rows become the
// detour segments, and every other row joins the main ring in position
// order.
func (m *Manager) LoadTrack(trackName string) (*model.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.db.Query(
		`SELECT position, kind, length, base_ms FROM segments WHERE track_name = ? ORDER BY position ASC`,
		trackName,
	)
	if err != nil {
		return nil, fmt.Errorf("roster: loading track %q: %w", trackName, err)
	}
	defer rows.Close()

	track := &model.Track{}
	id := 0
	for rows.Next() {
		var position, kind int
		var length float64
		var baseMs int64
		if err := rows.Scan(&position, &kind, &length, &baseMs); err != nil {
			return nil, fmt.Errorf("roster: scanning segment row: %w", err)
		}
		seg := model.NewSegment(id, model.SegmentKind(kind), length, time.Duration(baseMs)*time.Millisecond)
		id++

		switch model.SegmentKind(kind) {
		case model.PitEntry:
			track.PitEntry = seg
		case model.PitLaneSegment:
			track.PitLane = seg
		case model.PitExit:
			track.PitExit = seg
		default:
			track.Main = append(track.Main, seg)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(track.Main) == 0 {
		return nil, fmt.Errorf("roster: track %q has no main-ring segments", trackName)
	}

	track.PitEntryBranchIndex = len(track.Main) - 1
	track.PitRejoinIndex = 0
	return track, nil
}

// LoadTeams reads every team and its two drivers, building a grid of
// model.Team/model.Car the way spec.md section 3 expects: exactly two
// cars per team, starting on the track's first main segment on soft
// tyres.
func (m *Manager) LoadTeams(track *model.Track) ([]*model.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	teamRows, err := m.db.Query(`SELECT name FROM teams ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("roster: loading teams: %w", err)
	}
	defer teamRows.Close()

	var teams []*model.Team
	for teamRows.Next() {
		var name string
		if err := teamRows.Scan(&name); err != nil {
			return nil, fmt.Errorf("roster: scanning team row: %w", err)
		}
		teams = append(teams, &model.Team{Name: name})
	}
	if err := teamRows.Err(); err != nil {
		return nil, err
	}

	startID := track.Main[0].ID
	for _, team := range teams {
		driverRows, err := m.db.Query(
			`SELECT car_number, name, skill FROM drivers WHERE team = ? ORDER BY car_number ASC`,
			team.Name,
		)
		if err != nil {
			return nil, fmt.Errorf("roster: loading drivers for %q: %w", team.Name, err)
		}

		slot := 0
		for driverRows.Next() {
			if slot >= len(team.Cars) {
				break
			}
			var number int
			var name string
			var skill float64
			if err := driverRows.Scan(&number, &name, &skill); err != nil {
				driverRows.Close()
				return nil, fmt.Errorf("roster: scanning driver row: %w", err)
			}
			car := model.NewCar(number, team.Name, model.Driver{Name: name, Skill: skill}, model.Soft)
			car.SetSegmentID(startID)
			team.Cars[slot] = car
			slot++
		}
		driverRows.Close()
		if slot < len(team.Cars) {
			// A team row with fewer than two driver rows is a corrupt
			// seed, not a transient store failure: fatal, like any other
			// violated precondition (spec.md section 7).
			err := fmt.Errorf("team %q has fewer than %d drivers", team.Name, len(team.Cars))
			return nil, raceerr.WrapProgramming(err, "roster")
		}
	}

	return teams, nil
}
