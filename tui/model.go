package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/game2048/game/engine"
	"github.com/wricardo/mcp-training/game2048/game/scores"
	"github.com/wricardo/mcp-training/game2048/logging"
)

const storeTimeout = 2 * time.Second

// bestLoadedMsg carries the stored record for the current config
type bestLoadedMsg struct{ score int }

// scoreSubmittedMsg reports whether the store accepted a new record
type scoreSubmittedMsg struct{ accepted bool }

// errMsg carries a store error. The game keeps running.
type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// Model is the Bubbletea model for a local game
type Model struct {
	engine   *engine.GameEngine
	configID string
	store    scores.Store
	log      *zap.SugaredLogger

	last      highlights
	newRecord bool
	err       error
	quitting  bool
}

// NewModel creates a model playing on eng. store may be nil.
func NewModel(eng *engine.GameEngine, configID string, store scores.Store, log *zap.SugaredLogger) Model {
	if log == nil {
		log = logging.Nop()
	}
	return Model{
		engine:   eng,
		configID: configID,
		store:    store,
		log:      log,
		last:     highlightsFrom(nil),
	}
}

// Init loads the stored best score
func (m Model) Init() tea.Cmd {
	return m.loadBest()
}

// Update handles key presses and store replies
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case bestLoadedMsg:
		state := m.engine.GetState()
		if msg.score > state.BestScore {
			state.BestScore = msg.score
		}
		return m, nil

	case scoreSubmittedMsg:
		if msg.accepted {
			m.newRecord = true
		}
		return m, nil

	case errMsg:
		m.err = msg.err
		m.log.Warnw("score store", "error", msg.err)
		return m, nil
	}

	return m, nil
}

// View renders the board next to the HUD
func (m Model) View() string {
	if m.quitting {
		return "Bye!\n"
	}

	state := m.engine.GetState()
	board := RenderBoard(state.Grid, m.last)
	hud := RenderHUD(state, m.engine.GetConfig().Name)
	if m.newRecord {
		hud += "\n" + titleStyle.Render("New record!")
	}
	if m.err != nil {
		hud += "\n" + gameOverStyle.Render("Scores unavailable: "+m.err.Error())
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, board, "  ", hud) + "\n"
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// highlights last a single frame
	m.last = highlightsFrom(nil)

	key := msg.String()
	switch key {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "r":
		if _, err := m.engine.Reset(); err != nil {
			m.err = err
			return m, nil
		}
		m.newRecord = false
		return m, nil
	}

	if _, err := engine.ParseDirection(key); err != nil {
		return m, nil
	}

	result, err := m.engine.Move(key)
	if err != nil {
		m.err = err
		return m, nil
	}
	if !result.Changed {
		return m, nil
	}

	m.last = highlightsFrom(result)
	if m.engine.IsGameOver() || result.ScoreGained > 0 {
		return m, m.submit()
	}
	return m, nil
}

func (m Model) loadBest() tea.Cmd {
	if m.store == nil {
		return nil
	}
	store, configID := m.store, m.configID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		record, err := store.Best(ctx, configID)
		if errors.Is(err, scores.ErrNoScore) {
			return bestLoadedMsg{}
		}
		if err != nil {
			return errMsg{err}
		}
		return bestLoadedMsg{score: record.Score}
	}
}

// submit offers the current score to the store
func (m Model) submit() tea.Cmd {
	if m.store == nil {
		return nil
	}
	state := m.engine.GetState()
	record := scores.Record{
		ConfigID: m.configID,
		Score:    state.Score,
		MaxTile:  state.MaxTile,
		Moves:    state.CurrentMovesCount,
	}
	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		accepted, err := store.Submit(ctx, record)
		if err != nil {
			return errMsg{err}
		}
		return scoreSubmittedMsg{accepted: accepted}
	}
}

// Run starts the full-screen program and blocks until the player quits
func Run(eng *engine.GameEngine, configID string, store scores.Store, log *zap.SugaredLogger) error {
	p := tea.NewProgram(NewModel(eng, configID, store, log), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
