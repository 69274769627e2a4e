package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wricardo/mcp-training/game2048/game/engine"
)

const cellWidth = 6

var (
	tileColors = map[int][2]string{
		2:    {"#eee4da", "#776e65"},
		4:    {"#ede0c8", "#776e65"},
		8:    {"#f2b179", "#f9f6f2"},
		16:   {"#f59563", "#f9f6f2"},
		32:   {"#f67c5f", "#f9f6f2"},
		64:   {"#f65e3b", "#f9f6f2"},
		128:  {"#edcf72", "#f9f6f2"},
		256:  {"#edcc61", "#f9f6f2"},
		512:  {"#edc850", "#f9f6f2"},
		1024: {"#edc53f", "#f9f6f2"},
		2048: {"#edc22e", "#f9f6f2"},
	}
	superColors = [2]string{"#3c3a32", "#f9f6f2"}

	emptyStyle = lipgloss.NewStyle().
			Width(cellWidth).
			Align(lipgloss.Center).
			Background(lipgloss.Color("#cdc1b4")).
			Foreground(lipgloss.Color("#cdc1b4"))

	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#bbada0"))

	hudBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#edc22e")).
			Bold(true)

	gameOverStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff4444")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// tileStyle picks the colours for a value. Spawned and merged tiles are highlighted.
func tileStyle(value int, spawned, merged bool) lipgloss.Style {
	colors, ok := tileColors[value]
	if !ok {
		colors = superColors
	}
	style := lipgloss.NewStyle().
		Width(cellWidth).
		Align(lipgloss.Center).
		Background(lipgloss.Color(colors[0])).
		Foreground(lipgloss.Color(colors[1])).
		Bold(true)

	switch {
	case merged:
		style = style.Underline(true)
	case spawned:
		style = style.Italic(true).Foreground(lipgloss.Color("#00aa55"))
	}
	return style
}

// highlights are the cells touched by the last move
type highlights struct {
	spawned *engine.Position
	merged  map[engine.Position]bool
}

func highlightsFrom(result *engine.MoveResult) highlights {
	h := highlights{merged: map[engine.Position]bool{}}
	if result == nil {
		return h
	}
	h.spawned = result.Spawned
	for _, p := range result.Merged {
		h.merged[p] = true
	}
	return h
}

// RenderBoard draws the grid as coloured cells
func RenderBoard(grid engine.Grid, h highlights) string {
	if len(grid) == 0 {
		return "No board"
	}

	rows := make([]string, 0, len(grid))
	for r, row := range grid {
		cells := make([]string, 0, len(row))
		for c, v := range row {
			if v == 0 {
				cells = append(cells, emptyStyle.Render("."))
				continue
			}
			pos := engine.Position{Row: r, Col: c}
			spawned := h.spawned != nil && *h.spawned == pos
			cells = append(cells, tileStyle(v, spawned, h.merged[pos]).Render(fmt.Sprint(v)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return boardStyle.Render(strings.Join(rows, "\n"))
}

// RenderHUD shows score, best score and status
func RenderHUD(state *engine.GameState, configName string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("2048"))
	b.WriteString("\n\n")
	if configName != "" {
		fmt.Fprintf(&b, "Board: %s\n", configName)
	}
	fmt.Fprintf(&b, "Score: %d\n", state.Score)
	fmt.Fprintf(&b, "Best:  %d\n", state.BestScore)
	fmt.Fprintf(&b, "Max:   %d\n", state.MaxTile)
	fmt.Fprintf(&b, "Moves: %d\n", state.CurrentMovesCount)
	if state.BoardRisk != "" {
		fmt.Fprintf(&b, "Risk:  %s\n", state.BoardRisk)
	}
	if state.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", state.Message)
	}
	if state.GameOver {
		b.WriteString("\n")
		b.WriteString(gameOverStyle.Render("Game over"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("arrows/wasd move  r restart  q quit"))
	return hudBorderStyle.Render(b.String())
}
