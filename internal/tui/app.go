// Package tui provides the interactive terminal UI for sockdo.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/sockdo/internal/models"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	itemStyle = lipgloss.NewStyle().
			Padding(0, 2)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 2)

	doneStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Strikethrough(true)

	onlineStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	offlineStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)

// API is the gateway surface the TUI needs.
type API interface {
	ListTodos(ctx context.Context) ([]models.Todo, error)
	CreateTodo(ctx context.Context, title string) (*models.Todo, error)
	SetCompleted(ctx context.Context, id int64, completed bool) (*models.Todo, error)
	Rename(ctx context.Context, id int64, title string) (*models.Todo, error)
	DeleteTodo(ctx context.Context, id int64) error
	CheckHealth(ctx context.Context) (*models.GatewayHealth, error)
}

type mode int

const (
	modeList mode = iota
	modeAdd
	modeRename
)

// App is the main TUI application model.
type App struct {
	api           API
	todos         []models.Todo
	selectedIdx   int
	input         textinput.Model
	mode          mode
	width         int
	height        int
	message       string
	loading       bool
	gatewayOnline bool
	backendOnline bool
}

// New creates a new TUI application.
func New(api API) *App {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 60

	return &App{
		api:     api,
		input:   ti,
		loading: true,
		width:   80,
		height:  24,
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.fetchTodos(),
		a.checkHealth(),
		a.tickCmd(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if a.mode != modeList {
			return a.updateInput(msg)
		}
		return a.updateList(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 6

	case todosLoadedMsg:
		a.loading = false
		a.todos = msg.todos
		if a.selectedIdx >= len(a.todos) {
			a.selectedIdx = max(0, len(a.todos)-1)
		}

	case healthMsg:
		a.gatewayOnline = msg.health != nil
		a.backendOnline = msg.err == nil && msg.health != nil && msg.health.Backend != nil

	case tickMsg:
		return a, tea.Batch(a.checkHealth(), a.tickCmd())

	case commandResultMsg:
		a.message = msg.message
		return a, a.fetchTodos()

	case errMsg:
		a.loading = false
		a.message = "Error: " + msg.err.Error()
	}

	return a, nil
}

func (a *App) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, keys.Up):
		if a.selectedIdx > 0 {
			a.selectedIdx--
		}

	case key.Matches(msg, keys.Down):
		if a.selectedIdx < len(a.todos)-1 {
			a.selectedIdx++
		}

	case key.Matches(msg, keys.Toggle):
		if todo, ok := a.selected(); ok {
			return a, a.toggleTodo(todo)
		}

	case key.Matches(msg, keys.Add):
		a.startInput(modeAdd, "")
		return a, textinput.Blink

	case key.Matches(msg, keys.Edit):
		if todo, ok := a.selected(); ok {
			a.startInput(modeRename, todo.Title)
			return a, textinput.Blink
		}

	case key.Matches(msg, keys.Delete):
		if todo, ok := a.selected(); ok {
			return a, a.deleteTodo(todo.ID)
		}

	case key.Matches(msg, keys.Refresh):
		a.message = ""
		return a, tea.Batch(a.fetchTodos(), a.checkHealth())
	}
	return a, nil
}

func (a *App) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return a, tea.Quit

	case key.Matches(msg, keys.Cancel):
		a.stopInput()
		return a, nil

	case key.Matches(msg, keys.Submit):
		value := strings.TrimSpace(a.input.Value())
		m := a.mode
		a.stopInput()
		switch m {
		case modeAdd:
			if value == "" {
				a.message = "Error: Title is required"
				return a, nil
			}
			return a, a.createTodo(value)
		case modeRename:
			if todo, ok := a.selected(); ok {
				return a, a.renameTodo(todo.ID, value)
			}
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) startInput(m mode, value string) {
	a.mode = m
	a.message = ""
	if m == modeAdd {
		a.input.Placeholder = "What needs doing?"
	} else {
		a.input.Placeholder = "New title"
	}
	a.input.SetValue(value)
	a.input.CursorEnd()
	a.input.Focus()
}

func (a *App) stopInput() {
	a.mode = modeList
	a.input.Blur()
	a.input.SetValue("")
}

func (a *App) selected() (models.Todo, bool) {
	if a.selectedIdx < 0 || a.selectedIdx >= len(a.todos) {
		return models.Todo{}, false
	}
	return a.todos[a.selectedIdx], true
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	header := titleStyle.Render("sockdo")
	header += "  " + statusDot("GATEWAY", a.gatewayOnline)
	header += "  " + statusDot("BACKEND", a.backendOnline)
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", a.width) + "\n")

	contentHeight := a.height - 8
	if contentHeight < 5 {
		contentHeight = 5
	}
	b.WriteString(a.renderTodoList(contentHeight))
	b.WriteString("\n")

	// Message bar
	if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString(msgStyle.Render(a.message))
	}
	b.WriteString("\n")

	if a.mode != modeList {
		b.WriteString(inputBoxStyle.Render(a.input.View()) + "\n")
	}

	var status string
	if a.mode == modeList {
		done := 0
		for _, t := range a.todos {
			if t.Completed {
				done++
			}
		}
		status = fmt.Sprintf(" Todos: %d (%d done) | %s", len(a.todos), done,
			helpLine(keys.Down, keys.Toggle, keys.Add, keys.Edit, keys.Delete, keys.Refresh, keys.Quit))
	} else {
		status = " " + helpLine(keys.Submit, keys.Cancel)
	}
	b.WriteString(statusBarStyle.Width(a.width).Render(status))

	return b.String()
}

func (a *App) renderTodoList(height int) string {
	if a.loading {
		return "\n  Loading todos...\n"
	}
	if len(a.todos) == 0 {
		return "\n  No todos yet. Press a to add one.\n"
	}

	var lines []string
	for i, todo := range a.todos {
		box := "[ ]"
		if todo.Completed {
			box = "[x]"
		}
		text := fmt.Sprintf("%s #%d %s", box, todo.ID, todo.Title)

		if i == a.selectedIdx {
			lines = append(lines, selectedStyle.Render("▶ "+text))
		} else if todo.Completed {
			lines = append(lines, itemStyle.Render("  "+doneStyle.Render(text)))
		} else {
			lines = append(lines, itemStyle.Render("  "+text))
		}
	}

	// Limit visible lines
	if len(lines) > height {
		start := a.selectedIdx - height/2
		if start < 0 {
			start = 0
		}
		end := start + height
		if end > len(lines) {
			end = len(lines)
			start = max(0, end-height)
		}
		lines = lines[start:end]
	}

	return strings.Join(lines, "\n")
}

func statusDot(label string, online bool) string {
	if online {
		return onlineStyle.Render("● " + label)
	}
	return offlineStyle.Render("○ " + label)
}
