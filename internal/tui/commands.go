package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fentz26/sockdo/internal/models"
)

const (
	requestTimeout = 5 * time.Second
	healthInterval = 5 * time.Second
)

type todosLoadedMsg struct {
	todos []models.Todo
}

type healthMsg struct {
	health *models.GatewayHealth
	err    error
}

type commandResultMsg struct {
	message string
}

type errMsg struct {
	err error
}

type tickMsg time.Time

func (a *App) fetchTodos() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		todos, err := a.api.ListTodos(ctx)
		if err != nil {
			return errMsg{err}
		}
		return todosLoadedMsg{todos}
	}
}

func (a *App) checkHealth() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		health, err := a.api.CheckHealth(ctx)
		return healthMsg{health: health, err: err}
	}
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(healthInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a *App) createTodo(title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		todo, err := a.api.CreateTodo(ctx, title)
		if err != nil {
			return errMsg{err}
		}
		return commandResultMsg{fmt.Sprintf("✓ Added #%d", todo.ID)}
	}
}

func (a *App) toggleTodo(todo models.Todo) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		updated, err := a.api.SetCompleted(ctx, todo.ID, !todo.Completed)
		if err != nil {
			return errMsg{err}
		}
		if updated.Completed {
			return commandResultMsg{fmt.Sprintf("✓ Completed #%d", updated.ID)}
		}
		return commandResultMsg{fmt.Sprintf("✓ Reopened #%d", updated.ID)}
	}
}

func (a *App) renameTodo(id int64, title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if _, err := a.api.Rename(ctx, id, title); err != nil {
			return errMsg{err}
		}
		return commandResultMsg{fmt.Sprintf("✓ Renamed #%d", id)}
	}
}

func (a *App) deleteTodo(id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := a.api.DeleteTodo(ctx, id); err != nil {
			return errMsg{err}
		}
		return commandResultMsg{fmt.Sprintf("✓ Deleted #%d", id)}
	}
}
