package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fentz26/sockdo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is an in-memory stand-in for the gateway.
type fakeAPI struct {
	mu      sync.Mutex
	todos   []models.Todo
	nextID  int64
	healthy bool
	fail    error
}

func newFakeAPI(titles ...string) *fakeAPI {
	f := &fakeAPI{nextID: 1, healthy: true}
	for _, t := range titles {
		f.todos = append(f.todos, models.Todo{ID: f.nextID, Title: t, CreatedAt: models.NewTimestamp(time.Now())})
		f.nextID++
	}
	return f
}

func (f *fakeAPI) ListTodos(ctx context.Context) ([]models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	return append([]models.Todo(nil), f.todos...), nil
}

func (f *fakeAPI) CreateTodo(ctx context.Context, title string) (*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := models.Todo{ID: f.nextID, Title: title}
	f.nextID++
	f.todos = append(f.todos, t)
	return &t, nil
}

func (f *fakeAPI) find(id int64) (int, error) {
	for i := range f.todos {
		if f.todos[i].ID == id {
			return i, nil
		}
	}
	return -1, errors.New("API error (404): Todo not found")
}

func (f *fakeAPI) SetCompleted(ctx context.Context, id int64, completed bool) (*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, err := f.find(id)
	if err != nil {
		return nil, err
	}
	f.todos[i].Completed = completed
	t := f.todos[i]
	return &t, nil
}

func (f *fakeAPI) Rename(ctx context.Context, id int64, title string) (*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, err := f.find(id)
	if err != nil {
		return nil, err
	}
	f.todos[i].Title = title
	t := f.todos[i]
	return &t, nil
}

func (f *fakeAPI) DeleteTodo(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, err := f.find(id)
	if err != nil {
		return err
	}
	f.todos = append(f.todos[:i], f.todos[i+1:]...)
	return nil
}

func (f *fakeAPI) CheckHealth(ctx context.Context) (*models.GatewayHealth, error) {
	if !f.healthy {
		return &models.GatewayHealth{Status: "ERROR", Service: "frontend", Error: "Backend not available via UDS"},
			errors.New("API error (503): Backend not available via UDS")
	}
	return &models.GatewayHealth{Status: "OK", Service: "frontend", Backend: &models.BackendHealth{Status: "OK"}}, nil
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds a key to the app and runs the resulting command chain until it
// settles, the way the program loop would.
func press(t *testing.T, a *App, msg tea.Msg) {
	t.Helper()
	_, cmd := a.Update(msg)
	settle(a, cmd)
}

// typeKey feeds a key to the text input without running its cursor blink
// commands.
func typeKey(a *App, msg tea.KeyMsg) {
	_, _ = a.Update(msg)
}

func settle(a *App, cmd tea.Cmd) {
	for i := 0; cmd != nil && i < 10; i++ {
		next := cmd()
		switch next.(type) {
		case todosLoadedMsg, commandResultMsg, errMsg, healthMsg:
			_, cmd = a.Update(next)
		default:
			return
		}
	}
}

func loaded(t *testing.T, api *fakeAPI) *App {
	t.Helper()
	a := New(api)
	settle(a, a.fetchTodos())
	require.False(t, a.loading)
	return a
}

func TestApp_LoadsTodos(t *testing.T) {
	a := loaded(t, newFakeAPI("milk", "eggs"))

	require.Len(t, a.todos, 2)
	view := a.View()
	assert.Contains(t, view, "#1 milk")
	assert.Contains(t, view, "#2 eggs")
	assert.Contains(t, view, "Todos: 2 (0 done)")
}

func TestApp_Navigation(t *testing.T) {
	a := loaded(t, newFakeAPI("a", "b", "c"))

	press(t, a, runes("j"))
	press(t, a, runes("j"))
	press(t, a, runes("j"))
	assert.Equal(t, 2, a.selectedIdx, "stops at the last item")

	press(t, a, tea.KeyMsg{Type: tea.KeyUp})
	press(t, a, runes("k"))
	press(t, a, runes("k"))
	assert.Equal(t, 0, a.selectedIdx, "stops at the first item")
}

func TestApp_Toggle(t *testing.T) {
	api := newFakeAPI("milk")
	a := loaded(t, api)

	press(t, a, runes(" "))
	assert.True(t, a.todos[0].Completed)
	assert.Equal(t, "✓ Completed #1", a.message)

	press(t, a, runes(" "))
	assert.False(t, a.todos[0].Completed)
	assert.Equal(t, "✓ Reopened #1", a.message)
}

func TestApp_Add(t *testing.T) {
	api := newFakeAPI()
	a := loaded(t, api)
	assert.Contains(t, a.View(), "No todos yet")

	press(t, a, runes("a"))
	require.Equal(t, modeAdd, a.mode)
	assert.Empty(t, a.input.Value(), "the key that opened the input is not typed into it")

	typeKey(a, runes("buy milk"))
	assert.Equal(t, "buy milk", a.input.Value())

	press(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, modeList, a.mode)
	require.Len(t, a.todos, 1)
	assert.Equal(t, "buy milk", a.todos[0].Title)
}

func TestApp_AddEmptyTitle(t *testing.T) {
	api := newFakeAPI()
	a := loaded(t, api)

	press(t, a, runes("a"))
	typeKey(a, runes("   "))
	press(t, a, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, "Error: Title is required", a.message)
	assert.Empty(t, api.todos)
}

func TestApp_AddCancel(t *testing.T) {
	api := newFakeAPI()
	a := loaded(t, api)

	press(t, a, runes("a"))
	typeKey(a, runes("q"))
	assert.Equal(t, modeAdd, a.mode, "q is typed while editing")

	press(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeList, a.mode)
	assert.Empty(t, api.todos)
}

func TestApp_Rename(t *testing.T) {
	api := newFakeAPI("milk")
	a := loaded(t, api)

	press(t, a, runes("e"))
	require.Equal(t, modeRename, a.mode)
	assert.Equal(t, "milk", a.input.Value())

	typeKey(a, tea.KeyMsg{Type: tea.KeyBackspace})
	typeKey(a, tea.KeyMsg{Type: tea.KeyBackspace})
	typeKey(a, tea.KeyMsg{Type: tea.KeyBackspace})
	typeKey(a, tea.KeyMsg{Type: tea.KeyBackspace})
	typeKey(a, runes("oat milk"))
	press(t, a, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, "oat milk", a.todos[0].Title)
	assert.Equal(t, "✓ Renamed #1", a.message)
}

func TestApp_Delete(t *testing.T) {
	api := newFakeAPI("a", "b")
	a := loaded(t, api)

	press(t, a, runes("j"))
	press(t, a, runes("d"))

	require.Len(t, a.todos, 1)
	assert.Equal(t, "a", a.todos[0].Title)
	assert.Equal(t, 0, a.selectedIdx, "selection is clamped")
}

func TestApp_KeysOnEmptyList(t *testing.T) {
	a := loaded(t, newFakeAPI())

	for _, k := range []string{" ", "e", "d", "j", "k"} {
		_, cmd := a.Update(runes(k))
		assert.Nil(t, cmd, "key %q", k)
	}
	assert.Equal(t, modeList, a.mode)
}

func TestApp_ErrorsAreShown(t *testing.T) {
	api := newFakeAPI()
	api.fail = errors.New("API request failed: connection refused")
	a := New(api)
	settle(a, a.fetchTodos())

	assert.False(t, a.loading)
	assert.Equal(t, "Error: API request failed: connection refused", a.message)
	assert.Contains(t, a.View(), "connection refused")
}

func TestApp_Health(t *testing.T) {
	api := newFakeAPI()
	a := New(api)

	settle(a, a.checkHealth())
	assert.True(t, a.gatewayOnline)
	assert.True(t, a.backendOnline)

	api.healthy = false
	settle(a, a.checkHealth())
	assert.True(t, a.gatewayOnline, "the gateway answered")
	assert.False(t, a.backendOnline)
}

func TestApp_Quit(t *testing.T) {
	a := loaded(t, newFakeAPI())

	_, cmd := a.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
