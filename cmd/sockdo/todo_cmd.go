package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fentz26/sockdo/internal/apiclient"
	"github.com/fentz26/sockdo/internal/models"
	"github.com/spf13/cobra"
)

var todoCmd = &cobra.Command{
	Use:   "todo",
	Short: "Manage todos through the gateway",
}

var todoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List todos",
	Args:  cobra.NoArgs,
	RunE:  runTodoList,
}

var todoAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a todo",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTodoAdd,
}

var todoDoneCmd = &cobra.Command{
	Use:   "done [todo-id]",
	Short: "Mark a todo completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setCompleted(cmd, args[0], true)
	},
}

var todoUndoCmd = &cobra.Command{
	Use:   "undo [todo-id]",
	Short: "Mark a todo not completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setCompleted(cmd, args[0], false)
	},
}

var todoRenameCmd = &cobra.Command{
	Use:   "rename [todo-id] [title]",
	Short: "Change a todo's title",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTodoRename,
}

var todoRmCmd = &cobra.Command{
	Use:     "rm [todo-id]",
	Aliases: []string{"delete"},
	Short:   "Delete a todo",
	Args:    cobra.ExactArgs(1),
	RunE:    runTodoRm,
}

var openOnly bool

func init() {
	todoCmd.AddCommand(todoListCmd, todoAddCmd, todoDoneCmd, todoUndoCmd, todoRenameCmd, todoRmCmd)

	todoListCmd.Flags().BoolVar(&openOnly, "open", false, "Hide completed todos")
}

func runTodoList(cmd *cobra.Command, args []string) error {
	todos, err := apiclient.New(apiAddr).ListTodos(cmd.Context())
	if err != nil {
		return err
	}
	if openOnly {
		open := todos[:0]
		for _, t := range todos {
			if !t.Completed {
				open = append(open, t)
			}
		}
		todos = open
	}
	return printTodos(cmd.OutOrStdout(), todos)
}

func printTodos(out io.Writer, todos []models.Todo) error {
	if len(todos) == 0 {
		fmt.Fprintln(out, "No todos found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDONE\tTITLE\tCREATED")
	for _, t := range todos {
		done := ""
		if t.Completed {
			done = "x"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, done, truncate(t.Title, 50), t.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runTodoAdd(cmd *cobra.Command, args []string) error {
	todo, err := apiclient.New(apiAddr).CreateTodo(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created todo: %d\n", todo.ID)
	return nil
}

func setCompleted(cmd *cobra.Command, arg string, completed bool) error {
	id, err := parseTodoID(arg)
	if err != nil {
		return err
	}
	todo, err := apiclient.New(apiAddr).SetCompleted(cmd.Context(), id, completed)
	if err != nil {
		return err
	}
	state := "open"
	if todo.Completed {
		state = "completed"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Todo %d is %s\n", todo.ID, state)
	return nil
}

func runTodoRename(cmd *cobra.Command, args []string) error {
	id, err := parseTodoID(args[0])
	if err != nil {
		return err
	}
	todo, err := apiclient.New(apiAddr).Rename(cmd.Context(), id, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Renamed todo %d: %s\n", todo.ID, todo.Title)
	return nil
}

func runTodoRm(cmd *cobra.Command, args []string) error {
	id, err := parseTodoID(args[0])
	if err != nil {
		return err
	}
	if err := apiclient.New(apiAddr).DeleteTodo(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted todo: %d\n", id)
	return nil
}

func parseTodoID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid todo id %q", s)
	}
	return id, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
