package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/juneyoungl/jot/internal/db"
	"github.com/juneyoungl/jot/internal/engine"
	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
	"github.com/juneyoungl/jot/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "jot",
		Usage:   "Capture anything, file it later",
		Version: Version,
		Commands: []*cli.Command{
			captureCmd(env),
			showCmd(env),
			listCmd(env),
			reviewCmd(env),
			reclassifyCmd(env),
			confirmCmd(env),
			confirmAllCmd(env),
			saveReviewCmd(env),
			deleteCmd(env),
			undoCmd(env),
			trashCmd(env),
			restoreCmd(env),
			purgeTrashCmd(env),
			todosCmd(env),
			schedulesCmd(env),
			logCmd(env),
			queueCmd(env),
			dispatchCmd(env),
			syncCmd(env),
			serveCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// captureCmd creates the capture command.
func captureCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "capture",
		Usage:     "Store a new capture (text from args or stdin)",
		ArgsUsage: "[text]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Value: "cli", Usage: "Capture source"},
			&cli.BoolFlag{Name: "no-classify", Usage: "Leave the capture queued instead of classifying now"},
		},
		Action: func(c *cli.Context) error {
			text := strings.Join(c.Args().Slice(), " ")
			if text == "" && stdinHasData() {
				var err error
				if text, err = readStdin(); err != nil {
					return outputError(errors.NewInternal(err))
				}
			}

			capture, err := env.engine.Capture(c.Context, engine.CaptureInput{
				Text:   text,
				Source: c.String("source"),
			})
			if err != nil {
				return outputError(err)
			}

			if !c.Bool("no-classify") {
				// Run the queued classify action right away; failures
				// stay in the queue for the next dispatch.
				if _, err := env.dispatcher.DispatchOnce(c.Context); err != nil {
					fmt.Fprintf(os.Stderr, "warning: dispatch: %v\n", err)
				}
				if detail, err := env.engine.Get(c.Context, capture.ID, false); err == nil {
					return outputJSON(detail)
				}
			}
			return outputJSON(capture)
		},
	}
}

// showCmd creates the show command.
func showCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a capture with its derived entity, tags, and history",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "hidden", Usage: "Also match soft-deleted and trashed captures"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("capture id is required"))
			}
			detail, err := env.engine.Get(c.Context, c.Args().First(), c.Bool("hidden"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(detail)
		},
	}
}

// listCmd creates the list command.
func listCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List captures, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Filter by type: SCHEDULE|TODO|NOTES|TEMP"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 50, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			var typ *model.CaptureType
			if raw := c.String("type"); raw != "" {
				t := model.CaptureType(strings.ToUpper(raw))
				if !t.Valid() {
					return outputError(errors.NewInvalidRequest("unknown capture type: " + raw))
				}
				typ = &t
			}

			captures, err := env.engine.List(c.Context, typ, c.Int("limit"), c.Int("offset"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"captures": captures, "count": len(captures)})
		},
	}
}

// reviewCmd creates the review command.
func reviewCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "List captures awaiting confirmation",
		Action: func(c *cli.Context) error {
			captures, err := env.engine.Unconfirmed(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"captures": captures, "count": len(captures)})
		},
	}
}

// reclassifyCmd creates the reclassify command.
func reclassifyCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "reclassify",
		Usage:     "Change a capture's category",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Required: true, Usage: "Target type: SCHEDULE|TODO|NOTES"},
			&cli.StringFlag{Name: "sub-type", Usage: "Notes sub type: BOOKMARK|USER_FOLDER"},
			&cli.StringFlag{Name: "priority", Usage: "Todo priority: NONE|LOW|MEDIUM|HIGH"},
			&cli.Int64Flag{Name: "deadline", Usage: "Todo deadline, unix milliseconds"},
			&cli.Int64Flag{Name: "start", Usage: "Schedule start, unix milliseconds"},
			&cli.Int64Flag{Name: "end", Usage: "Schedule end, unix milliseconds"},
			&cli.StringFlag{Name: "location", Usage: "Schedule location"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("capture id is required"))
			}

			in := engine.ReclassifyInput{
				NewType: model.CaptureType(strings.ToUpper(c.String("type"))),
			}
			if raw := c.String("sub-type"); raw != "" {
				st := model.NoteSubType(strings.ToUpper(raw))
				in.NewSubType = &st
			}
			if c.IsSet("priority") || c.IsSet("deadline") {
				in.TodoInfo = &model.TodoInfo{
					Priority: model.TodoPriority(strings.ToUpper(c.String("priority"))),
				}
				if c.IsSet("deadline") {
					deadline := c.Int64("deadline")
					in.TodoInfo.Deadline = &deadline
				}
			}
			if c.IsSet("start") && c.IsSet("end") {
				in.ScheduleInfo = &model.ScheduleInfo{
					StartTime: c.Int64("start"),
					EndTime:   c.Int64("end"),
				}
				if loc := c.String("location"); loc != "" {
					in.ScheduleInfo.Location = &loc
				}
			}

			capture, err := env.engine.Reclassify(c.Context, c.Args().First(), in)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(capture)
		},
	}
}

// confirmCmd creates the confirm command.
func confirmCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "confirm",
		Usage:     "Confirm a capture's classification",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("capture id is required"))
			}
			id := c.Args().First()
			if err := env.engine.Confirm(c.Context, id); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"id": id, "confirmed": true})
		},
	}
}

// confirmAllCmd creates the confirm-all command.
func confirmAllCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "confirm-all",
		Usage: "Confirm every unconfirmed capture",
		Action: func(c *cli.Context) error {
			n, err := env.engine.ConfirmAll(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"confirmed": n})
		},
	}
}

// saveReviewCmd creates the save-review command.
func saveReviewCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "save-review",
		Usage:     "Resolve a low-confidence classification by picking a category",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Required: true, Usage: "Chosen type: SCHEDULE|TODO|NOTES"},
			&cli.StringFlag{Name: "sub-type", Usage: "Notes sub type: BOOKMARK|USER_FOLDER"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("capture id is required"))
			}

			sel := engine.ReviewSelection{
				Type: model.CaptureType(strings.ToUpper(c.String("type"))),
			}
			if raw := c.String("sub-type"); raw != "" {
				st := model.NoteSubType(strings.ToUpper(raw))
				sel.SubType = &st
			}

			capture, err := env.engine.SaveReview(c.Context, c.Args().First(), sel)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(capture)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Soft-delete a capture (hard-deletes after the grace period)",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("capture id is required"))
			}
			id := c.Args().First()
			if err := env.engine.SoftDelete(c.Context, id); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{
				"id":            id,
				"deleted":       true,
				"grace_seconds": env.engine.GraceDuration().Seconds(),
			})
		},
	}
}

// undoCmd creates the undo command.
func undoCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "undo",
		Usage:     "Undo a soft delete within the grace period",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("capture id is required"))
			}
			id := c.Args().First()
			if err := env.engine.UndoSoftDelete(c.Context, id); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"id": id, "restored": true})
		},
	}
}

// trashCmd creates the trash command.
func trashCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "trash",
		Usage:     "Move a capture to the trash",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("capture id is required"))
			}
			id := c.Args().First()
			if err := env.engine.Trash(c.Context, id); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"id": id, "trashed": true})
		},
	}
}

// restoreCmd creates the restore command.
func restoreCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Take a capture back out of the trash",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("capture id is required"))
			}
			id := c.Args().First()
			if err := env.engine.Restore(c.Context, id); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"id": id, "restored": true})
		},
	}
}

// purgeTrashCmd creates the purge-trash command.
func purgeTrashCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "purge-trash",
		Usage: "Permanently delete captures past the trash retention window",
		Action: func(c *cli.Context) error {
			purged, err := env.engine.PurgeTrash(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"purged": purged})
		},
	}
}

// todosCmd creates the todos command.
func todosCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "todos",
		Usage: "List incomplete todos, soonest deadline first",
		Action: func(c *cli.Context) error {
			todos, err := env.engine.ActiveTodos(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"todos": todos, "count": len(todos)})
		},
	}
}

// schedulesCmd creates the schedules command.
func schedulesCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "schedules",
		Usage: "List schedules in a time range (default: the next 7 days)",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "from", Usage: "Range start, unix milliseconds"},
			&cli.Int64Flag{Name: "to", Usage: "Range end, unix milliseconds"},
		},
		Action: func(c *cli.Context) error {
			from := c.Int64("from")
			to := c.Int64("to")
			if from == 0 {
				from = db.Now()
			}
			if to == 0 {
				to = from + 7*24*time.Hour.Milliseconds()
			}

			schedules, err := env.engine.SchedulesInRange(c.Context, from, to)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"schedules": schedules, "count": len(schedules)})
		},
	}
}

// logCmd creates the log command.
func logCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "log",
		Usage:     "Show a capture's reclassification history",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("capture id is required"))
			}
			logs, err := env.engine.Logs(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"logs": logs, "count": len(logs)})
		},
	}
}

// queueCmd creates the queue command.
func queueCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Show the offline action queue",
		Action: func(c *cli.Context) error {
			out := map[string]any{}
			for _, s := range []model.QueueStatus{model.StatusPending, model.StatusProcessing, model.StatusFailed} {
				items, err := db.ListOutboxByStatus(c.Context, env.db, s)
				if err != nil {
					return outputError(err)
				}
				key := strings.ToLower(string(s))
				out[key] = items
				out[key+"_count"] = len(items)
			}
			return outputJSON(out)
		},
	}
}

// dispatchCmd creates the dispatch command.
func dispatchCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "dispatch",
		Usage: "Run one pass over the offline action queue",
		Action: func(c *cli.Context) error {
			processed, err := env.dispatcher.DispatchOnce(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"processed": processed})
		},
	}
}

// syncCmd creates the sync command.
func syncCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Push local changes to the sync peer, then pull remote ones",
		Action: func(c *cli.Context) error {
			if env.sync == nil {
				return outputError(errors.NewInvalidRequest("no sync endpoint configured"))
			}
			pushed, pulled, err := env.sync.Sync(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"pushed": pushed, "pulled": pulled})
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the local web UI with the queue dispatcher in the background",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8787, Usage: "Port"},
			&cli.DurationFlag{Name: "dispatch-interval", Value: 5 * time.Second, Usage: "Queue dispatch interval"},
		},
		Action: func(c *cli.Context) error {
			go func() {
				if err := env.dispatcher.Run(c.Context, c.Duration("dispatch-interval")); err != nil {
					fmt.Fprintf(os.Stderr, "warning: dispatcher stopped: %v\n", err)
				}
			}()
			srv := web.NewServer(env.engine, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if jotErr, ok := err.(*errors.JotError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", jotErr.Code, jotErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
