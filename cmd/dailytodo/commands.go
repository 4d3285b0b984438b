package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"daily-todo/internal/bot"
	"daily-todo/internal/model"
	"daily-todo/internal/service"
	"daily-todo/internal/web"
)

func newServeCommand() *cobra.Command {
	var withBot bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web page and JSON API",
		Long:  "Start the HTTP server with the to-do page, the JSON API, /health and /metrics. With --bot the Telegram bot runs alongside.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := web.New(a.tasks, web.Options{
				RateLimit: a.cfg.Server.RateLimit,
				Registry:  a.registry,
			}, a.log)
			if err != nil {
				return err
			}

			if !withBot {
				return srv.Run(ctx, a.cfg.Server.Addr)
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			botErr := make(chan error, 1)
			go func() {
				err := runBot(ctx, a)
				cancel()
				botErr <- err
			}()
			if err := srv.Run(ctx, a.cfg.Server.Addr); err != nil {
				cancel()
				<-botErr
				return err
			}
			return <-botErr
		},
	}
	cmd.Flags().BoolVar(&withBot, "bot", false, "also run the Telegram bot")
	return cmd
}

func newBotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot and the daily summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			return runBot(ctx, a)
		},
	}
}

// runBot polls Telegram until ctx is done and posts the summary at the
// configured report time when a chat is set.
func runBot(ctx context.Context, a *app) error {
	if err := a.cfg.RequireTelegram(); err != nil {
		return err
	}

	reminder := service.NewReminderService(a.tasks)
	telegramBot, err := bot.New(a.cfg.Telegram.Token, a.cfg.Telegram.ChatID, a.tasks, reminder, a.log)
	if err != nil {
		return err
	}

	if a.cfg.Telegram.ChatID != 0 {
		loc, err := a.cfg.Location()
		if err != nil {
			return err
		}
		scheduler := service.NewSchedulerService(loc, a.log)
		if _, err := scheduler.ScheduleDaily(a.cfg.Report.Time, func() {
			jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			if err := telegramBot.SendDailySummary(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.WithError(err).Error("daily summary")
			}
		}); err != nil {
			return fmt.Errorf("schedule summary: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	} else {
		a.log.Warn("TELEGRAM_CHAT_ID not set, daily summary disabled")
	}

	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bot stopped: %w", err)
	}
	return nil
}

func newTodayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Print today's tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			tasks, err := a.tasks.FetchToday(cmd.Context())
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), a.tasks.Today(), tasks)
			return nil
		},
	}
}

func newAddCommand() *cobra.Command {
	var link string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task for today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			task, err := a.tasks.CreateTask(cmd.Context(), args[0], link)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added #%d %s\n", task.ID, task.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&link, "link", "", "optional link shown with the task")
	return cmd
}

func newSetCompletedCommand(use, short string, completed bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.tasks.SetCompleted(cmd.Context(), id, completed)
		},
	}
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a task from the list (the row is kept and flagged)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.tasks.SoftDelete(cmd.Context(), id)
		},
	}
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return id, nil
}

func printTasks(w io.Writer, day string, tasks []model.Task) {
	fmt.Fprintf(w, "Dagelijkse To-Do Lijst (%s)\n", day)
	if len(tasks) == 0 {
		fmt.Fprintln(w, "Je hebt nog geen taken voor vandaag.")
		return
	}
	for _, task := range tasks {
		mark := " "
		if task.Completed {
			mark = "x"
		}
		line := fmt.Sprintf("[%s] #%d %s", mark, task.ID, task.Title)
		if task.HasLink() {
			line += " <" + task.Link + ">"
		}
		fmt.Fprintln(w, line)
	}
}
