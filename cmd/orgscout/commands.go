package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/orgscout/internal/config"
	"github.com/TobiSchelling/orgscout/internal/database"
	"github.com/TobiSchelling/orgscout/internal/server"
	"github.com/TobiSchelling/orgscout/internal/tasks"
)

var (
	serverPort int
	listLimit  int
)

func init() {
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Port to listen on (overrides config)")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "Number of research queries to show")
}

var researchCmd = &cobra.Command{
	Use:   "research <query>",
	Short: "Run a research query and print the summary",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer c.Close()

		q, err := c.db.CreateResearch(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		if err := c.runner.Run(ctx, q.ID); err != nil {
			return err
		}

		report, err := c.db.GetReport(ctx, q.ID)
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [id]",
	Short: "Show a research query, or system status when no id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if len(args) == 1 {
			report, err := db.GetReport(cmd.Context(), args[0])
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("no research query with id %s", args[0])
			}
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		}

		fmt.Println("orgscout status")
		fmt.Println("===============")
		fmt.Println()
		fmt.Printf("Database: %s\n", db.Path())
		fmt.Printf("LLM provider: %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
		printKey("LLM API key", cfg.LLM.APIKeyEnv)
		printKey("Directory API key", cfg.Directory.APIKeyEnv)
		if cfg.Cache.RedisAddr != "" {
			fmt.Printf("Organization cache: redis at %s\n", cfg.Cache.RedisAddr)
		} else {
			fmt.Println("Organization cache: disabled")
		}
		fmt.Println()

		counts, err := db.CountByStatus(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println("Research queries:")
		for _, s := range []database.Status{database.StatusPending, database.StatusInProgress, database.StatusCompleted, database.StatusFailed} {
			fmt.Printf("  %-12s %d\n", s, counts[s])
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent research queries",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		queries, err := db.ListResearch(cmd.Context(), listLimit)
		if err != nil {
			return err
		}
		if len(queries) == 0 {
			fmt.Println("No research queries yet.")
			return nil
		}
		for _, q := range queries {
			fmt.Printf("%s  %-11s  %s  %s\n", q.ID, q.Status, q.CreatedAt.Local().Format("2006-01-02 15:04"), q.Query)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the research API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c, err := build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer c.Close()

		queue := tasks.NewQueue(c.runner.Run, tasks.QueueOptions{Workers: cfg.Runner.Workers}, logger)
		queue.Start(ctx)

		if err := resumeUnfinished(ctx, c.db, queue); err != nil {
			logger.Warn("could not resume unfinished research", zap.Error(err))
		}

		port := cfg.Server.Port
		if serverPort > 0 {
			port = serverPort
		}
		addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(port))

		srv := server.New(c.db, tasks.NewService(c.db, queue, logger), logger)
		err = server.Serve(ctx, addr, srv.Handler(), logger)

		queue.Close()
		logger.Info("waiting for running research to finish", zap.Int("left_pending", queue.Len()))
		queue.Wait()
		return err
	},
}

// InterruptedMessage is recorded for runs a previous process left in progress.
const InterruptedMessage = "interrupted before completion"

// resumeUnfinished handles queries a previous process left behind: pending
// ones are scheduled again, oldest first, and in-progress ones are failed.
func resumeUnfinished(ctx context.Context, db *database.DB, queue *tasks.Queue) error {
	queries, err := db.ListResearch(ctx, 0)
	if err != nil {
		return err
	}
	requeued, failed := 0, 0
	for i := len(queries) - 1; i >= 0; i-- {
		q := queries[i]
		switch q.Status {
		case database.StatusPending:
			if err := queue.Submit(q.ID); err != nil {
				return err
			}
			requeued++
		case database.StatusInProgress:
			err := db.FailResearch(ctx, q.ID, database.Results{Summary: tasks.FailureSummary(InterruptedMessage)})
			if err != nil {
				return fmt.Errorf("failing interrupted query %s: %w", q.ID, err)
			}
			failed++
		}
	}
	if requeued > 0 || failed > 0 {
		logger.Info("resumed unfinished research", zap.Int("requeued", requeued), zap.Int("interrupted", failed))
	}
	return nil
}

func printKey(label, env string) {
	if env == "" {
		fmt.Printf("%s: not required\n", label)
		return
	}
	if config.APIKey(env) != "" {
		fmt.Printf("%s: set (%s)\n", label, env)
	} else {
		fmt.Printf("%s: not set (%s)\n", label, env)
	}
}

func printReport(r *database.Report) {
	fmt.Printf("Query:  %s\n", r.Query)
	fmt.Printf("ID:     %s\n", r.ID)
	fmt.Printf("Status: %s\n", r.Status)
	fmt.Println()

	if len(r.Steps) > 0 {
		fmt.Println("Steps:")
		for i, s := range r.Steps {
			line := fmt.Sprintf("  %d. [%s] %s", i+1, s.Status, s.Description)
			if s.Confidence != nil {
				line += fmt.Sprintf(" (confidence %.1f)", *s.Confidence)
			}
			if s.Duration != nil {
				line += fmt.Sprintf(" %.2fs", *s.Duration)
			}
			fmt.Println(line)
		}
		fmt.Println()
	}

	if r.Summary != "" {
		fmt.Println(r.Summary)
	}
}
