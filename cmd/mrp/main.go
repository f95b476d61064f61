package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-erp/atlas-mrp/internal/app"
	"github.com/atlas-erp/atlas-mrp/internal/bom"
	"github.com/atlas-erp/atlas-mrp/internal/planning"
	"github.com/atlas-erp/atlas-mrp/jobs"
)

func main() {
	org := flag.Int64("org", 0, "organization id")
	plant := flag.Int64("plant", 0, "plant id")
	horizon := flag.Int("horizon", 90, "planning horizon in days")
	persist := flag.Bool("persist", false, "persist the run and planned orders")
	enqueue := flag.Bool("enqueue", false, "submit the run to the worker queue instead of running inline")
	flag.Parse()

	if *org <= 0 || *plant <= 0 {
		fmt.Fprintln(os.Stderr, "usage: mrp -org <id> -plant <id> [-horizon days] [-persist|-enqueue]")
		os.Exit(2)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx := context.Background()

	if *enqueue {
		client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Error("init queue client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = client.Close() }()
		info, err := client.EnqueueMRPRun(ctx, jobs.MRPRunPayload{
			OrganizationID: *org,
			PlantID:        *plant,
			HorizonDays:    *horizon,
		})
		if err != nil {
			logger.Error("enqueue mrp run", slog.Any("error", err))
			os.Exit(1)
		}
		fmt.Printf("Enqueued %s (task %s, queue %s)\n", jobs.TaskMRPRun, info.ID, info.Queue)
		return
	}
	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	bomService := bom.NewService(bom.NewRepository(pool), nil)
	repo := planning.NewRepository(pool)
	planner := planning.NewService(repo, repo, repo, bomService, logger)

	result, runErr := planner.RunMRP(ctx, *org, *plant, *horizon)
	if *persist {
		if err := repo.SaveResult(ctx, result); err != nil {
			logger.Error("persist run", slog.Any("error", err))
			os.Exit(1)
		}
	}
	printResult(result)
	if runErr != nil {
		logger.Error("run failed", slog.Any("error", runErr))
		os.Exit(1)
	}
}

func printResult(result planning.RunResult) {
	run := result.Run
	fmt.Printf("Run %s [%s]\n", run.Number, run.Status)
	fmt.Printf("Horizon %s .. %s\n", run.HorizonStart.Format("2006-01-02"), run.HorizonEnd.Format("2006-01-02"))
	fmt.Printf("Materials processed: %d, planned orders: %d, total shortage: %.2f\n\n",
		run.MaterialsProcessed, run.PlannedOrdersCreated, run.TotalShortageQty)
	if len(result.Orders) == 0 {
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MATERIAL\tTYPE\tQTY\tORDER DATE\tNEED DATE")
	for _, order := range result.Orders {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%s\t%s\n",
			order.MaterialID, order.OrderType, order.Quantity,
			order.OrderDate.Format("2006-01-02"), order.NeedDate.Format("2006-01-02"))
	}
	_ = w.Flush()
}
