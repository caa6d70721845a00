// Command matchrunner executes a single matching run from the command line.
// Useful for cron-driven deployments that do not run the API server's job
// queue, and for inspecting a run's outcome directly.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"

	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/ColeUyematsu/RoomMatchv2/internal/config"
	"github.com/ColeUyematsu/RoomMatchv2/internal/matcherrors"
	"github.com/ColeUyematsu/RoomMatchv2/internal/repository"
	"github.com/ColeUyematsu/RoomMatchv2/internal/service"
	"github.com/ColeUyematsu/RoomMatchv2/pkg/database"
)

func main() {
	strategyFlag := flag.String("strategy", "reciprocal", "pairing strategy: reciprocal or assignment")
	flag.Parse()

	var strategy service.PairingStrategy
	switch *strategyFlag {
	case "reciprocal":
		strategy = service.StrategyReciprocal
	case "assignment":
		strategy = service.StrategyAssignment
	default:
		slog.Error("Unknown strategy", "strategy", *strategyFlag)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, database.WithAfterConnect(pgxvec.RegisterTypes))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	orchestrator := service.NewMatchOrchestrator(service.OrchestratorParams{
		Responses: repository.NewResponsesRepository(db),
		Matches:   repository.NewMatchesRepository(db),
		TopN:      cfg.TopNRounds,
		MaxRounds: cfg.MaxRounds,
		Strategy:  strategy,
	})

	result, err := orchestrator.Run(ctx)
	switch {
	case errors.Is(err, matcherrors.ErrNoResponses):
		slog.Info("No questionnaire responses recorded, nothing to match")
		return

	case errors.Is(err, matcherrors.ErrInsufficientPool):
		slog.Info("Not enough unmatched respondents, nothing to match")
		return

	case err != nil:
		slog.Error("Matching run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Matching run completed",
		"strategy", *strategyFlag,
		"rounds", result.Rounds,
		"pairs", len(result.Pairs),
		"cap_reached", result.CapReached,
	)
}
