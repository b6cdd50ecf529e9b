// Command trainer is C8's subprocess entrypoint: it reads one length-
// prefixed training request from stdin, runs the requested epochs, and
// writes one length-prefixed status frame to stdout (spec.md §4.8).
// Logging goes to stderr exclusively — stdout is reserved for the
// protocol frame.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/toolgraph/shgat/internal/storage"
	"github.com/toolgraph/shgat/internal/training"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var req training.Request
	if err := training.ReadMessage(os.Stdin, &req); err != nil {
		log.Error("failed to read training request", "error", err)
		writeFailure(log, err)
		os.Exit(1)
	}
	log.Info("training request received",
		"capabilities", len(req.Capabilities),
		"examples", len(req.Examples),
		"epochs", req.Epochs,
		"batchSize", req.BatchSize,
	)

	var saver training.ParamsSaver
	if req.ConnectionString != "" {
		saver = storage.ParamsAdapter{UserID: req.UserID}
	}
	resp := training.Run(context.Background(), req, saver)
	if !resp.Success {
		log.Error("training run failed", "error", resp.Error)
	} else {
		log.Info("training run complete",
			"finalLoss", resp.FinalLoss,
			"finalAccuracy", resp.FinalAccuracy,
			"tdErrors", len(resp.TDErrors),
			"savedToDb", resp.SavedToDB,
		)
	}

	if err := training.WriteMessage(os.Stdout, resp); err != nil {
		log.Error("failed to write training response", "error", err)
		os.Exit(1)
	}
	if !resp.Success {
		os.Exit(1)
	}
}

func writeFailure(log *slog.Logger, err error) {
	resp := training.Response{Success: false, Error: err.Error()}
	if werr := training.WriteMessage(os.Stdout, resp); werr != nil {
		log.Error("failed to write failure response", "error", werr)
	}
}
