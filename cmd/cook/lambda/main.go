package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"

	"pantrycook"
	"pantrycook/setup"
	"pantrycook/tools"
)

type Results struct {
	Output map[string]any `json:"output"`
}

func main() {
	lambda.Start(handle)
}

func handle(ctx context.Context, call tools.Call) (res Results, err error) {
	cfg, err := setup.LoadConfig()
	if err != nil {
		slog.Error("SETUP: Failed to load config", "error", err)
		return Results{}, err
	}

	app, err := setup.New(ctx, cfg, pantrycook.NewStdoutConsumptionLogger())
	if err != nil {
		slog.Error("SETUP: Failed to build engine", "error", err)
		return Results{}, err
	}
	defer func() {
		if cerr := app.Close(ctx); cerr != nil {
			slog.Error("SETUP: Failed to shut down engine", "error", cerr)
			err = errors.Join(err, cerr)
		}
	}()

	output, err := app.Registry.Call(ctx, call)
	if err != nil {
		slog.Error("RESULT: Error handling tool call", "tool", call.Name, "error", err)
		return Results{}, err
	}
	return Results{Output: output}, nil
}
