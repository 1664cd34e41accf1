package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"localnews/internal/access"
	"localnews/internal/app"
	"localnews/internal/backfill"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: backfill <markets|access>")
		os.Exit(1)
	}

	a, err := app.Setup()
	if err != nil {
		slog.Error("setup", "error", err)
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var res backfill.Result
	switch os.Args[1] {
	case "markets":
		res, err = backfill.Markets(ctx, a.Store, a.Resolver, a.Log)
	case "access":
		var checker *access.Checker
		if checker, err = a.AccessChecker(); err == nil {
			res, err = backfill.Access(ctx, a.Store, checker, a.Log)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
	if err != nil {
		a.Log.Error("backfill", "kind", os.Args[1], "error", err)
		os.Exit(1)
	}

	for _, value := range slices.Sorted(maps.Keys(res.ByValue)) {
		fmt.Printf("%-20s %d\n", value, res.ByValue[value])
	}
}
