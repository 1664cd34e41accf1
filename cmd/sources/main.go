package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"localnews/internal/app"
	"localnews/internal/model"
	"localnews/internal/sourcelist"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: sources <command> [args]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  import [-discover] <file.yaml>   Add sources from a YAML list")
	fmt.Fprintln(os.Stderr, "  discover                         Find feeds for sources without one")
	fmt.Fprintln(os.Stderr, "  list [-city name]                Print stored sources")
}

func main() {
	if len(os.Args) < 2 {
		usage()
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

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "import":
		err = runImport(ctx, a, args)
	case "discover":
		err = runDiscover(ctx, a)
	case "list":
		err = runList(ctx, a, args)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		a.Log.Error(cmd, "error", err)
		os.Exit(1)
	}
}

func runImport(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	discover := fs.Bool("discover", true, "discover feeds for entries without one")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("import needs exactly one file, got %d", fs.NArg())
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("open source list: %w", err)
	}
	defer func() { _ = f.Close() }()

	entries, err := sourcelist.Parse(f)
	if err != nil {
		return err
	}

	var d sourcelist.Discoverer
	if *discover {
		d = a.Finder()
	}
	res, err := sourcelist.Import(ctx, a.Store, entries, d, a.Log)
	if err != nil {
		return err
	}
	a.Log.Info("import finished", "created", res.Created, "skipped", res.Skipped, "discovered", res.Discovered)
	return nil
}

func runDiscover(ctx context.Context, a *app.App) error {
	sources, err := a.Store.ListSources(ctx)
	if err != nil {
		return err
	}

	finder := a.Finder()
	found := 0
	for _, src := range sources {
		if src.FeedURL != "" || src.WebsiteURL == "" {
			continue
		}
		feed, err := finder.Discover(ctx, src.WebsiteURL)
		if err != nil {
			a.Log.Warn("no feed discovered", "source_id", src.ID, "website", src.WebsiteURL, "error", err)
			continue
		}
		if err := a.Store.UpdateFeedURL(ctx, src.ID, feed); err != nil {
			return err
		}
		a.Log.Info("feed discovered", "source_id", src.ID, "feed", feed)
		found++
	}
	a.Log.Info("discovery finished", "found", found)
	return nil
}

func runList(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	city := fs.String("city", "", "only sources in this city")
	_ = fs.Parse(args)

	list := a.Store.ListSources
	if *city != "" {
		list = func(ctx context.Context) ([]model.Source, error) {
			return a.Store.ListSourcesByCity(ctx, *city)
		}
	}
	sources, err := list(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCITY\tFEED")
	for _, src := range sources {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", src.ID, src.Name, src.City, src.FeedURL)
	}
	return w.Flush()
}
