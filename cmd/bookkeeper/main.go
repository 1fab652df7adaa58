package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"bookkeeper/internal/cli"
	"bookkeeper/internal/core"
	"bookkeeper/internal/log"
	"bookkeeper/internal/services"
	"bookkeeper/internal/worker"
)

const usage = `usage: bookkeeper <command> [flags]

commands:
  totals           print day, week and month totals (-watch to keep refreshing)
  add-expense      record an expense (-amount, -category, -date, -comment)
  edit-expense     change an expense (-pk, and any of -amount, -date, -comment)
  delete-expense   delete an expense by -pk, or the oldest matching -amount, -category and -date
  history          list expenses, newest first
  add-category     create a category (-name, -parent)
  move-category    reparent a category (-name, -parent)
  delete-category  delete a category, moving its expenses and children up (-name)
  set-limit        set the limit of a period (-period day|week|month, -amount)
`

func main() {
	cli.LoadEnvFile()

	// Logger level comes from the environment before the full config is validated
	logger := cli.SetupLogger(os.Getenv("BOOKKEEPER_LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"totals"}
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	app, err := cli.InitApp(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize bookkeeper", log.FieldError, err)
		os.Exit(1)
	}

	err = run(ctx, app, logger, cfg.RefreshInterval, cfg.MetricsFile, args, os.Stdout)
	if cerr := app.Close(); cerr != nil {
		logger.Error("Failed to close store", log.FieldError, cerr)
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger.Error("Command failed", "command", args[0], log.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, app *cli.App, logger *log.Logger, interval time.Duration, metricsFile string, args []string, out io.Writer) error {
	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)

	switch cmd {
	case "totals":
		watch := fs.Bool("watch", false, "keep refreshing totals until interrupted")
		every := fs.Duration("interval", interval, "refresh interval in watch mode")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *every <= 0 {
			return &core.ValidationError{Entity: "totals", Field: "interval", Reason: fmt.Sprintf("%v must be positive", *every)}
		}
		return totals(ctx, app, logger, *watch, *every, metricsFile, out)

	case "add-expense":
		amount := fs.String("amount", "", "amount in minor units")
		category := fs.String("category", "", "category name")
		date := fs.String("date", "", "expense date as YYYY-MM-DD, default now")
		comment := fs.String("comment", "", "free text comment")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		value, err := core.ParseAmount(*amount)
		if err != nil {
			return err
		}
		var when time.Time
		if *date != "" {
			if when, err = parseDate(*date); err != nil {
				return err
			}
		}
		e, err := app.Expenses.Create(ctx, value, *category, when, *comment)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "expense %d saved\n", e.PK)
		return nil

	case "edit-expense":
		pk := fs.Int64("pk", 0, "expense pk")
		amount := fs.String("amount", "", "new amount in minor units")
		date := fs.String("date", "", "new expense date as YYYY-MM-DD")
		comment := fs.String("comment", "", "new comment")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		var changes services.ExpenseChanges
		var err error
		fs.Visit(func(f *flag.Flag) {
			if err != nil {
				return
			}
			switch f.Name {
			case "amount":
				var value int64
				if value, err = core.ParseAmount(*amount); err == nil {
					changes.Amount = &value
				}
			case "date":
				var when time.Time
				if when, err = parseDate(*date); err == nil {
					changes.ExpenseDate = &when
				}
			case "comment":
				changes.Comment = comment
			}
		})
		if err != nil {
			return err
		}
		e, err := app.Expenses.Edit(ctx, *pk, changes)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "expense %d updated\n", e.PK)
		return nil

	case "delete-expense":
		pk := fs.Int64("pk", 0, "expense pk")
		amount := fs.String("amount", "", "amount in minor units")
		category := fs.String("category", "", "category name")
		date := fs.String("date", "", "expense date as YYYY-MM-DD")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *pk != 0 {
			if err := app.Expenses.Delete(ctx, *pk); err != nil {
				return err
			}
			fmt.Fprintf(out, "expense %d deleted\n", *pk)
			return nil
		}
		value, err := core.ParseAmount(*amount)
		if err != nil {
			return err
		}
		when, err := parseDate(*date)
		if err != nil {
			return err
		}
		deleted, err := app.Expenses.DeleteMatching(ctx, value, *category, when)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "expense %d deleted\n", deleted)
		return nil

	case "history":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		expenses, err := app.Expenses.History(ctx)
		if err != nil {
			return err
		}
		names := map[int64]string{}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PK\tDATE\tAMOUNT\tCATEGORY\tCOMMENT")
		for _, e := range expenses {
			name, ok := names[e.Category]
			if !ok {
				if name, err = categoryPath(ctx, app.Categories, e.Category); err != nil {
					return err
				}
				names[e.Category] = name
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", e.PK, e.ExpenseDate.Local().Format(time.DateOnly), e.Amount, name, e.Comment)
		}
		return w.Flush()

	case "add-category":
		name := fs.String("name", "", "category name")
		parent := fs.String("parent", "", "parent category name, empty for none")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		c, err := app.Categories.Add(ctx, *name, *parent)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "category %d %q added\n", c.PK, c.Name)
		return nil

	case "move-category":
		name := fs.String("name", "", "category name")
		parent := fs.String("parent", "", "new parent category name, empty for none")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		pk, ok, err := app.Categories.Resolve(ctx, *name)
		if err != nil {
			return err
		}
		if !ok {
			return &core.ValidationError{Entity: "category", Field: "name", Reason: fmt.Sprintf("%q does not exist", *name)}
		}
		return app.Categories.Reparent(ctx, pk, *parent)

	case "delete-category":
		name := fs.String("name", "", "category name")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return app.Categories.DeleteByName(ctx, *name)

	case "set-limit":
		period := fs.String("period", "", "day, week or month")
		amount := fs.String("amount", "", "limit in minor units")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		days, err := services.ParsePeriod(*period)
		if err != nil {
			return err
		}
		value, err := core.ParseAmount(*amount)
		if err != nil {
			return err
		}
		_, err = app.Budgets.SetLimit(ctx, days, value)
		return err

	default:
		fmt.Fprint(os.Stderr, usage)
		return flag.ErrHelp
	}
}

// parseDate reads a YYYY-MM-DD date as local midnight.
func parseDate(s string) (time.Time, error) {
	when, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, &core.ValidationError{Entity: "expense", Field: "date", Reason: fmt.Sprintf("%q is not YYYY-MM-DD", s)}
	}
	return when, nil
}

// categoryPath renders a category as its ancestry from the top, e.g.
// "other/food/coffee". Expenses without a category print "-".
func categoryPath(ctx context.Context, categories *services.CategoryService, pk int64) (string, error) {
	if pk == 0 {
		return "-", nil
	}
	path, err := categories.Path(ctx, pk)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Sprintf("#%d", pk), nil
	}
	if err != nil {
		return "", err
	}
	names := make([]string, len(path))
	for i, c := range path {
		names[len(path)-1-i] = c.Name
	}
	return strings.Join(names, "/"), nil
}

func totals(ctx context.Context, app *cli.App, logger *log.Logger, watch bool, interval time.Duration, metricsFile string, out io.Writer) error {
	show := func(t services.Totals) { printTotals(out, t) }

	var opts []worker.RefresherOption
	if metricsFile != "" {
		opts = append(opts, worker.WithMetrics(worker.NewMetrics(), metricsFile))
	}
	refresher := worker.NewRefresher(app.Budgets, interval, show, logger, opts...)

	if !watch {
		_, err := refresher.Refresh(ctx)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return refresher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
		return nil
	})
	return g.Wait()
}

func printTotals(out io.Writer, t services.Totals) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "totals at %s\n", t.At.Format(time.DateTime))
	fmt.Fprintln(w, "PERIOD\tSINCE\tPAID\tLIMIT\tUSAGE")
	for _, p := range t.Periods() {
		mark := ""
		if p.Exceeded() {
			mark = " over"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s%%%s\n",
			services.PeriodName(p.Length),
			p.Start.Format(time.DateOnly),
			p.Paid,
			p.Limit,
			p.Usage().Shift(2).StringFixed(2),
			mark)
	}
	w.Flush()
}
