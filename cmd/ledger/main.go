// Command ledger inspects the SQLite fit ledger written by the fitting
// tools when run with -ledger.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fitgrid/fitgrid/internal/cli"
	"github.com/fitgrid/fitgrid/internal/ledger"
)

func main() {
	var dbPath, pointsOf, addr string
	var limit int
	var failedOnly bool

	flag.StringVar(&dbPath, "db", "fitgrid.db", "ledger database")
	flag.IntVar(&limit, "limit", 20, "number of runs to list")
	flag.StringVar(&pointsOf, "run", "", "list the points of this run id")
	flag.BoolVar(&failedOnly, "failed", false, "with -run, list failed points only")
	flag.StringVar(&addr, "serve", "", "serve the debug UI on this address, e.g. localhost:8090")
	showVersion := cli.VersionFlag(flag.CommandLine)
	flag.Parse()
	cli.HandleVersion(*showVersion, "ledger")

	l, err := ledger.Open(dbPath)
	if err != nil {
		log.Fatalf("open ledger: %v", err)
	}
	defer l.Close()

	switch {
	case addr != "":
		if err := serve(l, addr); err != nil {
			log.Fatalf("%v", err)
		}
	case pointsOf != "":
		status := ""
		if failedOnly {
			status = ledger.StatusFailed
		}
		pts, err := l.Points(pointsOf, status)
		if err != nil {
			log.Fatalf("%v", err)
		}
		printPoints(pts)
	default:
		runs, err := l.Runs(limit)
		if err != nil {
			log.Fatalf("%v", err)
		}
		printRuns(runs)
	}
}

func printRuns(runs []ledger.Run) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTOOL\tGROUP\tSTARTED\tDURATION\tOK\tFAILED\tSKIPPED")
	for _, r := range runs {
		group := r.Analysis
		if r.Simplified {
			group += " (simplified)"
		}
		dur := "interrupted"
		if r.Done() {
			dur = r.Finished.Sub(r.Started).Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			r.ID, r.Tool, group, r.Started.Local().Format(time.DateTime), dur, r.Succeeded, r.Failed, r.Skipped)
	}
	tw.Flush()
}

func printPoints(pts []ledger.Point) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POINT\tSTATUS\tCLS_OBS\tCLS_EXP\tELAPSED\tDETAIL")
	for _, p := range pts {
		detail := p.Output
		if p.Status == ledger.StatusFailed {
			detail = p.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%.4g\t%.4g\t%s\t%s\n", p.Name, p.Status, p.CLsObs, p.CLsExp, p.Elapsed, detail)
	}
	tw.Flush()
}

func serve(l *ledger.Ledger, addr string) error {
	mux := http.NewServeMux()
	if err := l.AttachAdminRoutes(mux); err != nil {
		return err
	}
	srv := &http.Server{Addr: addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("serving fit ledger debug UI on http://%s/debug/", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
