package ledger

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/fitgrid/fitgrid/internal/monitoring"
)

// AttachAdminRoutes mounts the tailsql console and a backup endpoint under
// /debug/ on mux, and the JSON API under /api/.
func (l *Ledger) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(l.path), l.DB, &tailsql.DBOptions{
		Label: "Fit ledger",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	debug.Handle("backup", "Create and download a backup of the ledger now", http.HandlerFunc(l.serveBackup))
	l.attachAPI(mux)
	return nil
}

func (l *Ledger) serveBackup(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("ledger-backup-%d.db", l.Clock.Now().Unix())
	backupPath := filepath.Join(os.TempDir(), name)
	if _, err := l.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.Remove(backupPath); err != nil {
			monitoring.Logf("failed to remove backup file: %v", err)
		}
	}()

	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer backupFile.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", name))
	w.Header().Set("Content-Type", "application/gzip")

	zw := gzip.NewWriter(w)
	defer zw.Close()
	if _, err := io.Copy(zw, backupFile); err != nil {
		monitoring.Logf("failed to stream backup: %v", err)
	}
}
