// Package app wires a survey session together: catalog load with fallback,
// draft resume, and draft persistence between invocations.
package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"moveline/internal/catalog"
	"moveline/internal/db"
	"moveline/internal/events"
	"moveline/internal/migrate"
	"moveline/internal/remote"
	"moveline/internal/repo"
	"moveline/internal/session"
)

// Open opens and migrates the workspace database.
func Open(workspace string) (*sql.DB, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// LoadCatalog fetches the remote catalog, falling back atomically to the
// built-in defaults on any failure. It never returns an error: the caller
// always gets a usable catalog plus a flag for the offline notice.
func LoadCatalog(ctx context.Context, client *remote.Client, jw session.Journal) (*catalog.Catalog, bool) {
	if client == nil || client.Endpoint == "" {
		return catalog.Default(), true
	}
	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	cat, err := client.FetchConfig(fetchCtx)
	if err != nil {
		logrus.WithError(err).Warn("remote config unavailable, using built-in defaults")
		if jw != nil {
			_ = jw.Append(ctx, "catalog.fallback", "", map[string]any{"error": err.Error()})
		}
		return catalog.Default(), true
	}
	return cat, false
}

// Options configures session resolution.
type Options struct {
	Endpoint string
	Locator  session.Locator
	Recorder session.Recorder
}

// ResolveSession builds the session for a workspace, resuming the stored
// draft when one exists.
func ResolveSession(ctx context.Context, conn *sql.DB, opts Options) (*session.Session, repo.Repo, error) {
	r := repo.Repo{DB: conn}
	jw := events.Writer{DB: conn}

	var client *remote.Client
	if opts.Endpoint != "" {
		client = remote.New(opts.Endpoint)
	}
	cat, offline := LoadCatalog(ctx, client, jw)

	sessOpts := session.Options{
		Catalog:         cat,
		OfflineDefaults: offline,
		Backups:         r,
		Journal:         jw,
		Locator:         opts.Locator,
		Recorder:        opts.Recorder,
	}
	if client != nil {
		sessOpts.Remote = client
	}
	s := session.New(sessOpts)

	data, err := r.LoadDraft(ctx, repo.DraftKey)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return s, r, nil
		}
		return nil, repo.Repo{}, err
	}
	var snap session.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// A corrupt draft should not brick the workspace; start fresh.
		logrus.WithError(err).Warn("stored draft is unreadable, starting a new survey")
		return s, r, nil
	}
	s.Restore(snap)
	return s, r, nil
}

// SaveSession persists the current draft so the next invocation resumes it.
func SaveSession(ctx context.Context, r repo.Repo, s *session.Session) error {
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	return r.SaveDraft(ctx, repo.DraftKey, data)
}

// ResetSession discards the stored draft.
func ResetSession(ctx context.Context, r repo.Repo) error {
	return r.DeleteDraft(ctx, repo.DraftKey)
}
