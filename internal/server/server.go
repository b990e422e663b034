// Package server exposes survey sessions over HTTP for a device front-end:
// the front-end renders screens and captures audio/GPS, this API owns the
// workflow, the ledger and the estimate.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"moveline/internal/catalog"
	"moveline/internal/domain"
	"moveline/internal/estimate"
	"moveline/internal/inventory"
	"moveline/internal/repo"
	"moveline/internal/session"
)

// Config for the HTTP API handler.
type Config struct {
	Sessions *Manager
	BasePath string
	Auth     AuthConfig
}

// Manager holds live sessions and serializes access to them: session
// mutations are synchronous and atomic with respect to each other.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
	factory  func() *session.Session
}

var ErrSessionNotFound = errors.New("session not found")

// NewManager returns a manager that builds sessions with factory.
func NewManager(factory func() *session.Session) *Manager {
	return &Manager{
		sessions: map[string]*session.Session{},
		factory:  factory,
	}
}

// Create starts a new session and returns its id.
func (m *Manager) Create() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.factory()
	m.sessions[s.ID] = s
	return s.ID
}

// Do runs fn against one session under the manager lock.
func (m *Manager) Do(id string, fn func(*session.Session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	return fn(s)
}

type apiErrorBody struct {
	Code    string `json:"code" example:"stage_conflict"`
	Message string `json:"message" example:"stage transition not allowed"`
}

type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

func newAPIError(status int, code, message string) huma.StatusError {
	return &apiError{status: status, Body: apiErrorBody{Code: code, Message: message}}
}

// New returns an HTTP handler exposing the survey API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Moveline Survey API", "0.1.0")
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerSessions(group, cfg.Sessions)
	registerMission(group, cfg.Sessions)
	registerInventory(group, cfg.Sessions)
	registerWorkflow(group, cfg.Sessions)
	registerNotes(group, cfg.Sessions)

	return router, nil
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", msg)
	case errors.Is(err, session.ErrClientRequired):
		return newAPIError(http.StatusUnprocessableEntity, "client_required", msg)
	case errors.Is(err, estimate.ErrNonPositiveRate):
		return newAPIError(http.StatusUnprocessableEntity, "invalid_engine_input", msg)
	case errors.Is(err, session.ErrBadTransition),
		errors.Is(err, session.ErrReadOnlyStage),
		errors.Is(err, session.ErrRecordingActive),
		errors.Is(err, session.ErrNotRecording),
		errors.Is(err, session.ErrBusy):
		return newAPIError(http.StatusConflict, "stage_conflict", msg)
	case errors.Is(err, session.ErrSubmissionFailed),
		errors.Is(err, session.ErrHistoryFetch):
		return newAPIError(http.StatusBadGateway, "upstream_failed", msg)
	case errors.Is(err, session.ErrNoSuchHistoryRow),
		errors.Is(err, session.ErrNoteNotFound):
		return newAPIError(http.StatusNotFound, "not_found", msg)
	default:
		return newAPIError(http.StatusBadRequest, "bad_request", msg)
	}
}

// sessionView is the full read model returned to the front-end after every
// operation: current stage, the editable state, and the derived estimate.
type sessionView struct {
	ID              string              `json:"id"`
	Stage           session.Stage       `json:"stage"`
	OfflineDefaults bool                `json:"offlineDefaults"`
	Mission         domain.Mission      `json:"mission"`
	Inventory       inventory.Ledger    `json:"inventory"`
	Estimate        *estimate.Estimate  `json:"estimate,omitempty"`
	EstimateError   string              `json:"estimateError,omitempty"`
	History         []domain.HistoryRow `json:"history,omitempty"`
	Recording       bool                `json:"recording"`
}

func viewOf(s *session.Session) sessionView {
	v := sessionView{
		ID:              s.ID,
		Stage:           s.Stage,
		OfflineDefaults: s.OfflineDefaults,
		Mission:         s.Mission,
		Inventory:       s.Ledger,
		History:         s.HistoryRows,
		Recording:       s.IsRecording(),
	}
	est, err := s.Estimate()
	if err != nil {
		v.EstimateError = err.Error()
	} else {
		v.Estimate = &est
	}
	return v
}

type SessionPath struct {
	SessionID string `path:"session_id"`
}

type viewOutput struct {
	Body sessionView
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerSessions(api huma.API, m *Manager) {
	huma.Register(api, huma.Operation{
		OperationID: "create-session",
		Method:      http.MethodPost,
		Path:        "/sessions",
		Summary:     "Start a new survey session",
	}, func(ctx context.Context, _ *struct{}) (*viewOutput, error) {
		id := m.Create()
		var out viewOutput
		if err := m.Do(id, func(s *session.Session) error {
			out.Body = viewOf(s)
			return nil
		}); err != nil {
			return nil, handleError(err)
		}
		return &out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}",
		Summary:     "Current session state and estimate",
	}, func(ctx context.Context, input *SessionPath) (*viewOutput, error) {
		var out viewOutput
		if err := m.Do(input.SessionID, func(s *session.Session) error {
			out.Body = viewOf(s)
			return nil
		}); err != nil {
			return nil, handleError(err)
		}
		return &out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-catalog",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}/catalog",
		Summary:     "Active item catalog grouped by category",
	}, func(ctx context.Context, input *SessionPath) (*struct {
		Body []catalog.CategoryGroup `json:"body"`
	}, error) {
		var groups []catalog.CategoryGroup
		if err := m.Do(input.SessionID, func(s *session.Session) error {
			groups = s.Catalog.ByCategory()
			return nil
		}); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []catalog.CategoryGroup `json:"body"`
		}{Body: groups}, nil
	})
}

func registerMission(api huma.API, m *Manager) {
	type missionPatch struct {
		SessionPath
		Body struct {
			ClientName    *string              `json:"clientName,omitempty"`
			SiteName      *string              `json:"siteName,omitempty"`
			Floor         *string              `json:"floor,omitempty" enum:"0,1,2,3+"`
			DistanceKm    *float64             `json:"distanceKm,omitempty" minimum:"0"`
			ClearDistance bool                 `json:"clearDistance,omitempty"`
			Elevator      *bool                `json:"elevator,omitempty"`
			ElevatorDims  *domain.ElevatorDims `json:"elevatorDims,omitempty"`
			ParkingBand   *domain.ParkingBand  `json:"parkingDistance,omitempty"`
			Stairs        *int                 `json:"stairs,omitempty" minimum:"0"`
			Comments      *string              `json:"comments,omitempty"`
		}
	}
	huma.Register(api, huma.Operation{
		OperationID: "update-mission",
		Method:      http.MethodPatch,
		Path:        "/sessions/{session_id}/mission",
		Summary:     "Edit mission record fields",
	}, func(ctx context.Context, input *missionPatch) (*viewOutput, error) {
		var out viewOutput
		if err := m.Do(input.SessionID, func(s *session.Session) error {
			if err := s.UpdateMission(session.MissionUpdateOptions{
				ClientName:    input.Body.ClientName,
				SiteName:      input.Body.SiteName,
				Floor:         input.Body.Floor,
				DistanceKm:    input.Body.DistanceKm,
				ClearDistance: input.Body.ClearDistance,
				Elevator:      input.Body.Elevator,
				ElevatorDims:  input.Body.ElevatorDims,
				ParkingBand:   input.Body.ParkingBand,
				Stairs:        input.Body.Stairs,
				Comments:      input.Body.Comments,
			}); err != nil {
				return err
			}
			out.Body = viewOf(s)
			return nil
		}); err != nil {
			return nil, handleError(err)
		}
		return &out, nil
	})

	type gpsInput struct {
		SessionPath
		Body domain.GPSFix
	}
	huma.Register(api, huma.Operation{
		OperationID: "set-gps",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/gps",
		Summary:     "Record a device-acquired position fix",
	}, func(ctx context.Context, input *gpsInput) (*viewOutput, error) {
		var out viewOutput
		if err := m.Do(input.SessionID, func(s *session.Session) error {
			if err := s.SetFix(input.Body); err != nil {
				return err
			}
			out.Body = viewOf(s)
			return nil
		}); err != nil {
			return nil, handleError(err)
		}
		return &out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "clear-gps",
		Method:      http.MethodDelete,
		Path:        "/sessions/{session_id}/gps",
		Summary:     "Discard the recorded position fix",
	}, func(ctx context.Context, input *SessionPath) (*viewOutput, error) {
		var out viewOutput
		if err := m.Do(input.SessionID, func(s *session.Session) error {
			if err := s.ClearFix(); err != nil {
				return err
			}
			out.Body = viewOf(s)
			return nil
		}); err != nil {
			return nil, handleError(err)
		}
		return &out, nil
	})
}

func registerInventory(api huma.API, m *Manager) {
	type adjustInput struct {
		SessionPath
		ItemID string `path:"item_id"`
		Body   struct {
			Bucket inventory.Bucket `json:"bucket" enum:"move,dispose"`
			Delta  int              `json:"delta" enum:"1,-1"`
		}
	}
	huma.Register(api, huma.Operation{
		OperationID: "adjust-item",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/inventory/{item_id}",
		Summary:     "Adjust one inventory counter by one",
	}, func(ctx context.Context, input *adjustInput) (*viewOutput, error) {
		var out viewOutput
		if err := m.Do(input.SessionID, func(s *session.Session) error {
			if err := s.AdjustItem(input.ItemID, input.Body.Bucket, input.Body.Delta); err != nil {
				return err
			}
			out.Body = viewOf(s)
			return nil
		}); err != nil {
			return nil, handleError(err)
		}
		return &out, nil
	})
}

func registerWorkflow(api huma.API, m *Manager) {
	step := func(opID, path, summary string, op func(context.Context, *session.Session) error) {
		huma.Register(api, huma.Operation{
			OperationID: opID,
			Method:      http.MethodPost,
			Path:        path,
			Summary:     summary,
		}, func(ctx context.Context, input *SessionPath) (*viewOutput, error) {
			var out viewOutput
			if err := m.Do(input.SessionID, func(s *session.Session) error {
				if err := op(ctx, s); err != nil {
					return err
				}
				out.Body = viewOf(s)
				return nil
			}); err != nil {
				return nil, handleError(err)
			}
			return &out, nil
		})
	}

	step("advance-stage", "/sessions/{session_id}/advance", "Advance to the next survey stage",
		func(ctx context.Context, s *session.Session) error { return s.Advance(ctx) })
	step("back-stage", "/sessions/{session_id}/back", "Go back one stage",
		func(ctx context.Context, s *session.Session) error { return s.Back(ctx) })
	step("submit-survey", "/sessions/{session_id}/submit", "Submit the completed survey",
		func(ctx context.Context, s *session.Session) error { return s.Submit(ctx) })
	step("open-history", "/sessions/{session_id}/history", "Fetch submitted surveys and enter history",
		func(ctx context.Context, s *session.Session) error { return s.OpenHistory(ctx) })

	type detailInput struct {
		SessionPath
		Index int `path:"index" minimum:"0"`
	}
	huma.Register(api, huma.Operation{
		OperationID: "open-history-detail",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/history/{index}",
		Summary:     "Open one history row read-only",
	}, func(ctx context.Context, input *detailInput) (*viewOutput, error) {
		var out viewOutput
		if err := m.Do(input.SessionID, func(s *session.Session) error {
			if err := s.OpenHistoryDetail(ctx, input.Index); err != nil {
				return err
			}
			out.Body = viewOf(s)
			return nil
		}); err != nil {
			return nil, handleError(err)
		}
		return &out, nil
	})
}

func registerNotes(api huma.API, m *Manager) {
	type noteInput struct {
		SessionPath
		Body struct {
			Data string `json:"data" minLength:"1" doc:"Audio payload as a data URI"`
		}
	}
	huma.Register(api, huma.Operation{
		OperationID: "attach-voice-note",
		Method:      http.MethodPost,
		Path:        "/sessions/{session_id}/voice-notes",
		Summary:     "Attach a device-recorded voice note",
	}, func(ctx context.Context, input *noteInput) (*viewOutput, error) {
		var out viewOutput
		if err := m.Do(input.SessionID, func(s *session.Session) error {
			if err := s.AttachVoiceNote(ctx, input.Body.Data); err != nil {
				return err
			}
			out.Body = viewOf(s)
			return nil
		}); err != nil {
			return nil, handleError(err)
		}
		return &out, nil
	})

	type notePath struct {
		SessionPath
		NoteID string `path:"note_id"`
	}
	huma.Register(api, huma.Operation{
		OperationID: "delete-voice-note",
		Method:      http.MethodDelete,
		Path:        "/sessions/{session_id}/voice-notes/{note_id}",
		Summary:     "Delete a voice note",
	}, func(ctx context.Context, input *notePath) (*viewOutput, error) {
		var out viewOutput
		if err := m.Do(input.SessionID, func(s *session.Session) error {
			if err := s.DeleteVoiceNote(ctx, input.NoteID); err != nil {
				return err
			}
			out.Body = viewOf(s)
			return nil
		}); err != nil {
			return nil, handleError(err)
		}
		return &out, nil
	})
}
