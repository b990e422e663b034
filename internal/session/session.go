// Package session owns one survey editing session: the mission record, the
// inventory ledger, the active catalog and the workflow stage, plus the
// collaborator ports for everything that leaves the process. All mutations
// go through explicit operations; the estimate is recomputed on demand and
// never stored.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"moveline/internal/catalog"
	"moveline/internal/domain"
	"moveline/internal/estimate"
	"moveline/internal/inventory"
	"moveline/internal/remote"
)

// Stage is the active workflow stage. Setup, Inventory and Summary form the
// linear survey path; History and HistoryDetail are a read-only detour from
// Setup that leaves the survey-in-progress untouched underneath.
type Stage string

const (
	StageSetup         Stage = "setup"
	StageInventory     Stage = "inventory"
	StageSummary       Stage = "summary"
	StageHistory       Stage = "history"
	StageHistoryDetail Stage = "history_detail"
)

var (
	ErrBadTransition  = errors.New("stage transition not allowed")
	ErrClientRequired = errors.New("client name is required before inventory")
	ErrReadOnlyStage  = errors.New("survey is read-only while viewing history")
	ErrBusy           = errors.New("operation already in progress")

	ErrSubmissionFailed  = errors.New("submission failed")
	ErrHistoryFetch      = errors.New("history fetch failed")
	ErrAudioCapture      = errors.New("audio capture failed")
	ErrRecordingActive   = errors.New("a recording is already active")
	ErrNotRecording      = errors.New("no active recording")
	ErrNoteNotFound      = errors.New("voice note not found")
	ErrNoSuchHistoryRow  = errors.New("history row out of range")
	ErrCollaboratorUnset = errors.New("collaborator not configured")
)

// Geolocation failure reasons. Locator implementations must return one of
// these (possibly wrapped) so callers can message the crew precisely.
var (
	ErrGPSPermissionDenied    = errors.New("gps permission denied")
	ErrGPSPositionUnavailable = errors.New("gps position unavailable")
	ErrGPSTimeout             = errors.New("gps acquisition timed out")
	ErrGPSUnsupported         = errors.New("gps not supported on this device")
)

// Locator acquires a single high-accuracy position fix.
type Locator interface {
	Locate(ctx context.Context) (domain.GPSFix, error)
}

// Recording is an in-flight audio capture. Stop finalizes it into a data-URI
// payload and releases the underlying device, success or not.
type Recording interface {
	Stop() (string, error)
}

// Recorder starts audio captures.
type Recorder interface {
	Start(ctx context.Context) (Recording, error)
}

// Store is the remote survey store.
type Store interface {
	FetchHistory(ctx context.Context) ([]domain.HistoryRow, error)
	Submit(ctx context.Context, payload []byte) error
}

// BackupStore keeps the most recent failed submission so no survey data is
// ever lost to a network problem.
type BackupStore interface {
	SaveBackup(ctx context.Context, payload []byte) error
}

// Journal records session events best-effort; a journal failure never fails
// the operation that triggered it.
type Journal interface {
	Append(ctx context.Context, evtType, entityID string, payload map[string]any) error
}

// Options wires a new session.
type Options struct {
	Catalog         *catalog.Catalog
	OfflineDefaults bool
	Remote          Store
	Backups         BackupStore
	Journal         Journal
	Locator         Locator
	Recorder        Recorder
	Now             func() time.Time
}

// Session is the explicit context object for one survey. Not safe for
// concurrent use; callers that multiplex sessions serialize access.
type Session struct {
	ID              string
	Mission         domain.Mission
	Ledger          inventory.Ledger
	Catalog         *catalog.Catalog
	OfflineDefaults bool
	Stage           Stage

	HistoryRows []domain.HistoryRow
	DetailIndex int

	remote   Store
	backups  BackupStore
	journalW Journal
	locator  Locator
	recorder Recorder

	recording  Recording
	locating   bool
	submitting bool
	fetching   bool

	Now func() time.Time
}

// New returns a blank session at the Setup stage.
func New(opts Options) *Session {
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		ID:              uuid.NewString(),
		Mission:         domain.NewMission(),
		Ledger:          inventory.New(),
		Catalog:         cat,
		OfflineDefaults: opts.OfflineDefaults,
		Stage:           StageSetup,
		DetailIndex:     -1,
		remote:          opts.Remote,
		backups:         opts.Backups,
		journalW:        opts.Journal,
		locator:         opts.Locator,
		recorder:        opts.Recorder,
		Now:             now,
	}
}

// MissionUpdateOptions is a field-level edit; nil fields are untouched.
type MissionUpdateOptions struct {
	ClientName    *string
	SiteName      *string
	Floor         *string
	DistanceKm    *float64
	ClearDistance bool
	Elevator      *bool
	ElevatorDims  *domain.ElevatorDims
	ParkingBand   *domain.ParkingBand
	Stairs        *int
	Comments      *string
}

// UpdateMission applies a field-level edit to the mission record.
func (s *Session) UpdateMission(opts MissionUpdateOptions) error {
	if s.viewingHistory() {
		return ErrReadOnlyStage
	}
	if opts.Floor != nil {
		switch *opts.Floor {
		case "0", "1", "2", "3+":
		default:
			return fmt.Errorf("invalid floor %q", *opts.Floor)
		}
	}
	if opts.ParkingBand != nil && !opts.ParkingBand.Valid() {
		return fmt.Errorf("invalid parking band %q", *opts.ParkingBand)
	}
	if opts.DistanceKm != nil && *opts.DistanceKm < 0 {
		return fmt.Errorf("distance must not be negative")
	}
	if opts.Stairs != nil && *opts.Stairs < 0 {
		return fmt.Errorf("stairs count must not be negative")
	}

	if opts.ClientName != nil {
		s.Mission.ClientName = *opts.ClientName
	}
	if opts.SiteName != nil {
		s.Mission.SiteName = *opts.SiteName
	}
	if opts.Floor != nil {
		s.Mission.Floor = *opts.Floor
	}
	if opts.ClearDistance {
		s.Mission.DistanceKm = nil
	} else if opts.DistanceKm != nil {
		km := *opts.DistanceKm
		s.Mission.DistanceKm = &km
	}
	if opts.Elevator != nil {
		s.Mission.Elevator = *opts.Elevator
	}
	if opts.ElevatorDims != nil {
		s.Mission.ElevatorDims = *opts.ElevatorDims
	}
	if opts.ParkingBand != nil {
		s.Mission.ParkingBand = *opts.ParkingBand
	}
	if opts.Stairs != nil {
		s.Mission.Stairs = *opts.Stairs
	}
	if opts.Comments != nil {
		s.Mission.Comments = *opts.Comments
	}
	return nil
}

// AdjustItem applies one tap on a counter: delta must be +1 or -1. The
// ledger keeps its invariants (no negatives, no all-zero entries).
func (s *Session) AdjustItem(itemID string, bucket inventory.Bucket, delta int) error {
	if s.viewingHistory() {
		return ErrReadOnlyStage
	}
	if delta != 1 && delta != -1 {
		return fmt.Errorf("delta must be +1 or -1, got %d", delta)
	}
	if itemID == "" {
		return fmt.Errorf("item id is required")
	}
	s.Ledger.Adjust(itemID, bucket, delta)
	return nil
}

// Estimate recomputes the logistics estimate from the current state.
func (s *Session) Estimate() (estimate.Estimate, error) {
	return estimate.Compute(s.Mission, s.Ledger, s.Catalog)
}

// Advance moves forward on the survey path. Setup to Inventory is gated on a
// non-empty client name; the transition is rejected, never silently skipped.
func (s *Session) Advance(ctx context.Context) error {
	switch s.Stage {
	case StageSetup:
		if s.Mission.ClientName == "" {
			return ErrClientRequired
		}
		return s.goTo(ctx, StageInventory)
	case StageInventory:
		return s.goTo(ctx, StageSummary)
	}
	return fmt.Errorf("%w: cannot advance from %s", ErrBadTransition, s.Stage)
}

// Back moves one step toward Setup, also unwinding the history detour.
func (s *Session) Back(ctx context.Context) error {
	switch s.Stage {
	case StageSummary:
		return s.goTo(ctx, StageInventory)
	case StageInventory:
		return s.goTo(ctx, StageSetup)
	case StageHistoryDetail:
		s.DetailIndex = -1
		return s.goTo(ctx, StageHistory)
	case StageHistory:
		s.HistoryRows = nil
		return s.goTo(ctx, StageSetup)
	}
	return fmt.Errorf("%w: cannot go back from %s", ErrBadTransition, s.Stage)
}

// OpenHistory fetches the submitted-survey list and enters the History
// stage. On fetch failure the stage is entered with an empty list and the
// error is returned for the notice; the survey in progress is untouched
// either way.
func (s *Session) OpenHistory(ctx context.Context) error {
	if s.Stage != StageSetup {
		return fmt.Errorf("%w: history opens from %s only", ErrBadTransition, StageSetup)
	}
	if s.remote == nil {
		return fmt.Errorf("%w: remote store", ErrCollaboratorUnset)
	}
	if s.fetching {
		return ErrBusy
	}
	s.fetching = true
	rows, err := s.remote.FetchHistory(ctx)
	s.fetching = false
	if err != nil {
		s.HistoryRows = nil
		if goErr := s.goTo(ctx, StageHistory); goErr != nil {
			return goErr
		}
		return fmt.Errorf("%w: %v", ErrHistoryFetch, err)
	}
	s.HistoryRows = rows
	return s.goTo(ctx, StageHistory)
}

// OpenHistoryDetail selects one fetched row for read-only display.
func (s *Session) OpenHistoryDetail(ctx context.Context, index int) error {
	if s.Stage != StageHistory {
		return fmt.Errorf("%w: detail opens from %s only", ErrBadTransition, StageHistory)
	}
	if index < 0 || index >= len(s.HistoryRows) {
		return ErrNoSuchHistoryRow
	}
	s.DetailIndex = index
	return s.goTo(ctx, StageHistoryDetail)
}

// HistoryDetail returns the selected row while in HistoryDetail.
func (s *Session) HistoryDetail() (domain.HistoryRow, bool) {
	if s.Stage != StageHistoryDetail || s.DetailIndex < 0 || s.DetailIndex >= len(s.HistoryRows) {
		return domain.HistoryRow{}, false
	}
	return s.HistoryRows[s.DetailIndex], true
}

// Submit serializes the survey and hands it to the remote store. Success
// resets mission and ledger and returns to Setup. Failure stages the full
// payload in the local backup store and leaves everything intact: the crew
// keeps their data and may retry.
func (s *Session) Submit(ctx context.Context) error {
	if s.Stage != StageSummary {
		return fmt.Errorf("%w: submit happens from %s only", ErrBadTransition, StageSummary)
	}
	if s.remote == nil {
		return fmt.Errorf("%w: remote store", ErrCollaboratorUnset)
	}
	if s.submitting {
		return ErrBusy
	}
	est, err := s.Estimate()
	if err != nil {
		return err
	}
	payload, err := json.Marshal(remote.Submission{
		Mission:   s.Mission,
		Inventory: s.Ledger,
		Stats:     est,
		Date:      s.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	s.submitting = true
	err = s.remote.Submit(ctx, payload)
	s.submitting = false
	if err != nil {
		if s.backups != nil {
			if backupErr := s.backups.SaveBackup(ctx, payload); backupErr != nil {
				err = errors.Join(err, backupErr)
			}
		}
		s.journal(ctx, "survey.submit.failed", map[string]any{"error": err.Error()})
		return fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	s.journal(ctx, "survey.submitted", map[string]any{
		"client":  s.Mission.ClientName,
		"volMove": est.MoveVolume,
		"cost":    est.Cost.Total,
	})
	s.Mission = domain.NewMission()
	s.Ledger = inventory.New()
	s.Stage = StageSetup
	return nil
}

// AcquireFix runs the single-shot position request through the locator.
// Only one acquisition may be outstanding.
func (s *Session) AcquireFix(ctx context.Context) error {
	if s.viewingHistory() {
		return ErrReadOnlyStage
	}
	if s.locator == nil {
		return ErrGPSUnsupported
	}
	if s.locating {
		return ErrBusy
	}
	s.locating = true
	locCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	fix, err := s.locator.Locate(locCtx)
	cancel()
	s.locating = false
	if err != nil {
		return err
	}
	s.Mission.GPS = &fix
	s.journal(ctx, "gps.recorded", map[string]any{"lat": fix.Lat, "lng": fix.Lng})
	return nil
}

// SetFix records a position supplied by the caller, for front-ends that run
// geolocation on the device and post the result.
func (s *Session) SetFix(fix domain.GPSFix) error {
	if s.viewingHistory() {
		return ErrReadOnlyStage
	}
	s.Mission.GPS = &fix
	return nil
}

// ClearFix discards the recorded position.
func (s *Session) ClearFix() error {
	if s.viewingHistory() {
		return ErrReadOnlyStage
	}
	s.Mission.GPS = nil
	return nil
}

// StartRecording begins a voice note. Allowed on the Setup and Summary
// screens; a single recording may be active at a time.
func (s *Session) StartRecording(ctx context.Context) error {
	if s.Stage != StageSetup && s.Stage != StageSummary {
		return fmt.Errorf("%w: recording allowed on setup and summary only", ErrBadTransition)
	}
	if s.recorder == nil {
		return fmt.Errorf("%w: audio recorder", ErrCollaboratorUnset)
	}
	if s.recording != nil {
		return ErrRecordingActive
	}
	rec, err := s.recorder.Start(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAudioCapture, err)
	}
	s.recording = rec
	return nil
}

// StopRecording finalizes the active capture and appends exactly one voice
// note. The device resource is released even when finalization fails.
func (s *Session) StopRecording(ctx context.Context) error {
	if s.recording == nil {
		return ErrNotRecording
	}
	rec := s.recording
	s.recording = nil
	data, err := rec.Stop()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAudioCapture, err)
	}
	s.attachNote(ctx, data)
	return nil
}

// IsRecording reports whether a capture is active.
func (s *Session) IsRecording() bool {
	return s.recording != nil
}

// AttachVoiceNote appends a note whose payload was captured by the caller,
// for front-ends that record on the device.
func (s *Session) AttachVoiceNote(ctx context.Context, data string) error {
	if s.Stage != StageSetup && s.Stage != StageSummary {
		return fmt.Errorf("%w: recording allowed on setup and summary only", ErrBadTransition)
	}
	if data == "" {
		return fmt.Errorf("voice note payload is required")
	}
	s.attachNote(ctx, data)
	return nil
}

// DeleteVoiceNote removes a note by id.
func (s *Session) DeleteVoiceNote(ctx context.Context, id string) error {
	if s.viewingHistory() {
		return ErrReadOnlyStage
	}
	for i, n := range s.Mission.VoiceNotes {
		if n.ID == id {
			s.Mission.VoiceNotes = append(s.Mission.VoiceNotes[:i], s.Mission.VoiceNotes[i+1:]...)
			s.journal(ctx, "note.deleted", map[string]any{"note_id": id})
			return nil
		}
	}
	return ErrNoteNotFound
}

// Snapshot is the persistable subset of session state, enough to resume a
// draft survey in a later process.
type Snapshot struct {
	ID              string           `json:"id"`
	Stage           Stage            `json:"stage"`
	Mission         domain.Mission   `json:"mission"`
	Ledger          inventory.Ledger `json:"inventory"`
	OfflineDefaults bool             `json:"offlineDefaults"`
}

// Snapshot captures the resumable state. The history detour and in-flight
// collaborator state are deliberately not part of it.
func (s *Session) Snapshot() Snapshot {
	st := s.Stage
	if s.viewingHistory() {
		st = StageSetup
	}
	return Snapshot{
		ID:              s.ID,
		Stage:           st,
		Mission:         s.Mission,
		Ledger:          s.Ledger.Clone(),
		OfflineDefaults: s.OfflineDefaults,
	}
}

// Restore resumes a draft. Unknown stages collapse to Setup rather than
// erroring: a draft must always be recoverable.
func (s *Session) Restore(sn Snapshot) {
	if sn.ID != "" {
		s.ID = sn.ID
	}
	switch sn.Stage {
	case StageSetup, StageInventory, StageSummary:
		s.Stage = sn.Stage
	default:
		s.Stage = StageSetup
	}
	s.Mission = sn.Mission
	if s.Mission.Floor == "" {
		s.Mission.Floor = "0"
	}
	if s.Mission.ParkingBand == "" {
		s.Mission.ParkingBand = domain.ParkingNear
	}
	if s.Mission.VoiceNotes == nil {
		s.Mission.VoiceNotes = []domain.VoiceNote{}
	}
	s.Ledger = sn.Ledger
	if s.Ledger == nil {
		s.Ledger = inventory.New()
	}
}

func (s *Session) attachNote(ctx context.Context, data string) {
	note := domain.VoiceNote{ID: uuid.NewString(), Data: data}
	s.Mission.VoiceNotes = append(s.Mission.VoiceNotes, note)
	s.journal(ctx, "note.recorded", map[string]any{"note_id": note.ID})
}

func (s *Session) viewingHistory() bool {
	return s.Stage == StageHistory || s.Stage == StageHistoryDetail
}

func (s *Session) goTo(ctx context.Context, to Stage) error {
	if err := ensureTransition(s.Stage, to); err != nil {
		return err
	}
	from := s.Stage
	s.Stage = to
	s.journal(ctx, "survey.stage.changed", map[string]any{"from": string(from), "to": string(to)})
	return nil
}

func ensureTransition(from, to Stage) error {
	switch from {
	case StageSetup:
		if to == StageInventory || to == StageHistory {
			return nil
		}
	case StageInventory:
		if to == StageSetup || to == StageSummary {
			return nil
		}
	case StageSummary:
		if to == StageInventory {
			return nil
		}
	case StageHistory:
		if to == StageSetup || to == StageHistoryDetail {
			return nil
		}
	case StageHistoryDetail:
		if to == StageHistory {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrBadTransition, from, to)
}

func (s *Session) journal(ctx context.Context, evtType string, payload map[string]any) {
	if s.journalW == nil {
		return
	}
	_ = s.journalW.Append(ctx, evtType, s.ID, payload)
}
