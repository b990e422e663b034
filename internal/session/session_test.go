package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"moveline/internal/domain"
	"moveline/internal/inventory"
)

type fakeStore struct {
	rows       []domain.HistoryRow
	fetchErr   error
	submitErr  error
	submitted  [][]byte
	fetchCalls int
}

func (f *fakeStore) FetchHistory(ctx context.Context) ([]domain.HistoryRow, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.rows, nil
}

func (f *fakeStore) Submit(ctx context.Context, payload []byte) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, payload)
	return nil
}

type fakeBackup struct {
	saved [][]byte
	err   error
}

func (f *fakeBackup) SaveBackup(ctx context.Context, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, payload)
	return nil
}

type fakeJournal struct {
	types []string
}

func (f *fakeJournal) Append(ctx context.Context, evtType, entityID string, payload map[string]any) error {
	f.types = append(f.types, evtType)
	return nil
}

type fakeRecording struct {
	data string
	err  error
}

func (f fakeRecording) Stop() (string, error) { return f.data, f.err }

type fakeRecorder struct {
	rec      fakeRecording
	startErr error
}

func (f fakeRecorder) Start(ctx context.Context) (Recording, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.rec, nil
}

type fakeLocator struct {
	fix domain.GPSFix
	err error
}

func (f fakeLocator) Locate(ctx context.Context) (domain.GPSFix, error) {
	return f.fix, f.err
}

func newTestSession(t *testing.T, opts Options) *Session {
	t.Helper()
	return New(opts)
}

func strPtr(s string) *string   { return &s }
func intPtr(n int) *int         { return &n }
func f64Ptr(v float64) *float64 { return &v }
func boolPtr(b bool) *bool      { return &b }

func setClient(t *testing.T, s *Session, name string) {
	t.Helper()
	if err := s.UpdateMission(MissionUpdateOptions{ClientName: strPtr(name)}); err != nil {
		t.Fatalf("set client: %v", err)
	}
}

func TestNewSessionDefaults(t *testing.T) {
	s := newTestSession(t, Options{})
	if s.Stage != StageSetup {
		t.Fatalf("new session must start at setup, got %s", s.Stage)
	}
	if s.Mission.Floor != "0" || !s.Mission.Elevator || s.Mission.ParkingBand != domain.ParkingNear {
		t.Fatalf("unexpected mission defaults: %+v", s.Mission)
	}
	if !s.Ledger.Empty() {
		t.Fatalf("new session must have an empty ledger")
	}
	if s.ID == "" {
		t.Fatalf("session id must be set")
	}
}

func TestAdvanceRequiresClientName(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Options{})
	if err := s.Advance(ctx); !errors.Is(err, ErrClientRequired) {
		t.Fatalf("expected ErrClientRequired, got %v", err)
	}
	if s.Stage != StageSetup {
		t.Fatalf("rejected advance must not change the stage")
	}

	setClient(t, s, "Acme")
	if err := s.Advance(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if s.Stage != StageInventory {
		t.Fatalf("expected inventory stage, got %s", s.Stage)
	}
}

func TestForwardAndBackPath(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Options{})
	setClient(t, s, "Acme")

	for _, want := range []Stage{StageInventory, StageSummary} {
		if err := s.Advance(ctx); err != nil {
			t.Fatalf("advance to %s: %v", want, err)
		}
		if s.Stage != want {
			t.Fatalf("expected %s, got %s", want, s.Stage)
		}
	}
	if err := s.Advance(ctx); !errors.Is(err, ErrBadTransition) {
		t.Fatalf("advancing past summary must fail, got %v", err)
	}

	for _, want := range []Stage{StageInventory, StageSetup} {
		if err := s.Back(ctx); err != nil {
			t.Fatalf("back to %s: %v", want, err)
		}
		if s.Stage != want {
			t.Fatalf("expected %s, got %s", want, s.Stage)
		}
	}
	if err := s.Back(ctx); !errors.Is(err, ErrBadTransition) {
		t.Fatalf("going back from setup must fail, got %v", err)
	}
}

func TestUpdateMissionValidation(t *testing.T) {
	s := newTestSession(t, Options{})
	if err := s.UpdateMission(MissionUpdateOptions{Floor: strPtr("12")}); err == nil {
		t.Fatalf("bad floor accepted")
	}
	band := domain.ParkingBand("across town")
	if err := s.UpdateMission(MissionUpdateOptions{ParkingBand: &band}); err == nil {
		t.Fatalf("bad parking band accepted")
	}
	if err := s.UpdateMission(MissionUpdateOptions{DistanceKm: f64Ptr(-1)}); err == nil {
		t.Fatalf("negative distance accepted")
	}
	if err := s.UpdateMission(MissionUpdateOptions{Stairs: intPtr(-2)}); err == nil {
		t.Fatalf("negative stairs accepted")
	}
}

func TestUpdateMissionAppliesFields(t *testing.T) {
	s := newTestSession(t, Options{})
	far := domain.ParkingFar
	err := s.UpdateMission(MissionUpdateOptions{
		ClientName:  strPtr("Acme"),
		SiteName:    strPtr("HQ"),
		Floor:       strPtr("3+"),
		DistanceKm:  f64Ptr(12.5),
		Elevator:    boolPtr(false),
		ParkingBand: &far,
		Stairs:      intPtr(4),
		Comments:    strPtr("narrow corridor"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	m := s.Mission
	if m.ClientName != "Acme" || m.SiteName != "HQ" || m.Floor != "3+" || m.Elevator ||
		m.ParkingBand != domain.ParkingFar || m.Stairs != 4 || m.Comments != "narrow corridor" {
		t.Fatalf("fields not applied: %+v", m)
	}
	if m.DistanceKm == nil || *m.DistanceKm != 12.5 {
		t.Fatalf("distance not applied: %v", m.DistanceKm)
	}

	if err := s.UpdateMission(MissionUpdateOptions{ClearDistance: true}); err != nil {
		t.Fatalf("clear distance: %v", err)
	}
	if s.Mission.DistanceKm != nil {
		t.Fatalf("distance not cleared")
	}
}

func TestAdjustItemDeltaBounds(t *testing.T) {
	s := newTestSession(t, Options{})
	if err := s.AdjustItem("desk", inventory.BucketMove, 2); err == nil {
		t.Fatalf("delta 2 accepted")
	}
	if err := s.AdjustItem("", inventory.BucketMove, 1); err == nil {
		t.Fatalf("empty item id accepted")
	}
	if err := s.AdjustItem("desk", inventory.BucketMove, 1); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if s.Ledger["desk"].ToMove != 1 {
		t.Fatalf("ledger not updated: %v", s.Ledger)
	}
}

func TestOpenHistory(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{rows: []domain.HistoryRow{{Client: "Acme", Cost: 590}}}
	s := newTestSession(t, Options{Remote: store})

	if err := s.OpenHistory(ctx); err != nil {
		t.Fatalf("open history: %v", err)
	}
	if s.Stage != StageHistory || len(s.HistoryRows) != 1 {
		t.Fatalf("history not entered: stage=%s rows=%d", s.Stage, len(s.HistoryRows))
	}

	if err := s.OpenHistoryDetail(ctx, 5); !errors.Is(err, ErrNoSuchHistoryRow) {
		t.Fatalf("out-of-range index, got %v", err)
	}
	if err := s.OpenHistoryDetail(ctx, 0); err != nil {
		t.Fatalf("open detail: %v", err)
	}
	row, ok := s.HistoryDetail()
	if !ok || row.Client != "Acme" {
		t.Fatalf("detail row missing: %v %v", row, ok)
	}

	if err := s.Back(ctx); err != nil || s.Stage != StageHistory {
		t.Fatalf("back to history: %v stage=%s", err, s.Stage)
	}
	if err := s.Back(ctx); err != nil || s.Stage != StageSetup {
		t.Fatalf("back to setup: %v stage=%s", err, s.Stage)
	}
	if s.HistoryRows != nil {
		t.Fatalf("leaving history must drop the fetched rows")
	}
}

func TestOpenHistoryFetchFailure(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{fetchErr: fmt.Errorf("boom")}
	s := newTestSession(t, Options{Remote: store})
	setClient(t, s, "Acme")
	s.Ledger.Adjust("desk", inventory.BucketMove, 1)

	err := s.OpenHistory(ctx)
	if !errors.Is(err, ErrHistoryFetch) {
		t.Fatalf("expected ErrHistoryFetch, got %v", err)
	}
	if s.Stage != StageHistory {
		t.Fatalf("history stage must be entered even on fetch failure, got %s", s.Stage)
	}
	if len(s.HistoryRows) != 0 {
		t.Fatalf("failed fetch must leave an empty list")
	}
	// The draft under the detour is untouched.
	if s.Mission.ClientName != "Acme" || s.Ledger["desk"].ToMove != 1 {
		t.Fatalf("survey draft was modified by the history detour")
	}
}

func TestOpenHistoryGuards(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Options{Remote: &fakeStore{}})
	setClient(t, s, "Acme")
	if err := s.Advance(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := s.OpenHistory(ctx); !errors.Is(err, ErrBadTransition) {
		t.Fatalf("history from inventory must fail, got %v", err)
	}

	noStore := newTestSession(t, Options{})
	if err := noStore.OpenHistory(ctx); !errors.Is(err, ErrCollaboratorUnset) {
		t.Fatalf("expected ErrCollaboratorUnset, got %v", err)
	}
}

func TestHistoryStagesAreReadOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Options{Remote: &fakeStore{}})
	if err := s.OpenHistory(ctx); err != nil {
		t.Fatalf("open history: %v", err)
	}
	if err := s.UpdateMission(MissionUpdateOptions{ClientName: strPtr("X")}); !errors.Is(err, ErrReadOnlyStage) {
		t.Fatalf("mission edit in history, got %v", err)
	}
	if err := s.AdjustItem("desk", inventory.BucketMove, 1); !errors.Is(err, ErrReadOnlyStage) {
		t.Fatalf("ledger edit in history, got %v", err)
	}
	if err := s.ClearFix(); !errors.Is(err, ErrReadOnlyStage) {
		t.Fatalf("gps edit in history, got %v", err)
	}
}

func toSummary(t *testing.T, s *Session) {
	t.Helper()
	ctx := context.Background()
	setClient(t, s, "Acme")
	if err := s.Advance(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := s.AdjustItem("desk", inventory.BucketMove, 1); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if err := s.Advance(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}
}

func TestSubmitSuccessResets(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	jw := &fakeJournal{}
	s := newTestSession(t, Options{Remote: store, Journal: jw})
	toSummary(t, s)

	if err := s.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(store.submitted) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(store.submitted))
	}
	if s.Stage != StageSetup || s.Mission.ClientName != "" || !s.Ledger.Empty() {
		t.Fatalf("submit must reset the survey: stage=%s mission=%+v", s.Stage, s.Mission)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(store.submitted[0], &payload); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	for _, key := range []string{"clientName", "inventory", "stats", "date"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("payload missing %q: %s", key, store.submitted[0])
		}
	}

	found := false
	for _, typ := range jw.types {
		if typ == "survey.submitted" {
			found = true
		}
	}
	if !found {
		t.Fatalf("submission not journaled: %v", jw.types)
	}
}

func TestSubmitFailureStagesBackup(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{submitErr: fmt.Errorf("network down")}
	backup := &fakeBackup{}
	s := newTestSession(t, Options{Remote: store, Backups: backup})
	toSummary(t, s)

	err := s.Submit(ctx)
	if !errors.Is(err, ErrSubmissionFailed) {
		t.Fatalf("expected ErrSubmissionFailed, got %v", err)
	}
	if len(backup.saved) != 1 {
		t.Fatalf("failed submission must be staged, got %d backups", len(backup.saved))
	}
	// Nothing is lost: the survey stays on summary, fully intact.
	if s.Stage != StageSummary || s.Mission.ClientName != "Acme" || s.Ledger.Empty() {
		t.Fatalf("failed submit must leave the survey intact: stage=%s", s.Stage)
	}
}

func TestSubmitWrongStage(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Options{Remote: &fakeStore{}})
	if err := s.Submit(ctx); !errors.Is(err, ErrBadTransition) {
		t.Fatalf("submit from setup must fail, got %v", err)
	}
}

func TestRecordingLifecycle(t *testing.T) {
	ctx := context.Background()
	rec := fakeRecorder{rec: fakeRecording{data: "data:audio/webm;base64,AAAA"}}
	s := newTestSession(t, Options{Recorder: rec})

	if err := s.StopRecording(ctx); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("stop without start, got %v", err)
	}
	if err := s.StartRecording(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.IsRecording() {
		t.Fatalf("IsRecording should be true")
	}
	if err := s.StartRecording(ctx); !errors.Is(err, ErrRecordingActive) {
		t.Fatalf("second start, got %v", err)
	}
	if err := s.StopRecording(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if len(s.Mission.VoiceNotes) != 1 {
		t.Fatalf("expected 1 voice note, got %d", len(s.Mission.VoiceNotes))
	}
	n := s.Mission.VoiceNotes[0]
	if n.ID == "" || n.Data != "data:audio/webm;base64,AAAA" {
		t.Fatalf("unexpected note %+v", n)
	}
}

func TestRecordingStageGate(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Options{Recorder: fakeRecorder{}})
	setClient(t, s, "Acme")
	if err := s.Advance(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := s.StartRecording(ctx); !errors.Is(err, ErrBadTransition) {
		t.Fatalf("recording on inventory must fail, got %v", err)
	}
}

func TestStopRecordingFailureReleasesDevice(t *testing.T) {
	ctx := context.Background()
	rec := fakeRecorder{rec: fakeRecording{err: fmt.Errorf("mic gone")}}
	s := newTestSession(t, Options{Recorder: rec})

	if err := s.StartRecording(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.StopRecording(ctx); !errors.Is(err, ErrAudioCapture) {
		t.Fatalf("expected ErrAudioCapture, got %v", err)
	}
	if s.IsRecording() {
		t.Fatalf("failed stop must still release the recording")
	}
	if len(s.Mission.VoiceNotes) != 0 {
		t.Fatalf("failed capture must not attach a note")
	}
}

func TestVoiceNoteAttachAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Options{})
	if err := s.AttachVoiceNote(ctx, ""); err == nil {
		t.Fatalf("empty payload accepted")
	}
	if err := s.AttachVoiceNote(ctx, "data:audio/webm;base64,BBBB"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	id := s.Mission.VoiceNotes[0].ID
	if err := s.DeleteVoiceNote(ctx, "nope"); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("unknown note id, got %v", err)
	}
	if err := s.DeleteVoiceNote(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(s.Mission.VoiceNotes) != 0 {
		t.Fatalf("note not removed")
	}
}

func TestAcquireFix(t *testing.T) {
	ctx := context.Background()
	fix := domain.GPSFix{Lat: 48.85, Lng: 2.35, Accuracy: 12}
	s := newTestSession(t, Options{Locator: fakeLocator{fix: fix}})
	if err := s.AcquireFix(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if s.Mission.GPS == nil || s.Mission.GPS.Lat != 48.85 {
		t.Fatalf("fix not recorded: %v", s.Mission.GPS)
	}
	if err := s.ClearFix(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if s.Mission.GPS != nil {
		t.Fatalf("fix not cleared")
	}
}

func TestAcquireFixErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Options{})
	if err := s.AcquireFix(ctx); !errors.Is(err, ErrGPSUnsupported) {
		t.Fatalf("no locator, got %v", err)
	}

	s = newTestSession(t, Options{Locator: fakeLocator{err: ErrGPSPermissionDenied}})
	if err := s.AcquireFix(ctx); !errors.Is(err, ErrGPSPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if s.Mission.GPS != nil {
		t.Fatalf("failed acquisition must not record a fix")
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Options{})
	setClient(t, s, "Acme")
	if err := s.Advance(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}
	s.Ledger.Adjust("desk", inventory.BucketMove, 1)

	snap := s.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Snapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	restored := newTestSession(t, Options{})
	restored.Restore(decoded)
	if restored.ID != s.ID {
		t.Fatalf("id not restored")
	}
	if restored.Stage != StageInventory {
		t.Fatalf("stage not restored, got %s", restored.Stage)
	}
	if restored.Mission.ClientName != "Acme" || restored.Ledger["desk"].ToMove != 1 {
		t.Fatalf("state not restored: %+v %v", restored.Mission, restored.Ledger)
	}
}

func TestSnapshotCollapsesHistoryStages(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, Options{Remote: &fakeStore{}})
	if err := s.OpenHistory(ctx); err != nil {
		t.Fatalf("open history: %v", err)
	}
	if snap := s.Snapshot(); snap.Stage != StageSetup {
		t.Fatalf("history detour must not be persisted, got %s", snap.Stage)
	}
}

func TestRestoreDefensiveDefaults(t *testing.T) {
	s := newTestSession(t, Options{})
	s.Restore(Snapshot{Stage: Stage("weird")})
	if s.Stage != StageSetup {
		t.Fatalf("unknown stage must collapse to setup, got %s", s.Stage)
	}
	if s.Mission.Floor != "0" || s.Mission.ParkingBand != domain.ParkingNear {
		t.Fatalf("missing mission fields must get defaults: %+v", s.Mission)
	}
	if s.Ledger == nil || s.Mission.VoiceNotes == nil {
		t.Fatalf("nil collections must be replaced")
	}
}
