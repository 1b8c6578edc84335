package audit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEvent_New(t *testing.T) {
	event := NewEvent("aruba", "mm.example.ca", OpCPSECAdd)

	if event.App != "aruba" {
		t.Errorf("App = %q, want %q", event.App, "aruba")
	}
	if event.Host != "mm.example.ca" {
		t.Errorf("Host = %q, want %q", event.Host, "mm.example.ca")
	}
	if event.Operation != OpCPSECAdd {
		t.Errorf("Operation = %q, want %q", event.Operation, OpCPSECAdd)
	}
	if len(event.ID) != 36 {
		t.Errorf("ID should be a uuid, got %q", event.ID)
	}
	if event.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if other := NewEvent("aruba", "mm", OpCPSECAdd); other.ID == event.ID {
		t.Error("event IDs should be unique")
	}
}

func TestEvent_Chaining(t *testing.T) {
	event := NewEvent("aruba", "mm", OpCPSECAdd).
		WithUser("alice").
		WithTarget("aa:bb:cc:dd:ee:ff").
		WithDetail("ap_group", "-CC Lab").
		WithSuccess().
		WithDuration(time.Second).
		WithDryRun(true)

	if event.User != "alice" {
		t.Errorf("User = %q", event.User)
	}
	if event.Target != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("Target = %q", event.Target)
	}
	if event.Details["ap_group"] != "-CC Lab" {
		t.Errorf("Details = %v", event.Details)
	}
	if !event.Success {
		t.Error("Success should be true")
	}
	if event.Duration != time.Second {
		t.Errorf("Duration = %v", event.Duration)
	}
	if !event.DryRun {
		t.Error("DryRun should be true")
	}
}

func TestEvent_WithError(t *testing.T) {
	event := NewEvent("aruba", "mm", OpCPSECAdd).WithError(errors.New("test error"))

	if event.Success {
		t.Error("Success should be false")
	}
	if event.Error != "test error" {
		t.Errorf("Error = %q", event.Error)
	}

	event2 := NewEvent("aruba", "mm", OpCPSECAdd).WithError(nil)
	if event2.Success {
		t.Error("Success should be false even with nil error")
	}
	if event2.Error != "" {
		t.Errorf("Error should be empty with nil error, got %q", event2.Error)
	}
}

func TestEvent_Finish(t *testing.T) {
	start := time.Now().Add(-time.Millisecond)

	ok := NewEvent("aruba", "mm", OpWriteMemory).Finish(start, nil)
	if !ok.Success || ok.Duration <= 0 {
		t.Errorf("Finish(nil) = success %v duration %v", ok.Success, ok.Duration)
	}

	failed := NewEvent("aruba", "mm", OpWriteMemory).Finish(start, errors.New("boom"))
	if failed.Success || failed.Error != "boom" {
		t.Errorf("Finish(err) = success %v error %q", failed.Success, failed.Error)
	}
}

func newTestLogger(t *testing.T, rotation RotationConfig) (*FileLogger, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "audit.log")
	logger, err := NewFileLogger(logPath, rotation)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger, logPath
}

func TestFileLogger_Basic(t *testing.T) {
	logger, logPath := newTestLogger(t, RotationConfig{})

	event := NewEvent("aruba", "mm1", OpCPSECAdd).
		WithUser("alice").
		WithTarget("aa:bb:cc:dd:ee:ff").
		WithSuccess()
	if err := logger.Log(event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].User != "alice" || events[0].Host != "mm1" || events[0].ID != event.ID {
		t.Errorf("got %+v", events[0])
	}

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("audit log mode = %o, want 600", info.Mode().Perm())
	}
}

func TestFileLogger_QueryFilters(t *testing.T) {
	logger, _ := newTestLogger(t, RotationConfig{})

	events := []*Event{
		NewEvent("aruba", "mm1", OpCPSECAdd).WithUser("alice").WithTarget("aa:aa:aa:aa:aa:01").WithSuccess(),
		NewEvent("aruba", "mm1", OpWriteMemory).WithUser("bob").WithSuccess(),
		NewEvent("librenms", "nms", OpDeviceAdd).WithUser("alice").WithError(errors.New("failed")),
		NewEvent("snipeit", "assets", OpAssetCreate).WithUser("charlie").WithTarget("UTSC-0001").WithSuccess(),
	}
	for _, e := range events {
		if err := logger.Log(e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"by user", Filter{User: "alice"}, 2},
		{"by app", Filter{App: "aruba"}, 2},
		{"by host", Filter{Host: "mm1"}, 2},
		{"by operation", Filter{Operation: OpAssetCreate}, 1},
		{"by target", Filter{Target: "aa:aa:aa:aa:aa:01"}, 1},
		{"success only", Filter{SuccessOnly: true}, 3},
		{"failure only", Filter{FailureOnly: true}, 1},
		{"limit", Filter{Limit: 2}, 2},
		{"offset", Filter{Offset: 2}, 2},
		{"offset beyond events", Filter{Offset: 10}, 0},
		{"time range", Filter{StartTime: time.Now().Add(-time.Hour), EndTime: time.Now().Add(time.Hour)}, 4},
		{"start in future", Filter{StartTime: time.Now().Add(time.Hour)}, 0},
		{"end in past", Filter{EndTime: time.Now().Add(-time.Hour)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := logger.Query(tt.filter)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(results) != tt.want {
				t.Errorf("got %d events, want %d", len(results), tt.want)
			}
		})
	}
}

func TestFileLogger_CreatesDirectories(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nonexistent", "audit.log")
	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger should create directories: %v", err)
	}
	defer logger.Close()

	results, err := logger.Query(Filter{})
	if err != nil {
		t.Errorf("Query on empty log should not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 events, got %d", len(results))
	}
}

func TestDefaultLogger(t *testing.T) {
	SetDefaultLogger(nil)

	if err := Log(NewEvent("aruba", "mm", "test")); err != nil {
		t.Errorf("Log with nil default should not error: %v", err)
	}
	results, err := Query(Filter{})
	if err != nil {
		t.Errorf("Query with nil default should not error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 results, got %d", len(results))
	}

	logger, _ := newTestLogger(t, RotationConfig{})
	SetDefaultLogger(logger)
	defer SetDefaultLogger(nil)

	Emit(nil, NewEvent("aruba", "mm", OpBlacklistAdd).WithSuccess())

	results, err = Query(Filter{})
	if err != nil {
		t.Errorf("Query failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Expected 1 result, got %d", len(results))
	}
}

type memLogger struct {
	events []*Event
	err    error
	closed bool
}

func (m *memLogger) Log(e *Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memLogger) Query(f Filter) ([]*Event, error) {
	var out []*Event
	for _, e := range m.events {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return f.page(out), nil
}

func (m *memLogger) Close() error {
	m.closed = true
	return nil
}

func TestMultiLogger(t *testing.T) {
	a, b := &memLogger{}, &memLogger{err: errors.New("redis down")}
	m := NewMultiLogger(a, nil, b)

	err := m.Log(NewEvent("aruba", "mm", OpCPSECDelete))
	if err == nil {
		t.Error("Log should report the failing backend")
	}
	if len(a.events) != 1 {
		t.Errorf("healthy backend should still receive the event, got %d", len(a.events))
	}

	results, _ := m.Query(Filter{})
	if len(results) != 1 {
		t.Errorf("Query should read the first backend, got %d", len(results))
	}

	if err := m.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("Close should close every backend")
	}
}

func TestFileLogger_LogRotation(t *testing.T) {
	logger, logPath := newTestLogger(t, RotationConfig{
		MaxSize:    100, // 100 bytes - will trigger on second log
		MaxBackups: 2,
	})

	for i := 0; i < 5; i++ {
		event := NewEvent("aruba", "mm1", OpCPSECAdd).WithTarget("aa:bb:cc:dd:ee:ff").WithSuccess()
		if err := logger.Log(event); err != nil {
			t.Fatalf("Log failed on iteration %d: %v", i, err)
		}
	}

	matches, err := filepath.Glob(logPath + ".*")
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(matches) == 0 {
		t.Error("Expected rotation to create backup files")
	}
	if len(matches) > 2 {
		t.Errorf("Expected at most 2 backup files, got %d", len(matches))
	}
}

func TestFileLogger_NewFileLoggerErrors(t *testing.T) {
	if _, err := NewFileLogger("/dev/null/impossible/audit.log", RotationConfig{}); err == nil {
		t.Error("NewFileLogger should fail when directory creation fails")
	}

	logPath := filepath.Join(t.TempDir(), "audit.log")
	if err := os.Mkdir(logPath, 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if _, err := NewFileLogger(logPath, RotationConfig{}); err == nil {
		t.Error("NewFileLogger should fail when log path is a directory")
	}
}

func TestFileLogger_QueryMalformedJSON(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")
	content := `{"user":"alice","host":"mm1","operation":"cpsec.add","success":true}
invalid json line
{"user":"bob","host":"mm2","operation":"cpsec.add","success":true}
`
	if err := os.WriteFile(logPath, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write test data: %v", err)
	}

	logger, err := NewFileLogger(logPath, RotationConfig{})
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	results, err := logger.Query(Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 valid events (skipping malformed), got %d", len(results))
	}
}

func TestFileLogger_CloseNilFile(t *testing.T) {
	logger := &FileLogger{path: "/tmp/test.log"}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() with nil file should not error: %v", err)
	}
}

func TestSettings_LogPath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/state")

	if got := (Settings{}).LogPath(); got != "/state/uoft-tools/audit.log" {
		t.Errorf("default LogPath() = %q", got)
	}
	if got := (Settings{AuditLog: Off}).LogPath(); got != "" {
		t.Errorf("LogPath() with off = %q, want empty", got)
	}
	if got := (Settings{AuditLog: "/var/log/x.log"}).LogPath(); got != "/var/log/x.log" {
		t.Errorf("LogPath() = %q", got)
	}
}

func TestSettings_Open(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l, err := Settings{AuditLog: path}.Open(t.Context())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer l.Close()
	if _, ok := l.(*FileLogger); !ok {
		t.Errorf("Open() = %T, want *FileLogger", l)
	}

	l2, err := Settings{AuditLog: Off}.Open(t.Context())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := l2.Log(NewEvent("aruba", "mm", "test")); err != nil {
		t.Errorf("disabled logger should accept events: %v", err)
	}
}

func TestMemoryLogger(t *testing.T) {
	m := NewMemoryLogger()
	m.Log(NewEvent("aruba", "mm1", OpCPSECAdd).WithSuccess())
	m.Log(NewEvent("aruba", "mm1", OpCPSECApprove).WithError(errors.New("denied")))
	m.Log(NewEvent("snipeit", "assets", OpAssetCreate).WithSuccess())

	if got := len(m.Events()); got != 3 {
		t.Fatalf("Events() = %d, want 3", got)
	}
	results, _ := m.Query(Filter{App: "aruba", SuccessOnly: true})
	if len(results) != 1 || results[0].Operation != OpCPSECAdd {
		t.Errorf("Query = %v, want the cpsec.add event", results)
	}
	results, _ = m.Query(Filter{Offset: 1, Limit: 1})
	if len(results) != 1 || results[0].Operation != OpCPSECApprove {
		t.Errorf("paged Query = %v, want the cpsec.approve event", results)
	}
}
