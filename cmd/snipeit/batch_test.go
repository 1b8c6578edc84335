package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/uoft-netops/uoft-tools/pkg/audit"
	"github.com/uoft-netops/uoft-tools/pkg/cli"
	"github.com/uoft-netops/uoft-tools/pkg/settings"
	"github.com/uoft-netops/uoft-tools/pkg/snipeit"
)

// script answers prompts from a fixed list; running out is EOF.
type script struct {
	answers []string
	choice  string
	chosen  int
}

func (s *script) Prompt(f settings.Field) (string, error) {
	if len(s.answers) == 0 {
		return "", io.EOF
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

func (s *script) Choose(label string, choices []string) (string, error) {
	s.chosen++
	if s.choice == "" {
		return "", settings.ErrSkipped
	}
	return s.choice, nil
}

type snipeStub struct {
	mu    sync.Mutex
	paths []string
	next  int
}

func (s *snipeStub) handler() http.Handler {
	send := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/locations", func(w http.ResponseWriter, r *http.Request) {
		s.log(r)
		send(w, map[string]any{"total": 2, "rows": []map[string]any{{"id": 7, "name": "SW"}, {"id": 9, "name": "BA"}}})
	})
	mux.HandleFunc("POST /api/v1/hardware", func(w http.ResponseWriter, r *http.Request) {
		s.log(r)
		s.mu.Lock()
		s.next++
		id := 100 + s.next
		s.mu.Unlock()
		send(w, map[string]any{"status": "success", "payload": map[string]any{"id": id}})
	})
	mux.HandleFunc("POST /api/v1/hardware/{id}/checkout", func(w http.ResponseWriter, r *http.Request) {
		s.log(r)
		send(w, map[string]any{"status": "success", "payload": map[string]any{}})
	})
	mux.HandleFunc("PUT /api/v1/hardware/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.log(r)
		send(w, map[string]any{"status": "success", "payload": map[string]any{}})
	})
	return mux
}

func (s *snipeStub) log(r *http.Request) {
	s.mu.Lock()
	s.paths = append(s.paths, r.Method+" "+r.URL.Path)
	s.mu.Unlock()
}

func (s *snipeStub) count(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.paths {
		if p == prefix {
			n++
		}
	}
	return n
}

func newBatch(t *testing.T, ask asker, execute bool, location int) (*batch, *snipeStub, *bytes.Buffer, *audit.MemoryLogger) {
	t.Helper()
	cli.SetColor(false)
	stub := &snipeStub{}
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	var out bytes.Buffer
	mem := audit.NewMemoryLogger()
	b := &batch{
		client:   snipeit.NewClient(srv.URL, "t", snipeit.WithAuditLogger(mem)),
		ask:      ask,
		out:      &out,
		audit:    mem,
		model:    3,
		location: location,
		execute:  execute,
	}
	return b, stub, &out, mem
}

func TestBatch_ProvisionsUntilQuit(t *testing.T) {
	ask := &script{answers: []string{"001122334455", "SER1", "bogus", "00:11:22:33:44:66", "SER2", "q"}, choice: "SW"}
	b, stub, out, _ := newBatch(t, ask, true, 0)

	done, err := b.run(context.Background(), []string{"sw-ap1", "sw-ap2", "sw-ap3"})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	want := []string{"00:11:22:33:44:55", "00:11:22:33:44:66"}
	if strings.Join(done, ",") != strings.Join(want, ",") {
		t.Errorf("done = %v, want %v", done, want)
	}
	if ask.chosen != 1 {
		t.Errorf("location chosen %d times, want once", ask.chosen)
	}
	if n := stub.count("POST /api/v1/hardware"); n != 2 {
		t.Errorf("created %d assets, want 2", n)
	}
	if n := stub.count("POST /api/v1/hardware/101/checkout") + stub.count("POST /api/v1/hardware/102/checkout"); n != 2 {
		t.Errorf("checked out %d assets, want 2", n)
	}
	got := out.String()
	for _, s := range []string{"Asset 00101 checked out to SW", "Asset 00102 checked out to SW", "invalid MAC address"} {
		if !strings.Contains(got, s) {
			t.Errorf("output missing %q:\n%s", s, got)
		}
	}
}

func TestBatch_DryRunMakesNoChanges(t *testing.T) {
	ask := &script{answers: []string{"00-11-22-33-44-55", "SER1"}}
	b, stub, out, mem := newBatch(t, ask, false, 9)

	done, err := b.run(context.Background(), []string{"ba-ap1"})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if len(done) != 1 {
		t.Errorf("done = %v", done)
	}
	if n := stub.count("POST /api/v1/hardware"); n != 0 {
		t.Errorf("dry run created %d assets", n)
	}
	if ask.chosen != 0 {
		t.Error("location prompted although one was configured")
	}
	if !strings.Contains(out.String(), "Would have created ba-ap1 (00:11:22:33:44:55, SER1) and checked it out to BA") {
		t.Errorf("output = %q", out.String())
	}
	events := mem.Events()
	if len(events) != 1 || !events[0].DryRun || events[0].Operation != audit.OpAssetCreate {
		t.Errorf("events = %+v", events)
	}

	b.summary(done)
	if !strings.Contains(out.String(), "would have been provisioned") {
		t.Errorf("summary = %q", out.String())
	}
}

func TestBatch_Errors(t *testing.T) {
	tests := []struct {
		name     string
		ask      *script
		location int
		wantErr  string
	}{
		{"no location chosen", &script{answers: []string{"001122334455", "S"}}, 0, "no location chosen"},
		{"unknown location", &script{answers: []string{"001122334455", "S"}}, 404, "location 404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, stub, _, _ := newBatch(t, tt.ask, true, tt.location)
			_, err := b.run(context.Background(), []string{"ap"})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("run() error = %v, want %q", err, tt.wantErr)
			}
			if n := stub.count("POST /api/v1/hardware"); n != 0 {
				t.Errorf("created %d assets", n)
			}
		})
	}
}

func TestBatch_EOFQuits(t *testing.T) {
	b, _, _, _ := newBatch(t, &script{}, true, 9)
	done, err := b.run(context.Background(), []string{"ap"})
	if err != nil || len(done) != 0 {
		t.Errorf("run() = %v, %v; want nothing done and no error", done, err)
	}
}
