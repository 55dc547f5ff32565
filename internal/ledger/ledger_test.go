package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dokzlo13/lumictl/internal/db"
	"github.com/dokzlo13/lumictl/internal/device"
)

func openLedger(t *testing.T) *Ledger {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return New(database.DB)
}

func result(cmd device.Command, ok bool) device.Result {
	resp := device.Response{Kind: device.ResponseOk}
	if !ok {
		resp = device.Response{Kind: device.ResponseError, Message: "timeout"}
	}
	return device.Result{Command: cmd, Response: resp, Duration: 40 * time.Millisecond, Success: ok}
}

func TestLedger_RecordAndRecent(t *testing.T) {
	l := openLedger(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if err := l.record("10.0.0.2:8082", result(device.Home(), true), base); err != nil {
		t.Fatalf("record() error = %v", err)
	}
	if err := l.record("10.0.0.3:8082", result(device.Move(200), false), base.Add(time.Second)); err != nil {
		t.Fatalf("record() error = %v", err)
	}
	if err := l.record("10.0.0.2:8082", result(device.Stop(), true), base.Add(2*time.Second)); err != nil {
		t.Fatalf("record() error = %v", err)
	}

	all, err := l.Recent("", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Recent() returned %d entries, want 3", len(all))
	}
	if string(all[0].Command) != `"Stop"` {
		t.Errorf("newest command = %s, want \"Stop\"", all[0].Command)
	}
	if all[1].Success {
		t.Error("move entry should be recorded as failed")
	}
	if all[0].Duration != 40*time.Millisecond {
		t.Errorf("Duration = %v, want 40ms", all[0].Duration)
	}

	one, err := l.Recent("10.0.0.2:8082", 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(one) != 1 || one[0].Endpoint != "10.0.0.2:8082" || !one[0].Timestamp.Equal(base.Add(2*time.Second)) {
		t.Errorf("Recent(endpoint, 1) = %+v", one)
	}
}

func TestLedger_DeleteOlderThan(t *testing.T) {
	l := openLedger(t)

	if err := l.record("a:1", result(device.Ping(), true), time.Now().Add(-48*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := l.record("a:1", result(device.Ping(), true), time.Now()); err != nil {
		t.Fatal(err)
	}

	n, err := l.DeleteOlderThan(24 * time.Hour)
	if err != nil {
		t.Fatalf("DeleteOlderThan() error = %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d entries, want 1", n)
	}
	left, _ := l.Recent("", 0)
	if len(left) != 1 {
		t.Errorf("%d entries left, want 1", len(left))
	}
}
