package currentsense

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseReading(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"512\n", 512, false},
		{"  7 ", 7, false},
		{"i=1023", 1023, false},
		{"", 0, true},
		{"abc", 0, true},
		{"-4", 0, true},
	}
	for _, tt := range tests {
		got, err := parseReading(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseReading(%q) error = %v, wantErr %t", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseReading(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNewNoneReturnsNil(t *testing.T) {
	for _, src := range []string{"", SourceNone} {
		s, err := New(Config{Source: src})
		if err != nil || s != nil {
			t.Errorf("New(%q) = %v, %v; want nil, nil", src, s, err)
		}
	}
}

func TestNewUnknownSource(t *testing.T) {
	if _, err := New(Config{Source: "i2c"}); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestIIOSensor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in_voltage0_raw")
	if err := os.WriteFile(path, []byte("1234\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := New(Config{Source: SourceIIO, Path: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	v, err := s.ReadCurrent()
	if err != nil || v != 1234 {
		t.Fatalf("ReadCurrent() = %d, %v", v, err)
	}

	os.WriteFile(path, []byte("99\n"), 0o644)
	if v, _ := s.ReadCurrent(); v != 99 {
		t.Errorf("second read = %d, want 99", v)
	}
}

func TestIIOSensorMissing(t *testing.T) {
	if _, err := NewIIOSensor(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing attribute")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met")
}

func TestStreamSensorLatestValue(t *testing.T) {
	pr, pw := io.Pipe()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStreamSensor(pr, func() time.Time { return now })

	if _, err := s.ReadCurrent(); !errors.Is(err, ErrNoReading) {
		t.Fatalf("before data: err = %v", err)
	}

	io.WriteString(pw, "100\n200\n")
	waitFor(t, func() bool { v, err := s.ReadCurrent(); return err == nil && v == 200 })

	io.WriteString(pw, "garbage\n\n300\n")
	waitFor(t, func() bool { v, _ := s.ReadCurrent(); return v == 300 })

	pw.Close()
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestStreamSensorStale(t *testing.T) {
	pr, pw := io.Pipe()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	s := NewStreamSensor(pr, func() time.Time { return clock })

	io.WriteString(pw, "42\n")
	waitFor(t, func() bool { v, err := s.ReadCurrent(); return err == nil && v == 42 })

	s.mu.Lock()
	clock = now.Add(StaleAfter + time.Millisecond)
	s.mu.Unlock()
	if _, err := s.ReadCurrent(); !errors.Is(err, ErrNoReading) {
		t.Errorf("stale reading: err = %v", err)
	}

	pw.Close()
	s.Close()
}

func TestFakeSensor(t *testing.T) {
	f := NewFakeSensor(10)
	if v, err := f.ReadCurrent(); v != 10 || err != nil {
		t.Errorf("ReadCurrent() = %d, %v", v, err)
	}
	f.Set(0, errors.New("boom"))
	if _, err := f.ReadCurrent(); err == nil {
		t.Error("expected error")
	}
	if f.Reads() != 2 {
		t.Errorf("Reads() = %d", f.Reads())
	}
}
