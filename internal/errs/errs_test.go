package errs

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

var errRoot = errors.New("root cause")

func TestWrapKeepsChain(t *testing.T) {
	t.Parallel()

	err := Wrapf(Wrap(errRoot, "load ticket"), "process event %d", 7)
	if !errors.Is(err, errRoot) {
		t.Fatalf("errors.Is(%v, errRoot) = false", err)
	}
	if got, want := err.Error(), "process event 7: load ticket: root cause"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if Wrap(nil, "x") != nil || Wrapf(nil, "x %d", 1) != nil {
		t.Fatal("wrapping nil must return nil")
	}
}

func TestTransient(t *testing.T) {
	t.Parallel()

	err := Wrap(Transient(errRoot), "persist")
	if !IsTransient(err) {
		t.Fatal("IsTransient() = false, want true")
	}
	if !errors.Is(err, errRoot) {
		t.Fatal("transient error lost its cause")
	}
	if IsTransient(errRoot) {
		t.Fatal("IsTransient(errRoot) = true, want false")
	}

	once := Transient(errRoot)
	if Transient(once) != once {
		t.Fatal("Transient() wrapped an already transient error")
	}
}

func TestLoggableEncodesChain(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logger.Error("failed", slog.Any("err", Loggable(Wrap(Transient(errRoot), "persist"))))

	var record struct {
		Err struct {
			Message   string   `json:"message"`
			Chain     []string `json:"chain"`
			Transient bool     `json:"transient"`
		} `json:"err"`
	}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	if record.Err.Message != "persist: transient: root cause" {
		t.Fatalf("message = %q", record.Err.Message)
	}
	if len(record.Err.Chain) != 3 || record.Err.Chain[2] != "root cause" {
		t.Fatalf("chain = %v", record.Err.Chain)
	}
	if !record.Err.Transient {
		t.Fatal("transient flag missing")
	}
}
