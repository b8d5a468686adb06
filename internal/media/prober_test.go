package media

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFFProbeProberParsesDuration(t *testing.T) {
	var gotBinary string
	var gotArgs []string

	prober := NewFFProbeProber("ffprobe", time.Second)
	prober.Run = func(_ context.Context, binary string, args ...string) ([]byte, error) {
		gotBinary = binary
		gotArgs = args
		return []byte(`{"format":{"duration":"132.48","format_name":"mov,mp4,m4a"}}`), nil
	}

	meta, err := prober.Probe(context.Background(), "/tmp/upload.mp4")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}

	if meta.DurationSeconds != 132 {
		t.Fatalf("expected duration 132, got %d", meta.DurationSeconds)
	}
	if meta.Format != "mov,mp4,m4a" {
		t.Fatalf("expected format name, got %q", meta.Format)
	}

	if gotBinary != "ffprobe" {
		t.Fatalf("expected ffprobe binary, got %q", gotBinary)
	}
	if len(gotArgs) == 0 || gotArgs[len(gotArgs)-1] != "/tmp/upload.mp4" {
		t.Fatalf("expected file path as final argument, got %v", gotArgs)
	}
}

func TestFFProbeProberRejectsMissingDuration(t *testing.T) {
	prober := NewFFProbeProber("", 0)
	prober.Run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte(`{"format":{"format_name":"mp4"}}`), nil
	}

	if _, err := prober.Probe(context.Background(), "clip.mp4"); err == nil {
		t.Fatal("expected error for response without duration")
	}
}

func TestFFProbeProberWrapsCommandFailure(t *testing.T) {
	wantErr := errors.New("binary not found")

	prober := NewFFProbeProber("ffprobe", time.Second)
	prober.Run = func(context.Context, string, ...string) ([]byte, error) {
		return nil, wantErr
	}

	if _, err := prober.Probe(context.Background(), "clip.mp4"); !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped command error, got %v", err)
	}
}
