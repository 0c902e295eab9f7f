package landmark

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestStreamProviderDecodes(t *testing.T) {
	input := `{"nose":{"x":0.5,"y":0.3,"visibility":0.9},"left_ear":{"x":0.55,"y":0.32,"visibility":0.9},"right_ear":{"x":0.45,"y":0.32,"visibility":0.9},"left_shoulder":{"x":0.62,"y":0.55,"visibility":0.9},"right_shoulder":{"x":0.38,"y":0.55,"visibility":0.9}}
`
	p := NewStreamProvider(strings.NewReader(input))

	snap, err := p.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if snap.Nose.Y != 0.3 {
		t.Errorf("Nose.Y = %f, want 0.3", snap.Nose.Y)
	}
	if snap.Face != nil {
		t.Error("Face set without face landmarks in the input")
	}

	if _, err := p.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Next() after stream end = %v, want io.EOF", err)
	}
}

func TestStreamProviderFaceLandmarks(t *testing.T) {
	input := `{"nose":{"x":0.5,"y":0.3,"visibility":0.9},"face":{"forehead":{"x":0.51},"chin":{"x":0.49},"left_cheek":{"x":0.58},"right_cheek":{"x":0.42}}}
`
	p := NewStreamProvider(strings.NewReader(input))
	snap, err := p.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if snap.Face == nil {
		t.Fatal("Face not decoded")
	}
	if snap.Face.LeftCheek.X != 0.58 {
		t.Errorf("LeftCheek.X = %f, want 0.58", snap.Face.LeftCheek.X)
	}
}

func TestStreamProviderBlankLineIsNoDetection(t *testing.T) {
	p := NewStreamProvider(strings.NewReader("\n"))
	if _, err := p.Next(context.Background()); !errors.Is(err, ErrNoDetection) {
		t.Errorf("Next() on blank line = %v, want ErrNoDetection", err)
	}
}

func TestStreamProviderMalformedLine(t *testing.T) {
	p := NewStreamProvider(strings.NewReader("{nope\n"))
	if _, err := p.Next(context.Background()); err == nil {
		t.Error("Next() accepted malformed JSON")
	}
}

func TestStreamProviderHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewStreamProvider(strings.NewReader("{}\n"))
	if _, err := p.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next() with cancelled context = %v, want context.Canceled", err)
	}
}

func TestQueueProvider(t *testing.T) {
	snap := &Snapshot{Nose: Landmark{Y: 0.3, Visibility: 1}}
	p := &QueueProvider{Snapshots: []*Snapshot{snap, nil}}

	got, err := p.Next(context.Background())
	if err != nil || got != snap {
		t.Fatalf("Next() = (%v, %v), want queued snapshot", got, err)
	}
	if _, err := p.Next(context.Background()); !errors.Is(err, ErrNoDetection) {
		t.Errorf("nil entry = %v, want ErrNoDetection", err)
	}
	if _, err := p.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("exhausted queue = %v, want io.EOF", err)
	}
}

func TestStaticProviderError(t *testing.T) {
	p := &StaticProvider{Err: ErrNoDetection}
	if _, err := p.Next(context.Background()); !errors.Is(err, ErrNoDetection) {
		t.Errorf("Next() = %v, want configured error", err)
	}
}
