// SPDX-License-Identifier: MIT
package pipeline

import (
	"errors"
	"testing"

	"openhush/internal/ringbuffer"
	"openhush/internal/signaltest"
)

func TestDictation_Session(t *testing.T) {
	rb := ringbuffer.New(1000)
	d := NewDictation(rb, nil)

	if _, err := d.Flush(); !errors.Is(err, ErrNotActive) {
		t.Errorf("Flush before Begin = %v, want ErrNotActive", err)
	}
	if _, err := d.End(); !errors.Is(err, ErrNotActive) {
		t.Errorf("End before Begin = %v, want ErrNotActive", err)
	}

	// Prebuffered audio is not part of the session.
	rb.PushSamples(signaltest.Constant(100, 1))

	id, err := d.Begin()
	if err != nil {
		t.Fatalf("Begin error: %v", err)
	}
	if !d.Active() {
		t.Fatal("Active() = false after Begin")
	}
	if _, err := d.Begin(); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("second Begin = %v, want ErrAlreadyActive", err)
	}

	rb.PushSamples(signaltest.Constant(300, 0.5))
	first, err := d.Flush()
	if err != nil {
		t.Fatalf("Flush error: %v", err)
	}
	if first.Chunk != 1 || first.Start != 100 || first.End != 400 || len(first.Samples) != 300 {
		t.Errorf("first chunk = {Chunk:%d Start:%d End:%d len:%d}", first.Chunk, first.Start, first.End, len(first.Samples))
	}
	if first.Session != id || first.Final {
		t.Errorf("first chunk session/final = %v/%v", first.Session, first.Final)
	}

	rb.PushSamples(signaltest.Constant(200, 0.25))
	second, err := d.Flush()
	if err != nil {
		t.Fatalf("Flush error: %v", err)
	}
	if second.Chunk != 2 || second.Start != 400 || len(second.Samples) != 200 {
		t.Errorf("second chunk = {Chunk:%d Start:%d len:%d}", second.Chunk, second.Start, len(second.Samples))
	}
	if second.Samples[0] != 0.25 {
		t.Errorf("second chunk starts with %v, want 0.25", second.Samples[0])
	}

	empty, err := d.Flush()
	if err != nil || len(empty.Samples) != 0 {
		t.Errorf("Flush with nothing new = %d samples, %v", len(empty.Samples), err)
	}

	final, err := d.End()
	if err != nil {
		t.Fatalf("End error: %v", err)
	}
	if !final.Final || final.Chunk != 0 || final.Start != 100 || len(final.Samples) != 500 || final.Lost != 0 {
		t.Errorf("final = {Final:%v Chunk:%d Start:%d len:%d Lost:%d}",
			final.Final, final.Chunk, final.Start, len(final.Samples), final.Lost)
	}
	if final.Samples[0] != 0.5 {
		t.Errorf("final starts with %v, want 0.5", final.Samples[0])
	}
	if d.Active() {
		t.Error("Active() = true after End")
	}

	next, err := d.Begin()
	if err != nil {
		t.Fatalf("Begin after End error: %v", err)
	}
	if next == id {
		t.Error("new session reused the previous ID")
	}
}

func TestDictation_BufferWrapped(t *testing.T) {
	rb := ringbuffer.New(100)
	d := NewDictation(rb, nil)

	if _, err := d.Begin(); err != nil {
		t.Fatal(err)
	}
	for range 5 {
		rb.PushSamples(signaltest.Constant(50, 0.1))
	}

	clip, err := d.End()
	if err != nil {
		t.Fatalf("End error: %v", err)
	}
	if clip.Start != 150 || clip.End != 250 {
		t.Errorf("range = [%d, %d), want [150, 250)", clip.Start, clip.End)
	}
	if clip.Lost != 150 {
		t.Errorf("Lost = %d, want 150", clip.Lost)
	}
	if len(clip.Samples) != 100 {
		t.Errorf("len = %d, want 100", len(clip.Samples))
	}
}

func TestDictation_FlushAfterWrap(t *testing.T) {
	rb := ringbuffer.New(100)
	d := NewDictation(rb, nil)
	if _, err := d.Begin(); err != nil {
		t.Fatal(err)
	}

	rb.PushSamples(signaltest.Constant(30, 0.1))
	if _, err := d.Flush(); err != nil {
		t.Fatal(err)
	}
	rb.PushSamples(signaltest.Constant(130, 0.2))

	clip, err := d.Flush()
	if err != nil {
		t.Fatalf("Flush error: %v", err)
	}
	if clip.Start != 60 || clip.Lost != 30 || len(clip.Samples) != 100 {
		t.Errorf("clip = {Start:%d Lost:%d len:%d}, want {60 30 100}", clip.Start, clip.Lost, len(clip.Samples))
	}

	rb.PushSamples(signaltest.Constant(10, 0.3))
	next, err := d.Flush()
	if err != nil {
		t.Fatal(err)
	}
	if next.Start != 160 || len(next.Samples) != 10 {
		t.Errorf("next = {Start:%d len:%d}, want {160 10}", next.Start, len(next.Samples))
	}
}
