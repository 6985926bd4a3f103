// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	spanRecorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
		otel.SetTracerProvider(previous)
	})
	return spanRecorder
}

func spansByName(spans []sdktrace.ReadOnlySpan) map[string][]sdktrace.ReadOnlySpan {
	out := map[string][]sdktrace.ReadOnlySpan{}
	for _, s := range spans {
		out[s.Name()] = append(out[s.Name()], s)
	}
	return out
}

func TestCreateDeviceNestsStepSpans(t *testing.T) {
	spanRecorder := installSpanRecorder(t)
	runner := &recordingRunner{responses: map[string]Result{
		"avdmanager list device": {Stdout: []byte("id: 23\nname: \"pixel_5\"\n")},
	}}
	env, _ := newTestEnv(t, ToolPaths{ToolAvdManager: "avdmanager", ToolSdkManager: "sdkmanager"})
	env.Runner = runner

	if _, err := CreateDevice(env, KindPixel, ""); err != nil {
		t.Fatalf("create device: %v", err)
	}

	byName := spansByName(spanRecorder.Ended())
	if len(byName["avd.CreateDevice"]) != 1 {
		t.Fatalf("expected one avd.CreateDevice span, got %v", byName)
	}
	root := byName["avd.CreateDevice"][0].SpanContext().SpanID()
	for _, child := range []string{"avd.ListDeviceCatalog", "avd.EnsureSystemImage", "avd.CreateAVD"} {
		spans := byName[child]
		if len(spans) != 1 {
			t.Fatalf("expected one %s span, got %d", child, len(spans))
		}
		if spans[0].Parent().SpanID() != root {
			t.Fatalf("%s should be a child of avd.CreateDevice", child)
		}
	}
	for _, s := range byName["avd.run"] {
		if s.Parent().SpanID() == root {
			t.Fatal("command spans should nest under the step that ran them")
		}
	}
}

func TestDumpSystemNestsStepSpans(t *testing.T) {
	spanRecorder := installSpanRecorder(t)
	runner := &recordingRunner{responses: map[string]Result{
		"adb devices": {Stdout: []byte("List of devices attached\nemulator-5554\tdevice\n")},
	}}
	env, _ := newTestEnv(t, ToolPaths{ToolADB: "adb"})
	env.Runner = runner

	if _, err := DumpSystem(env, &scriptedPrompter{answers: []string{"1", "2"}}); err != nil {
		t.Fatalf("dump: %v", err)
	}

	byName := spansByName(spanRecorder.Ended())
	if len(byName["avd.DumpSystem"]) != 1 {
		t.Fatalf("expected one avd.DumpSystem span, got %v", byName)
	}
	root := byName["avd.DumpSystem"][0].SpanContext().SpanID()
	for _, child := range []string{"avd.ListConnected", "avd.DumpSystemTree"} {
		spans := byName[child]
		if len(spans) != 1 || spans[0].Parent().SpanID() != root {
			t.Fatalf("%s should be a single child of avd.DumpSystem", child)
		}
	}
}
