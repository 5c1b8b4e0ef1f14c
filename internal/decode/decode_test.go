package decode

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// TestHelperProcess stands in for ffmpeg when commandContext is stubbed.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("EXAMSIGHT_HELPER_MODE") {
	case "frames":
		// Two complete 4x2 RGB24 frames.
		frame := make([]byte, 4*2*3)
		for i := range frame {
			frame[i] = byte(i)
		}
		os.Stdout.Write(frame)
		os.Stdout.Write(frame)
	case "pcm":
		// 50 bytes: two full 20-byte windows plus a remainder.
		data := make([]byte, 50)
		for i := range data {
			data[i] = byte(i)
		}
		os.Stdout.Write(data)
	case "silent":
	}
	os.Exit(0)
}

func stubCommand(t *testing.T, mode string) *[]string {
	t.Helper()
	var captured []string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured = append([]string(nil), args...)
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(),
			"GO_WANT_HELPER_PROCESS=1",
			"EXAMSIGHT_HELPER_MODE="+mode,
		)
		return cmd
	}
	t.Cleanup(func() { commandContext = original })
	return &captured
}

func TestOpenVideoRequiresURL(t *testing.T) {
	if _, err := OpenVideo(context.Background(), VideoOptions{}); err == nil {
		t.Fatal("expected error for missing url")
	}
}

func TestVideoPipeReadsFrames(t *testing.T) {
	captured := stubCommand(t, "frames")

	pipe, err := OpenVideo(context.Background(), VideoOptions{
		URL:    "rtmp://example/exam1",
		Width:  4,
		Height: 2,
	})
	if err != nil {
		t.Fatalf("OpenVideo: %v", err)
	}
	defer pipe.Close(time.Second)

	for i := 0; i < 2; i++ {
		frame, err := pipe.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame %d: %v", i, err)
		}
		if err := frame.Validate(); err != nil {
			t.Fatalf("frame %d invalid: %v", i, err)
		}
		if frame.Pix[1] != 1 {
			t.Fatalf("frame %d pixel data not preserved", i)
		}
		if frame.CapturedAt.IsZero() {
			t.Fatalf("frame %d missing capture time", i)
		}
	}

	// The helper wrote exactly two frames; the third read must fail.
	if _, err := pipe.ReadFrame(); err == nil {
		t.Fatal("expected error after pipe drained")
	}

	joined := strings.Join(*captured, " ")
	for _, want := range []string{"scale=4:2", "rgb24", "rawvideo", "rtmp://example/exam1", "-an"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("ffmpeg args %q missing %q", joined, want)
		}
	}
}

func TestAudioPipeSlicesWindows(t *testing.T) {
	captured := stubCommand(t, "pcm")

	pipe, err := OpenAudio(context.Background(), AudioOptions{
		URL:           "rtmp://example/exam1",
		SampleRate:    100,
		WindowSeconds: 0.1, // 20-byte windows
		ReadSize:      8,
	})
	if err != nil {
		t.Fatalf("OpenAudio: %v", err)
	}
	defer pipe.Close(time.Second)

	first, err := pipe.ReadWindow()
	if err != nil {
		t.Fatalf("first window: %v", err)
	}
	if len(first.Data) != 20 {
		t.Fatalf("window size = %d, want 20", len(first.Data))
	}
	if first.Data[0] != 0 || first.Data[19] != 19 {
		t.Fatal("first window carries wrong bytes")
	}

	second, err := pipe.ReadWindow()
	if err != nil {
		t.Fatalf("second window: %v", err)
	}
	if second.Data[0] != 20 {
		t.Fatalf("second window starts at byte %d, want 20", second.Data[0])
	}

	// Only 10 bytes remain; the third window cannot complete.
	if _, err := pipe.ReadWindow(); err == nil {
		t.Fatal("expected error for incomplete final window")
	}

	joined := strings.Join(*captured, " ")
	for _, want := range []string{"-vn", "s16le", "-ar 100", "-ac 1"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("ffmpeg args %q missing %q", joined, want)
		}
	}
}

func TestVideoPipeCloseReapsProcess(t *testing.T) {
	stubCommand(t, "silent")

	pipe, err := OpenVideo(context.Background(), VideoOptions{URL: "rtmp://example/exam1"})
	if err != nil {
		t.Fatalf("OpenVideo: %v", err)
	}
	if err := pipe.Close(2 * time.Second); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
