package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"strings"
)

var ErrSourceUnavailable = errors.New("video source unreachable")

// FrameSource yields JPEG-encoded frames until exhaustion (io.EOF). Close
// must be safe to call on every exit path.
type FrameSource interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// OpenSource picks an implementation from the source spec: http(s) URLs are
// read as MJPEG camera streams, anything else as a local video file piped
// through ffmpeg.
func OpenSource(ctx context.Context, spec string) (FrameSource, error) {
	if strings.HasPrefix(spec, "http://") || strings.HasPrefix(spec, "https://") {
		return openMJPEGStream(ctx, spec)
	}
	return openVideoFile(ctx, spec)
}

type mjpegSource struct {
	resp   *http.Response
	reader *multipart.Reader
}

func openMJPEGStream(ctx context.Context, url string) (*mjpegSource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %s", ErrSourceUnavailable, resp.Status)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: not an mjpeg stream (%s)",
			ErrSourceUnavailable, resp.Header.Get("Content-Type"))
	}

	return &mjpegSource{
		resp:   resp,
		reader: multipart.NewReader(resp.Body, params["boundary"]),
	}, nil
}

func (s *mjpegSource) Next(ctx context.Context) ([]byte, error) {
	// the request is bound to ctx; cancellation unblocks the body read
	part, err := s.reader.NextPart()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("mjpeg stream: %w", err)
	}
	defer part.Close()
	return io.ReadAll(part)
}

func (s *mjpegSource) Close() error {
	return s.resp.Body.Close()
}

type ffmpegSource struct {
	cmd     *exec.Cmd
	scanner *jpegScanner
}

// openVideoFile plays a local video file through ffmpeg, re-encoded to an
// MJPEG pipe at native speed.
func openVideoFile(ctx context.Context, path string) (*ffmpegSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found in PATH", ErrSourceUnavailable)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-re",
		"-i", path,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "5",
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	return &ffmpegSource{
		cmd:     cmd,
		scanner: newJPEGScanner(stdout),
	}, nil
}

func (s *ffmpegSource) Next(ctx context.Context) ([]byte, error) {
	frame, err := s.scanner.next()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("ffmpeg pipe: %w", err)
	}
	return frame, nil
}

func (s *ffmpegSource) Close() error {
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	return nil
}

// jpegScanner splits a concatenated MJPEG byte stream into frames by the
// JPEG start (FFD8) and end (FFD9) markers.
type jpegScanner struct {
	r *bufio.Reader
}

func newJPEGScanner(r io.Reader) *jpegScanner {
	return &jpegScanner{r: bufio.NewReaderSize(r, 1<<20)}
}

func (s *jpegScanner) next() ([]byte, error) {
	// seek start-of-image
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != 0xFF {
			continue
		}
		b, err = s.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == 0xD8 {
			break
		}
	}

	frame := []byte{0xFF, 0xD8}
	prev := byte(0)
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}
		frame = append(frame, b)
		if prev == 0xFF && b == 0xD9 {
			return frame, nil
		}
		prev = b
	}
}
