package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jpegFrame(payload ...byte) []byte {
	frame := []byte{0xFF, 0xD8}
	frame = append(frame, payload...)
	return append(frame, 0xFF, 0xD9)
}

func TestJPEGScannerSplitsFrames(t *testing.T) {
	f1 := jpegFrame(0x01, 0x02, 0x03)
	f2 := jpegFrame(0x04)

	var stream bytes.Buffer
	stream.Write(f1)
	stream.Write([]byte{0x00, 0x00}) // inter-frame junk is skipped
	stream.Write(f2)

	s := newJPEGScanner(&stream)

	got, err := s.next()
	require.NoError(t, err)
	assert.Equal(t, f1, got)

	got, err = s.next()
	require.NoError(t, err)
	assert.Equal(t, f2, got)

	_, err = s.next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestJPEGScannerTruncatedFrame(t *testing.T) {
	s := newJPEGScanner(bytes.NewReader([]byte{0xFF, 0xD8, 0x01, 0x02}))
	_, err := s.next()
	assert.Error(t, err)
}

func TestOpenMJPEGStream(t *testing.T) {
	f1 := jpegFrame(0xAA)
	f2 := jpegFrame(0xBB)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw := multipart.NewWriter(w)
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
		for _, f := range [][]byte{f1, f2} {
			part, err := mw.CreatePart(textproto.MIMEHeader{
				"Content-Type":   {"image/jpeg"},
				"Content-Length": {fmt.Sprint(len(f))},
			})
			if err != nil {
				return
			}
			part.Write(f)
		}
		mw.Close()
	}))
	defer srv.Close()

	src, err := OpenSource(context.Background(), srv.URL)
	require.NoError(t, err)
	defer src.Close()

	got, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f1, got)

	got, err = src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f2, got)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenMJPEGStreamRejectsNonMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	_, err := OpenSource(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestOpenVideoFileMissing(t *testing.T) {
	_, err := OpenSource(context.Background(), "/nonexistent/clip.mp4")
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}
