package services

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"io"
	"sync"
	"time"

	"backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SessionStatus string

const (
	StatusRunning           SessionStatus = "running"
	StatusFinished          SessionStatus = "finished"
	StatusStopped           SessionStatus = "stopped"
	StatusSourceUnreachable SessionStatus = "source unreachable"
	StatusDetectorFailed    SessionStatus = "detector failed"
)

// A flaky frame is skipped with a log line; only a run of failures kills the
// session, treating the model endpoint as down.
const maxConsecutiveDetectFailures = 5

const dispatchTimeout = 30 * time.Second

// Terminal sessions stay visible to status polls for a while, then get
// evicted so the session map does not grow for the life of the process.
const sessionRetention = 10 * time.Minute

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidThreshold = errors.New("confidence threshold must be between 0.1 and 0.9")
)

type AlertSink interface {
	Append(username, alertType string, ts time.Time, imagePath string) (uint, error)
}

type SnapshotWriter interface {
	Save(frame []byte, now time.Time) (string, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, username, message, snapshotPath string)
}

type FrameBroadcaster interface {
	BroadcastFrame(username string, frame []byte, events []string)
	BroadcastAlert(username string, payload any)
	BroadcastStatus(username, sessionID, status string)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type SessionInfo struct {
	ID        string        `json:"id"`
	Username  string        `json:"username"`
	Source    string        `json:"source"`
	Threshold float64       `json:"threshold"`
	Status    SessionStatus `json:"status"`
	StartedAt time.Time     `json:"started_at"`
}

type session struct {
	mu     sync.Mutex
	info   SessionInfo
	cancel context.CancelFunc
	gate   *AlertGate
}

// PipelineService owns the monitoring sessions. Each session runs one frame
// loop: read, detect, annotate, broadcast, gate, and on admission snapshot +
// alert record + notification dispatch.
type PipelineService struct {
	detector   Detector
	alerts     AlertSink
	snapshots  SnapshotWriter
	dispatcher Dispatcher
	hub        FrameBroadcaster
	clock      Clock
	logger     *zap.Logger
	openSource func(ctx context.Context, spec string) (FrameSource, error)
	cooldown   time.Duration
	retention  time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

func NewPipelineService(
	detector Detector,
	alerts AlertSink,
	snapshots SnapshotWriter,
	dispatcher Dispatcher,
	hub FrameBroadcaster,
	logger *zap.Logger,
) *PipelineService {
	return &PipelineService{
		detector:   detector,
		alerts:     alerts,
		snapshots:  snapshots,
		dispatcher: dispatcher,
		hub:        hub,
		clock:      systemClock{},
		logger:     logger,
		openSource: OpenSource,
		cooldown:   DefaultAlertCooldown,
		retention:  sessionRetention,
		sessions:   make(map[string]*session),
	}
}

// StartSession opens the source synchronously so an unreachable source is
// reported to the caller instead of a dead session.
func (p *PipelineService) StartSession(username, source string, threshold float64) (*SessionInfo, error) {
	if threshold < 0.1 || threshold > 0.9 {
		return nil, ErrInvalidThreshold
	}

	ctx, cancel := context.WithCancel(context.Background())
	src, err := p.openSource(ctx, source)
	if err != nil {
		cancel()
		return nil, err
	}

	sess := &session{
		info: SessionInfo{
			ID:        uuid.NewString(),
			Username:  username,
			Source:    source,
			Threshold: threshold,
			Status:    StatusRunning,
			StartedAt: p.clock.Now(),
		},
		cancel: cancel,
		gate:   NewAlertGate(p.cooldown),
	}

	p.mu.Lock()
	p.sessions[sess.info.ID] = sess
	p.mu.Unlock()

	go p.run(ctx, sess, src)

	info := sess.info
	return &info, nil
}

func (p *PipelineService) StopSession(id string) error {
	p.mu.Lock()
	sess, ok := p.sessions[id]
	p.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.cancel()
	return nil
}

func (p *PipelineService) SessionStatus(id string) (*SessionInfo, error) {
	p.mu.Lock()
	sess, ok := p.sessions[id]
	p.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.mu.Lock()
	info := sess.info
	sess.mu.Unlock()
	return &info, nil
}

func (p *PipelineService) run(ctx context.Context, sess *session, src FrameSource) {
	defer src.Close()

	username := sess.info.Username
	final := StatusFinished
	defer func() {
		p.setStatus(sess, final)
		p.hub.BroadcastStatus(username, sess.info.ID, string(final))
		p.logger.Info("monitoring session ended",
			zap.String("session_id", sess.info.ID),
			zap.String("status", string(final)),
		)
		time.AfterFunc(p.retention, func() {
			p.mu.Lock()
			delete(p.sessions, sess.info.ID)
			p.mu.Unlock()
		})
	}()

	failures := 0
	for {
		if ctx.Err() != nil {
			final = StatusStopped
			return
		}

		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				final = StatusStopped
				return
			}
			p.logger.Warn("frame read failed",
				zap.String("session_id", sess.info.ID), zap.Error(err))
			final = StatusSourceUnreachable
			return
		}

		result, err := p.detector.Detect(ctx, frame, sess.info.Threshold)
		if err != nil {
			failures++
			p.logger.Warn("detection failed, skipping frame",
				zap.Int("consecutive_failures", failures), zap.Error(err))
			if failures >= maxConsecutiveDetectFailures {
				final = StatusDetectorFailed
				return
			}
			continue
		}
		failures = 0

		p.hub.BroadcastFrame(username, p.annotate(frame, result), result.Events)

		now := p.clock.Now()
		message, admitted := sess.gate.Admit(result.Events, now)
		if !admitted {
			continue
		}

		// snapshot first: the alert record must reference a written image.
		// A failed write reopens the gate so a transient disk error does
		// not silence the next detections for a whole cooldown window.
		path, err := p.snapshots.Save(frame, now)
		if err != nil {
			sess.gate.Rollback(now)
			p.logger.Error("snapshot write failed, alert dropped", zap.Error(err))
			continue
		}

		id, err := p.alerts.Append(username, message, now, path)
		if err != nil {
			p.logger.Error("alert record write failed", zap.Error(err))
		} else {
			p.hub.BroadcastAlert(username, map[string]any{
				"id":         id,
				"alert_type": message,
				"time":       now.Format(alertTimeLayout),
				"image_path": path,
			})
		}

		// notification delivery never stalls the frame loop
		go func() {
			dctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
			defer cancel()
			p.dispatcher.Dispatch(dctx, username, message, path)
		}()
	}
}

func (p *PipelineService) annotate(frame []byte, result *DetectionResult) []byte {
	if len(result.Detections) == 0 {
		return frame
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(frame))
	if err != nil {
		return frame
	}
	annotated, err := utils.AnnotateJPEG(frame, PixelBoxes(result.Detections, cfg.Width, cfg.Height))
	if err != nil {
		p.logger.Debug("frame annotation failed", zap.Error(err))
		return frame
	}
	return annotated
}

func (p *PipelineService) setStatus(sess *session, status SessionStatus) {
	sess.mu.Lock()
	sess.info.Status = status
	sess.mu.Unlock()
}
