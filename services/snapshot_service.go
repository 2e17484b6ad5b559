package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// SnapshotService writes the triggering frame to local disk; the local path
// is what the alert record references. When a bucket is configured the file
// is also mirrored to S3 in the background, best-effort.
type SnapshotService struct {
	dir    string
	s3     *s3.Client
	bucket string
	logger *zap.Logger
}

func NewSnapshotService(dir string, cfg aws.Config, logger *zap.Logger) *SnapshotService {
	svc := &SnapshotService{
		dir:    dir,
		bucket: os.Getenv("S3_BUCKET"),
		logger: logger,
	}
	if svc.bucket != "" {
		svc.s3 = s3.NewFromConfig(cfg)
	}
	return svc
}

// Save writes alert_<unix-seconds>.jpg and returns its path.
func (s *SnapshotService) Save(frame []byte, now time.Time) (string, error) {
	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return "", err
		}
	}
	name := fmt.Sprintf("alert_%d.jpg", now.Unix())
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, frame, 0o644); err != nil {
		return "", err
	}

	if s.s3 != nil {
		go s.mirror(name, frame)
	}
	return path, nil
}

func (s *SnapshotService) mirror(name string, frame []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	key := "snapshots/" + name
	_, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(frame),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		s.logger.Warn("s3 snapshot mirror failed",
			zap.String("key", key), zap.Error(err))
	}
}
