package services

import (
	"context"
	"fmt"
	"image"
	"sort"

	"backend/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"go.uber.org/zap"
)

const (
	EventPerson = "Person Detected"
	EventFire   = "Fire Detected"

	personLabel = "Person"
)

// BoundingBox holds fractional frame coordinates as Rekognition reports them.
type BoundingBox struct {
	Left   float32
	Top    float32
	Width  float32
	Height float32
}

type Detection struct {
	Event      string
	Confidence float32 // percent, 0-100
	Box        *BoundingBox
}

type DetectionResult struct {
	Events     []string // deduplicated, sorted
	Detections []Detection
}

// Detector runs both pretrained models against a single frame.
type Detector interface {
	Detect(ctx context.Context, frame []byte, threshold float64) (*DetectionResult, error)
}

// RekognitionDetector pairs the stock DetectLabels model (person detection)
// with a hosted custom-labels fire model.
type RekognitionDetector struct {
	client       *rekognition.Client
	fireModelARN string
	logger       *zap.Logger
}

func NewRekognitionDetector(cfg aws.Config, fireModelARN string, logger *zap.Logger) *RekognitionDetector {
	return &RekognitionDetector{
		client:       rekognition.NewFromConfig(cfg),
		fireModelARN: fireModelARN,
		logger:       logger,
	}
}

// Detect runs both models. The threshold is the dashboard's 0.1-0.9 fraction;
// Rekognition speaks percent, so it is converted once here.
func (d *RekognitionDetector) Detect(ctx context.Context, frame []byte, threshold float64) (*DetectionResult, error) {
	minConf := float32(threshold * 100)

	out, err := d.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: frame},
		MaxLabels:     aws.Int32(25),
		MinConfidence: aws.Float32(minConf),
	})
	if err != nil {
		return nil, fmt.Errorf("object detection: %w", err)
	}
	dets := personDetections(out.Labels, minConf)

	fireOut, err := d.client.DetectCustomLabels(ctx, &rekognition.DetectCustomLabelsInput{
		Image:             &types.Image{Bytes: frame},
		ProjectVersionArn: aws.String(d.fireModelARN),
		MinConfidence:     aws.Float32(minConf),
	})
	if err != nil {
		return nil, fmt.Errorf("fire detection: %w", err)
	}
	dets = append(dets, fireDetections(fireOut.CustomLabels, minConf)...)

	d.logger.Debug("frame analyzed",
		zap.Int("detections", len(dets)),
		zap.Float32("min_confidence", minConf),
	)

	return &DetectionResult{Events: EventSet(dets), Detections: dets}, nil
}

// personDetections keeps only the "Person" class from the general model.
func personDetections(labels []types.Label, minConf float32) []Detection {
	var dets []Detection
	for _, l := range labels {
		if aws.ToString(l.Name) != personLabel {
			continue
		}
		for _, inst := range l.Instances {
			conf := aws.ToFloat32(inst.Confidence)
			if conf < minConf {
				continue
			}
			dets = append(dets, Detection{
				Event:      EventPerson,
				Confidence: conf,
				Box:        boxFrom(inst.BoundingBox),
			})
		}
		// the model can report label presence without box instances
		if len(l.Instances) == 0 && aws.ToFloat32(l.Confidence) >= minConf {
			dets = append(dets, Detection{Event: EventPerson, Confidence: aws.ToFloat32(l.Confidence)})
		}
	}
	return dets
}

// fireDetections counts every custom-model hit as fire regardless of class.
func fireDetections(labels []types.CustomLabel, minConf float32) []Detection {
	var dets []Detection
	for _, l := range labels {
		conf := aws.ToFloat32(l.Confidence)
		if conf < minConf {
			continue
		}
		det := Detection{Event: EventFire, Confidence: conf}
		if l.Geometry != nil {
			det.Box = boxFrom(l.Geometry.BoundingBox)
		}
		dets = append(dets, det)
	}
	return dets
}

func boxFrom(b *types.BoundingBox) *BoundingBox {
	if b == nil {
		return nil
	}
	return &BoundingBox{
		Left:   aws.ToFloat32(b.Left),
		Top:    aws.ToFloat32(b.Top),
		Width:  aws.ToFloat32(b.Width),
		Height: aws.ToFloat32(b.Height),
	}
}

// EventSet deduplicates detection events into a sorted label set.
func EventSet(dets []Detection) []string {
	seen := make(map[string]struct{}, len(dets))
	var events []string
	for _, d := range dets {
		if _, ok := seen[d.Event]; ok {
			continue
		}
		seen[d.Event] = struct{}{}
		events = append(events, d.Event)
	}
	sort.Strings(events)
	return events
}

// PixelBoxes converts fractional boxes to pixel rectangles for annotation.
func PixelBoxes(dets []Detection, width, height int) []utils.LabeledBox {
	var boxes []utils.LabeledBox
	for _, d := range dets {
		if d.Box == nil {
			continue
		}
		x0 := int(d.Box.Left * float32(width))
		y0 := int(d.Box.Top * float32(height))
		x1 := x0 + int(d.Box.Width*float32(width))
		y1 := y0 + int(d.Box.Height*float32(height))
		boxes = append(boxes, utils.LabeledBox{
			Label: fmt.Sprintf("%s %.0f%%", d.Event, d.Confidence),
			Rect:  image.Rect(x0, y0, x1, y1),
		})
	}
	return boxes
}
