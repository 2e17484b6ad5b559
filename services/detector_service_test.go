package services

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func personLabelWith(instConfs ...float32) types.Label {
	l := types.Label{
		Name:       aws.String("Person"),
		Confidence: aws.Float32(99),
	}
	for _, c := range instConfs {
		l.Instances = append(l.Instances, types.Instance{
			Confidence: aws.Float32(c),
			BoundingBox: &types.BoundingBox{
				Left: aws.Float32(0.1), Top: aws.Float32(0.1),
				Width: aws.Float32(0.2), Height: aws.Float32(0.4),
			},
		})
	}
	return l
}

func TestPersonDetectionsThreshold(t *testing.T) {
	labels := []types.Label{
		personLabelWith(80, 40, 50),
		{Name: aws.String("Dog"), Confidence: aws.Float32(95)},
	}

	dets := personDetections(labels, 50)
	require.Len(t, dets, 2) // 80 and the boundary 50; 40 filtered, Dog ignored
	for _, d := range dets {
		assert.Equal(t, EventPerson, d.Event)
		assert.GreaterOrEqual(t, d.Confidence, float32(50))
	}
}

func TestPersonDetectionsWithoutInstances(t *testing.T) {
	labels := []types.Label{
		{Name: aws.String("Person"), Confidence: aws.Float32(72)},
	}

	dets := personDetections(labels, 50)
	require.Len(t, dets, 1)
	assert.Nil(t, dets[0].Box)

	dets = personDetections(labels, 80)
	assert.Empty(t, dets)
}

func TestFireDetectionsAnyClassCounts(t *testing.T) {
	labels := []types.CustomLabel{
		{Name: aws.String("fire"), Confidence: aws.Float32(91)},
		{Name: aws.String("smoke"), Confidence: aws.Float32(77)},
		{Name: aws.String("fire"), Confidence: aws.Float32(30)},
	}

	dets := fireDetections(labels, 60)
	require.Len(t, dets, 2)
	for _, d := range dets {
		assert.Equal(t, EventFire, d.Event)
	}
}

func TestEventSetDeduplicates(t *testing.T) {
	dets := []Detection{
		{Event: EventPerson, Confidence: 80},
		{Event: EventPerson, Confidence: 90},
		{Event: EventFire, Confidence: 70},
	}

	events := EventSet(dets)
	assert.Equal(t, []string{EventFire, EventPerson}, events)

	assert.Empty(t, EventSet(nil))
}

func TestPixelBoxes(t *testing.T) {
	dets := []Detection{
		{
			Event:      EventPerson,
			Confidence: 80,
			Box:        &BoundingBox{Left: 0.5, Top: 0.25, Width: 0.25, Height: 0.5},
		},
		{Event: EventFire, Confidence: 70}, // no box, skipped
	}

	boxes := PixelBoxes(dets, 640, 480)
	require.Len(t, boxes, 1)
	assert.Equal(t, 320, boxes[0].Rect.Min.X)
	assert.Equal(t, 120, boxes[0].Rect.Min.Y)
	assert.Equal(t, 480, boxes[0].Rect.Max.X)
	assert.Equal(t, 360, boxes[0].Rect.Max.Y)
	assert.Contains(t, boxes[0].Label, EventPerson)
}
