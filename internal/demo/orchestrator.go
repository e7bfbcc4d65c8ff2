package demo

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"strings"
	"time"

	"github.com/noah-isme/truthguard-go-api/internal/dto"
	"github.com/noah-isme/truthguard-go-api/internal/models"
	"github.com/noah-isme/truthguard-go-api/internal/web"
)

// AITextSample is the same sample the dashboard loads from its demo button.
const AITextSample = web.DemoAIText

// API is the part of the server the walkthrough exercises; *Client satisfies it.
type API interface {
	SensorSink
	DetectText(ctx context.Context, text string) (models.Verdict, error)
	DetectImage(ctx context.Context, image string) (models.Verdict, error)
	Stats(ctx context.Context) (models.Stats, error)
}

// Report collects what the walkthrough observed.
type Report struct {
	Text         models.Verdict
	Image        models.Verdict
	Sensor       dto.SensorReadingResponse
	StatsBefore  models.Stats
	StatsAfter   models.Stats
	StepFailures map[string]error
}

// Orchestrator runs the scripted demo against a server.
type Orchestrator struct {
	api   API
	out   io.Writer
	pause time.Duration
}

// NewOrchestrator writes progress to out and waits pause between steps.
func NewOrchestrator(api API, out io.Writer, pause time.Duration) *Orchestrator {
	return &Orchestrator{api: api, out: out, pause: pause}
}

// Run executes the walkthrough. It stops early only when the server is unreachable;
// later step failures are reported and the sequence carries on.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	report := Report{StepFailures: map[string]error{}}

	o.printf("Starting TruthGuard AI demo\n%s\n", strings.Repeat("=", 60))

	before, err := o.api.Stats(ctx)
	if err != nil {
		o.printf("Backend not reachable: %v\n", err)
		return report, fmt.Errorf("backend health check: %w", err)
	}
	report.StatsBefore = before

	steps := []struct {
		name string
		run  func(context.Context, *Report) error
	}{
		{"text", o.textStep},
		{"image", o.imageStep},
		{"sensor", o.sensorStep},
	}

	for i, step := range steps {
		if i > 0 && !o.wait(ctx) {
			return report, ctx.Err()
		}
		if err := step.run(ctx, &report); err != nil {
			report.StepFailures[step.name] = err
			o.printf("   error: %v\n", err)
		}
	}

	after, err := o.api.Stats(ctx)
	if err != nil {
		return report, fmt.Errorf("final stats: %w", err)
	}
	report.StatsAfter = after

	o.printf("\n%s\nDetections this run: %d (total %d, ai %d, human %d, accuracy %s)\n",
		strings.Repeat("=", 60),
		after.TotalDetections-before.TotalDetections,
		after.TotalDetections, after.AIDetected, after.HumanDetected, after.AccuracyRate)

	return report, nil
}

func (o *Orchestrator) textStep(ctx context.Context, report *Report) error {
	o.printf("\nText detection\n")
	verdict, err := o.api.DetectText(ctx, AITextSample)
	if err != nil {
		return err
	}
	report.Text = verdict

	result := "Human content"
	if verdict.IsAIGenerated {
		result = "AI detected"
	}
	o.printf("   Result: %s\n   Confidence: %.1f%%\n   AI probability: %.1f%%\n",
		result, verdict.ConfidenceScore*100, verdict.AIProbability*100)
	return nil
}

func (o *Orchestrator) imageStep(ctx context.Context, report *Report) error {
	o.printf("\nImage detection\n")
	payload, err := SampleImage()
	if err != nil {
		return err
	}

	verdict, err := o.api.DetectImage(ctx, payload)
	if err != nil {
		return err
	}
	report.Image = verdict

	result := "Authentic image"
	if verdict.IsAIGenerated {
		result = "Manipulation detected"
	}
	o.printf("   Result: %s\n   Confidence: %.1f%%\n   Faces analyzed: %v\n",
		result, verdict.ConfidenceScore*100, verdict.Metadata["faces_detected"])
	return nil
}

func (o *Orchestrator) sensorStep(ctx context.Context, report *Report) error {
	o.printf("\nIoT integration\n")
	reading := dto.SensorReadingRequest{
		SensorType: models.SensorBiometric,
		Data: map[string]interface{}{
			"stress_level":    0.8,
			"attention_score": 0.2,
			"heart_rate":      95,
		},
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
	}

	stored, err := o.api.SendSensorData(ctx, "demo-biometric", reading)
	if err != nil {
		return err
	}
	report.Sensor = stored

	o.printf("   Stress level: 80%%\n   Attention score: 20%%\n   Heart rate: 95 BPM\n")
	if len(stored.Anomalies) > 0 {
		o.printf("   Anomaly flagged: %s\n", strings.Join(stored.Anomalies, ", "))
	}
	return nil
}

func (o *Orchestrator) wait(ctx context.Context) bool {
	if o.pause <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(o.pause):
		return true
	}
}

func (o *Orchestrator) printf(format string, args ...interface{}) {
	if o.out != nil {
		fmt.Fprintf(o.out, format, args...)
	}
}

// SampleImage returns a small gradient JPEG as a data URI.
func SampleImage() (string, error) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
