package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/truthguard-go-api/internal/detector"
	"github.com/noah-isme/truthguard-go-api/internal/dto"
	"github.com/noah-isme/truthguard-go-api/internal/models"
	"github.com/noah-isme/truthguard-go-api/internal/stats"
)

const demoAIText = "Artificial intelligence has revolutionized numerous industries by automating complex processes and enabling data-driven decision making. Machine learning algorithms can analyze vast datasets to identify patterns and make predictions with remarkable accuracy. This technological advancement has transformed business operations."

type stubScorer struct {
	name    string
	verdict models.Verdict
	err     error
	calls   int
	mu      sync.Mutex
}

func (s *stubScorer) Name() string { return s.name }

func (s *stubScorer) Score(_ context.Context, payload string) (models.Verdict, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return models.Verdict{}, s.err
	}
	return s.verdict, nil
}

func strPtr(s string) *string { return &s }

func newDetectionFixture(text, image detector.Scorer) (DetectionService, *stats.Aggregate, FeedService) {
	aggregate := stats.New("92%")
	feed := NewFeedService(nil, nil, "test", testLogger())
	svc := NewDetectionService(text, image, aggregate, feed, testValidator(), testLogger())
	return svc, aggregate, feed
}

func TestDetectTextMissingFieldIsInvalidInput(t *testing.T) {
	scorer := &stubScorer{name: "stub"}
	svc, aggregate, _ := newDetectionFixture(scorer, scorer)

	_, err := svc.DetectText(context.Background(), dto.DetectTextRequest{})
	require.ErrorIs(t, err, detector.ErrInvalidInput)
	require.Contains(t, err.Error(), "text")
	require.Zero(t, scorer.calls)
	require.Zero(t, aggregate.Snapshot().TotalDetections)
}

func TestDetectTextRecordsStatsAndPublishes(t *testing.T) {
	verdict := models.NewVerdict(0.83, "high", nil, models.AnalysisHeuristicText, time.Now().UTC())
	scorer := &stubScorer{name: "stub", verdict: verdict}
	svc, _, feed := newDetectionFixture(scorer, scorer)

	events, cleanup := feed.Subscribe()
	defer cleanup()

	got, err := svc.DetectText(context.Background(), dto.DetectTextRequest{Text: strPtr("some text")})
	require.NoError(t, err)
	require.Equal(t, verdict, got)

	snapshot := svc.Stats()
	require.Equal(t, int64(1), snapshot.TotalDetections)
	require.Equal(t, int64(1), snapshot.AIDetected)

	select {
	case event := <-events:
		require.Equal(t, dto.FeedEventDetection, event.Type)
		var payload dto.DetectionFeedPayload
		require.NoError(t, json.Unmarshal(event.Payload, &payload))
		require.Equal(t, KindText, payload.Kind)
		require.True(t, payload.IsAIGenerated)
		require.Equal(t, 0.83, payload.AIProbability)
	case <-time.After(time.Second):
		t.Fatal("expected detection event")
	}
}

func TestDetectFailuresAreNotRecorded(t *testing.T) {
	failing := &stubScorer{name: "broken", err: errors.Join(detector.ErrModelFailure, errors.New("boom"))}
	svc, aggregate, _ := newDetectionFixture(failing, failing)

	_, err := svc.DetectText(context.Background(), dto.DetectTextRequest{Text: strPtr("text")})
	require.ErrorIs(t, err, detector.ErrModelFailure)
	require.Zero(t, aggregate.Snapshot().TotalDetections)
}

func TestDetectImageMalformedBase64(t *testing.T) {
	image := detector.NewHeuristicImageScorer()
	svc, aggregate, _ := newDetectionFixture(&stubScorer{name: "unused"}, image)

	_, err := svc.DetectImage(context.Background(), dto.DetectImageRequest{Image: strPtr("data:image/png;base64,@@not-base64@@")})
	require.ErrorIs(t, err, detector.ErrDecodeFailure)
	require.Zero(t, aggregate.Snapshot().TotalDetections)

	_, err = svc.DetectImage(context.Background(), dto.DetectImageRequest{})
	require.ErrorIs(t, err, detector.ErrInvalidInput)
}

func TestDetectTextDemoSampleIsAI(t *testing.T) {
	svc, _, _ := newDetectionFixture(detector.NewHeuristicTextScorer(), detector.NewHeuristicImageScorer())

	verdict, err := svc.DetectText(context.Background(), dto.DetectTextRequest{Text: strPtr(demoAIText)})
	require.NoError(t, err)
	require.True(t, verdict.IsAIGenerated)
	require.Equal(t, models.AnalysisHeuristicText, verdict.AnalysisType)
}

func TestDetectTextEmptyStringScores(t *testing.T) {
	svc, aggregate, _ := newDetectionFixture(detector.NewHeuristicTextScorer(), detector.NewHeuristicImageScorer())

	verdict, err := svc.DetectText(context.Background(), dto.DetectTextRequest{Text: strPtr("")})
	require.NoError(t, err)
	require.InDelta(t, 1.0, verdict.AIProbability+verdict.HumanProbability, 1e-12)
	require.Equal(t, int64(1), aggregate.Snapshot().TotalDetections)
}

func TestDetectTextConcurrentCallsAllCounted(t *testing.T) {
	svc, _, _ := newDetectionFixture(detector.NewHeuristicTextScorer(), detector.NewHeuristicImageScorer())

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.DetectText(context.Background(), dto.DetectTextRequest{Text: strPtr("a short human note")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snapshot := svc.Stats()
	require.Equal(t, int64(n), snapshot.TotalDetections)
	require.Equal(t, snapshot.TotalDetections, snapshot.AIDetected+snapshot.HumanDetected)
}

func TestFailureReason(t *testing.T) {
	require.Equal(t, "invalid_input", failureReason(detector.ErrInvalidInput))
	require.Equal(t, "decode", failureReason(detector.ErrDecodeFailure))
	require.Equal(t, "model", failureReason(detector.ErrModelFailure))
	require.Equal(t, "canceled", failureReason(context.Canceled))
	require.Equal(t, "other", failureReason(errors.New("x")))
}
