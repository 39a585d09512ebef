package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/smukkama/aqi-forecast/internal/forecast"
	"github.com/smukkama/aqi-forecast/internal/protocol"
	"github.com/smukkama/aqi-forecast/internal/severity"
)

type fakePublisher struct {
	sent []*protocol.AlertNotification
	keys []string
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, key string, value []byte) error {
	if p.err != nil {
		return p.err
	}
	n, err := protocol.DecodeAlertNotification(value)
	if err != nil {
		return err
	}
	p.sent = append(p.sent, n)
	p.keys = append(p.keys, key)
	return nil
}

// failingStore fails every read
type failingStore struct{ *MemoryStateStore }

func (failingStore) GetState(ctx context.Context, horizon int) (*AlertState, error) {
	return nil, errors.New("redis down")
}

func result(values ...float64) *forecast.Result {
	base := time.Date(2024, 5, 2, 13, 0, 0, 0, time.UTC)
	hours := []int{12, 48, 72}
	r := &forecast.Result{RunID: "run", RawDate: "02-05-2024 13:00", BaseTime: base}
	for i, v := range values {
		r.Forecasts = append(r.Forecasts, forecast.Forecast{
			HorizonHours: hours[i],
			Target:       base.Add(time.Duration(hours[i]) * time.Hour),
			AQI:          v,
			Severity:     severity.Classify(v),
		})
	}
	return r
}

func newEvaluator(t *testing.T, pub Publisher) (*Evaluator, *MemoryStateStore) {
	t.Helper()
	minSeverity, err := severity.Parse("Poor")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	store := NewMemoryStateStore()
	logger, _ := test.NewNullLogger()
	return NewEvaluator(store, pub, minSeverity, logger), store
}

func TestEvaluate_Lifecycle(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	e, store := newEvaluator(t, pub)

	// below threshold: nothing happens
	if err := e.Evaluate(ctx, result(40, 90, 100)); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(pub.sent) != 0 {
		t.Fatalf("Expected no notifications, got %d", len(pub.sent))
	}

	// 48h crosses into Poor
	if err := e.Evaluate(ctx, result(40, 150, 100)); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(pub.sent) != 1 || pub.sent[0].Type != protocol.AlertTypeTriggered || pub.sent[0].HorizonHours != 48 {
		t.Fatalf("Expected 48h trigger, got %+v", pub.sent)
	}
	if pub.keys[0] != "horizon-48h" {
		t.Errorf("Expected key horizon-48h, got %s", pub.keys[0])
	}
	alertID := pub.sent[0].AlertID
	state, _ := store.GetState(ctx, 48)
	if state.Status != AlertStateActive || state.AlertID != alertID {
		t.Errorf("Unexpected state %+v", state)
	}

	// same band again: no new notification
	if err := e.Evaluate(ctx, result(40, 180, 100)); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("Expected no repeat notification, got %d", len(pub.sent))
	}
	state, _ = store.GetState(ctx, 48)
	if state.AQI != 180 {
		t.Errorf("Expected state AQI refreshed to 180, got %v", state.AQI)
	}

	// band worsens while alerting
	e.Evaluate(ctx, result(40, 250, 100))
	if len(pub.sent) != 2 || pub.sent[1].Type != protocol.AlertTypeUpdated {
		t.Fatalf("Expected update notification, got %+v", pub.sent)
	}
	if pub.sent[1].PreviousSeverity != "Poor" || pub.sent[1].Severity != "Very Poor" || pub.sent[1].AlertID != alertID {
		t.Errorf("Unexpected update %+v", pub.sent[1])
	}

	// back to Moderate: cleared
	e.Evaluate(ctx, result(40, 80, 100))
	if len(pub.sent) != 3 || pub.sent[2].Type != protocol.AlertTypeCleared || pub.sent[2].AlertID != alertID {
		t.Fatalf("Expected clear notification, got %+v", pub.sent)
	}
	state, _ = store.GetState(ctx, 48)
	if state.Status != AlertStateClear {
		t.Errorf("Expected CLEAR after clearing, got %s", state.Status)
	}
}

func TestEvaluate_BoundaryIsInclusive(t *testing.T) {
	pub := &fakePublisher{}
	e, _ := newEvaluator(t, pub)

	// 100.0 is still Moderate, 100.5 is Poor
	e.Evaluate(context.Background(), result(100, 100.5))
	if len(pub.sent) != 1 || pub.sent[0].HorizonHours != 48 {
		t.Errorf("Expected only 48h to alert, got %+v", pub.sent)
	}
}

func TestEvaluate_NoPublisher(t *testing.T) {
	e, store := newEvaluator(t, nil)
	if err := e.Evaluate(context.Background(), result(400)); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	state, _ := store.GetState(context.Background(), 12)
	if state.Status != AlertStateActive || state.Severity != "Hazardous" {
		t.Errorf("Expected hazardous alert state, got %+v", state)
	}
}

func TestEvaluate_Errors(t *testing.T) {
	ctx := context.Background()

	pub := &fakePublisher{err: errors.New("kafka down")}
	e, _ := newEvaluator(t, pub)
	if err := e.Evaluate(ctx, result(400, 10)); err == nil {
		t.Error("Expected publish error")
	}

	logger, _ := test.NewNullLogger()
	e = NewEvaluator(failingStore{NewMemoryStateStore()}, &fakePublisher{}, severity.Bands[2], logger)
	err := e.Evaluate(ctx, result(10, 20, 30))
	if err == nil {
		t.Fatal("Expected state store error")
	}
}
