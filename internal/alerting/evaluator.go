package alerting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smukkama/aqi-forecast/internal/forecast"
	"github.com/smukkama/aqi-forecast/internal/protocol"
	"github.com/smukkama/aqi-forecast/internal/severity"
)

// Publisher delivers encoded notifications, e.g. a Kafka producer
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Evaluator compares forecasts against the alert severity and manages the
// alert state of each horizon
type Evaluator struct {
	store       StateStore
	publisher   Publisher
	minSeverity severity.Band
	logger      logrus.FieldLogger
	now         func() time.Time

	mu sync.Mutex
}

// NewEvaluator creates a new alert evaluator. A nil publisher only logs.
func NewEvaluator(store StateStore, publisher Publisher, minSeverity severity.Band, logger logrus.FieldLogger) *Evaluator {
	return &Evaluator{
		store:       store,
		publisher:   publisher,
		minSeverity: minSeverity,
		logger:      logger,
		now:         time.Now,
	}
}

// Evaluate checks every forecast of a result. Horizons are independent; an
// error on one does not stop the others.
func (e *Evaluator) Evaluate(ctx context.Context, result *forecast.Result) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for _, f := range result.Forecasts {
		if err := e.evaluateHorizon(ctx, result, f); err != nil {
			errs = append(errs, fmt.Errorf("horizon %dh: %w", f.HorizonHours, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Evaluator) evaluateHorizon(ctx context.Context, result *forecast.Result, f forecast.Forecast) error {
	state, err := e.store.GetState(ctx, f.HorizonHours)
	if err != nil {
		return err
	}

	now := e.now()
	breached := f.Severity.AtLeast(e.minSeverity)

	switch {
	case breached && state.Status == AlertStateClear:
		return e.triggerAlert(ctx, result, f, now)

	case breached && state.Status == AlertStateActive:
		if state.Severity != f.Severity.Label {
			return e.updateAlert(ctx, result, f, state, now)
		}
		state.LastChecked = now
		state.AQI = f.AQI
		return e.store.SetState(ctx, f.HorizonHours, state)

	case !breached && state.Status == AlertStateActive:
		return e.clearAlert(ctx, result, f, state)
	}

	return nil
}

func (e *Evaluator) triggerAlert(ctx context.Context, result *forecast.Result, f forecast.Forecast, now time.Time) error {
	state := &AlertState{
		Status:      AlertStateActive,
		Severity:    f.Severity.Label,
		Since:       now,
		LastChecked: now,
		AQI:         f.AQI,
		AlertID:     uuid.New().String(),
	}
	if err := e.store.SetState(ctx, f.HorizonHours, state); err != nil {
		return err
	}

	e.logger.WithFields(logrus.Fields{
		"horizon":  f.HorizonHours,
		"aqi":      f.AQI,
		"severity": f.Severity.Label,
		"alert_id": state.AlertID,
	}).Warn("Forecast alert triggered")

	return e.sendNotification(ctx, e.notification(protocol.AlertTypeTriggered, result, f, state, ""))
}

func (e *Evaluator) updateAlert(ctx context.Context, result *forecast.Result, f forecast.Forecast, state *AlertState, now time.Time) error {
	previous := state.Severity
	state.Severity = f.Severity.Label
	state.LastChecked = now
	state.AQI = f.AQI
	if err := e.store.SetState(ctx, f.HorizonHours, state); err != nil {
		return err
	}

	e.logger.WithFields(logrus.Fields{
		"horizon":  f.HorizonHours,
		"from":     previous,
		"to":       f.Severity.Label,
		"alert_id": state.AlertID,
	}).Info("Forecast alert severity changed")

	return e.sendNotification(ctx, e.notification(protocol.AlertTypeUpdated, result, f, state, previous))
}

func (e *Evaluator) clearAlert(ctx context.Context, result *forecast.Result, f forecast.Forecast, state *AlertState) error {
	if err := e.store.DeleteState(ctx, f.HorizonHours); err != nil {
		return err
	}

	e.logger.WithFields(logrus.Fields{
		"horizon":  f.HorizonHours,
		"aqi":      f.AQI,
		"alert_id": state.AlertID,
	}).Info("Forecast alert cleared")

	return e.sendNotification(ctx, e.notification(protocol.AlertTypeCleared, result, f, state, state.Severity))
}

func (e *Evaluator) notification(kind string, result *forecast.Result, f forecast.Forecast, state *AlertState, previous string) *protocol.AlertNotification {
	return &protocol.AlertNotification{
		Type:             kind,
		AlertID:          state.AlertID,
		RunID:            result.RunID,
		HorizonHours:     f.HorizonHours,
		Target:           f.Target,
		AQI:              f.AQI,
		Severity:         f.Severity.Label,
		PreviousSeverity: previous,
		Color:            f.Severity.Color,
		RawDate:          result.RawDate,
		Since:            state.Since,
	}
}

func (e *Evaluator) sendNotification(ctx context.Context, n *protocol.AlertNotification) error {
	if e.publisher == nil {
		return nil
	}

	data, err := protocol.EncodeAlertNotification(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	return e.publisher.Publish(ctx, n.Key(), data)
}
