package signal

import (
	"stockbot/internal/config"
	"stockbot/internal/features"
)

// Action is the evaluator's verdict for one symbol on one cycle.
type Action string

const (
	ActionLong  Action = "long"
	ActionShort Action = "short"
	ActionHold  Action = "hold"
)

// Classifier yields the probability that the next move is up.
type Classifier interface {
	PredictProba(row features.Row) (float64, error)
}

// Regressor yields the expected forward return.
type Regressor interface {
	Predict(row features.Row) (float64, error)
}

// Decision carries the verdict together with the raw model outputs so the
// position manager can reuse them for reversal checks without a second
// inference pass.
type Decision struct {
	Action      Action
	Probability float64
	Return      float64
}

// Evaluator turns a feature row into a long/short/hold decision by gating
// both model outputs against the configured thresholds.
type Evaluator struct {
	Classifier Classifier
	Regressor  Regressor
	Strategy   config.StrategyConfig
}

// Evaluate runs both models and applies the entry gates. Long is checked
// before short, so thresholds that overlap resolve in favor of long.
func (e *Evaluator) Evaluate(row features.Row) (Decision, error) {
	p, err := e.Classifier.PredictProba(row)
	if err != nil {
		return Decision{}, err
	}
	r, err := e.Regressor.Predict(row)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{Action: ActionHold, Probability: p, Return: r}
	switch {
	case p > e.Strategy.LongProbThreshold && r > e.Strategy.LongReturnThreshold:
		d.Action = ActionLong
	case p < e.Strategy.ShortProbThreshold && r < e.Strategy.ShortReturnThreshold:
		d.Action = ActionShort
	}
	return d, nil
}

// LongReversal reports whether the current outputs argue against holding a
// long: confidence collapsed below the mirrored long gate and the expected
// return turned negative past the long threshold.
func (e *Evaluator) LongReversal(d Decision) bool {
	return d.Probability < 1-e.Strategy.LongProbThreshold && d.Return < -e.Strategy.LongReturnThreshold
}

// ShortReversal reports whether the current outputs argue against holding a
// short. The trigger is the plain long-entry gate: once the models would open
// a long, an open short is wrong-way.
func (e *Evaluator) ShortReversal(d Decision) bool {
	return d.Probability > e.Strategy.LongProbThreshold && d.Return > e.Strategy.LongReturnThreshold
}
