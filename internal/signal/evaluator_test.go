package signal

import (
	"errors"
	"testing"

	"stockbot/internal/config"
	"stockbot/internal/features"
)

type stubClassifier struct {
	p   float64
	err error
}

func (s stubClassifier) PredictProba(features.Row) (float64, error) { return s.p, s.err }

type stubRegressor struct {
	r   float64
	err error
}

func (s stubRegressor) Predict(features.Row) (float64, error) { return s.r, s.err }

func defaultStrategy() config.StrategyConfig {
	return config.StrategyConfig{
		LongProbThreshold:    0.58,
		LongReturnThreshold:  0.002,
		ShortProbThreshold:   0.25,
		ShortReturnThreshold: -0.0065,
	}
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name string
		p    float64
		r    float64
		want Action
	}{
		{"long when both gates clear", 0.60, 0.003, ActionLong},
		{"short when both gates clear", 0.20, -0.007, ActionShort},
		{"hold on probability at long threshold", 0.58, 0.003, ActionHold},
		{"hold on return at long threshold", 0.60, 0.002, ActionHold},
		{"hold on probability at short threshold", 0.25, -0.007, ActionHold},
		{"hold on return at short threshold", 0.20, -0.0065, ActionHold},
		{"hold when high prob meets weak return", 0.90, 0.001, ActionHold},
		{"hold when low prob meets mild drop", 0.10, -0.001, ActionHold},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := &Evaluator{
				Classifier: stubClassifier{p: tc.p},
				Regressor:  stubRegressor{r: tc.r},
				Strategy:   defaultStrategy(),
			}
			d, err := e.Evaluate(features.Row{})
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if d.Action != tc.want {
				t.Fatalf("action = %s, want %s (p=%v r=%v)", d.Action, tc.want, tc.p, tc.r)
			}
			if d.Probability != tc.p || d.Return != tc.r {
				t.Fatalf("decision carries p=%v r=%v, want p=%v r=%v", d.Probability, d.Return, tc.p, tc.r)
			}
		})
	}
}

func TestEvaluatePrefersLongOnOverlap(t *testing.T) {
	// Degenerate thresholds where one reading satisfies both entry gates.
	e := &Evaluator{
		Classifier: stubClassifier{p: 0.5},
		Regressor:  stubRegressor{r: 0.01},
		Strategy: config.StrategyConfig{
			LongProbThreshold:    0.4,
			LongReturnThreshold:  0.0,
			ShortProbThreshold:   0.6,
			ShortReturnThreshold: 0.02,
		},
	}
	d, err := e.Evaluate(features.Row{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Action != ActionLong {
		t.Fatalf("action = %s, want long when both gates match", d.Action)
	}
}

func TestEvaluatePropagatesModelErrors(t *testing.T) {
	wantErr := errors.New("inference failed")

	e := &Evaluator{
		Classifier: stubClassifier{err: wantErr},
		Regressor:  stubRegressor{},
		Strategy:   defaultStrategy(),
	}
	if _, err := e.Evaluate(features.Row{}); !errors.Is(err, wantErr) {
		t.Fatalf("classifier err = %v, want %v", err, wantErr)
	}

	e = &Evaluator{
		Classifier: stubClassifier{p: 0.5},
		Regressor:  stubRegressor{err: wantErr},
		Strategy:   defaultStrategy(),
	}
	if _, err := e.Evaluate(features.Row{}); !errors.Is(err, wantErr) {
		t.Fatalf("regressor err = %v, want %v", err, wantErr)
	}
}

func TestReversals(t *testing.T) {
	e := &Evaluator{Strategy: defaultStrategy()}

	// Long reversal needs p below 0.42 and r below -0.002.
	if !e.LongReversal(Decision{Probability: 0.40, Return: -0.003}) {
		t.Fatal("expected long reversal")
	}
	if e.LongReversal(Decision{Probability: 0.42, Return: -0.003}) {
		t.Fatal("long reversal fired at the probability boundary")
	}
	if e.LongReversal(Decision{Probability: 0.40, Return: -0.002}) {
		t.Fatal("long reversal fired at the return boundary")
	}

	// Short reversal is the long-entry gate: p above 0.58 and r above 0.002.
	if !e.ShortReversal(Decision{Probability: 0.60, Return: 0.003}) {
		t.Fatal("expected short reversal on a long-entry reading")
	}
	if e.ShortReversal(Decision{Probability: 0.58, Return: 0.003}) {
		t.Fatal("short reversal fired at the probability boundary")
	}
	if e.ShortReversal(Decision{Probability: 0.60, Return: 0.002}) {
		t.Fatal("short reversal fired at the return boundary")
	}
}
