package engine

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

// Scores summarizes how well the model fit its training data, computed in
// the original value space.
type Scores struct {
	MAPE float64 `json:"mape"`
	MSE  float64 `json:"mse"`
	R2   float64 `json:"r2"`
}

func newScores(e *Engine, obsY, fitted []float64) Scores {
	n := len(obsY)
	if n == 0 {
		return Scores{}
	}

	var (
		mapeSum float64
		mapeN   int
		sqSum   float64
		mean    float64
	)
	yTrue := make([]float64, n)
	for i := range obsY {
		yTrue[i] = e.inverseTransform(obsY[i])
		mean += yTrue[i]
	}
	mean /= float64(n)

	var ssTot float64
	for i := range obsY {
		yPred := e.inverseTransform(fitted[i])
		diff := yTrue[i] - yPred
		sqSum += diff * diff
		ssTot += (yTrue[i] - mean) * (yTrue[i] - mean)
		if yTrue[i] != 0 {
			mapeSum += math.Abs(diff / yTrue[i])
			mapeN++
		}
	}

	s := Scores{MSE: sqSum / float64(n)}
	if mapeN > 0 {
		s.MAPE = mapeSum / float64(mapeN)
	}
	if ssTot > 0 {
		s.R2 = 1 - sqSum/ssTot
	}
	return s
}

// FeatureWeight pairs a design column label with its fitted coefficient.
type FeatureWeight struct {
	Label Label   `json:"label"`
	Value float64 `json:"value"`
}

// Model is the serializable form of a fitted engine: options, resolved
// structure, and coefficients. A Model round-trips through JSON and can be
// rehydrated with NewFromModel for inference without retraining.
type Model struct {
	Options *Options `json:"options"`

	TrainStart time.Time `json:"train_start"`
	TrainEnd   time.Time `json:"train_end"`

	Floor *float64 `json:"floor,omitempty"`
	Cap   *float64 `json:"cap,omitempty"`

	Changepoints []time.Time `json:"changepoints"`
	YearlyOrder  int         `json:"yearly_order"`
	WeeklyOrder  int         `json:"weekly_order"`
	DailyOrder   int         `json:"daily_order"`

	Intercept float64         `json:"intercept"`
	Weights   []FeatureWeight `json:"weights"`

	Residuals []float64 `json:"residuals"`
	Sigma     float64   `json:"sigma"`
	Scores    Scores    `json:"scores"`
}

// Model returns the serializable form of the fitted engine.
func (e *Engine) Model() (*Model, error) {
	if !e.trained {
		return nil, ErrUntrained
	}

	weights := make([]FeatureWeight, len(e.coef))
	for i, c := range e.coef {
		weights[i] = FeatureWeight{Label: e.labels[i], Value: c}
	}

	return &Model{
		Options:      e.opt,
		TrainStart:   e.trainStart,
		TrainEnd:     e.trainEnd,
		Floor:        e.floor,
		Cap:          e.cap,
		Changepoints: e.changepoints,
		YearlyOrder:  e.yearlyOrder,
		WeeklyOrder:  e.weeklyOrder,
		DailyOrder:   e.dailyOrder,
		Intercept:    e.intercept,
		Weights:      weights,
		Residuals:    e.Residuals(),
		Sigma:        e.sigma,
		Scores:       e.scores,
	}, nil
}

// Encode renders the indented JSON blob written to model_uri.
func (m *Model) Encode() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// Save writes the model blob to path, creating parent directories.
func (m *Model) Save(path string) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadModel reads a model blob from path.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeModel(data)
}

// DecodeModel parses a serialized model blob.
func DecodeModel(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Options == nil {
		return nil, errors.New("model blob has no options")
	}
	return &m, nil
}

// NewFromModel rehydrates an engine from a serialized model. The result is
// ready for prediction immediately and must not be refit.
func NewFromModel(m *Model) (*Engine, error) {
	if m == nil || m.Options == nil {
		return nil, errors.New("nil model")
	}
	if err := m.Options.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		opt:          m.Options,
		trainStart:   m.TrainStart,
		trainEnd:     m.TrainEnd,
		spanSecs:     m.TrainEnd.Sub(m.TrainStart).Seconds(),
		floor:        m.Floor,
		cap:          m.Cap,
		changepoints: m.Changepoints,
		yearlyOrder:  m.YearlyOrder,
		weeklyOrder:  m.WeeklyOrder,
		dailyOrder:   m.DailyOrder,
		intercept:    m.Intercept,
		residuals:    m.Residuals,
		sigma:        m.Sigma,
		scores:       m.Scores,
		trained:      true,
	}
	if err := e.resolveTransform(); err != nil {
		return nil, err
	}

	e.labels = make([]Label, len(m.Weights))
	e.coef = make([]float64, len(m.Weights))
	for i, w := range m.Weights {
		e.labels[i] = w.Label
		e.coef[i] = w.Value
	}

	if m.Options.Seed != 0 {
		e.rng = rand.New(rand.NewSource(m.Options.Seed))
	} else {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return e, nil
}
