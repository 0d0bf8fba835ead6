package service

import (
	"context"
	"sync"
	"time"

	"github.com/contractlens/contractlens/model"
	"github.com/contractlens/contractlens/pkg/logger"
)

// Phases shown while a document is being analyzed, in order
var Phases = []string{
	"Extracting text from document...",
	"Classifying contract clauses...",
	"Detecting risky patterns...",
	"Generating AI summary...",
	"Calculating risk score...",
	"Finalizing analysis...",
}

// PhasePercent is the progress shown once phase i (0-based) is reached
func PhasePercent(i int) float64 {
	return float64(i+1) * 100 / float64(len(Phases))
}

// ContractAnalyzer runs the real analysis for an uploaded contract
type ContractAnalyzer interface {
	Analyze(ctx context.Context, contractID string) (*model.Analysis, error)
}

// Analyzer plays the phase sequence for a session and then requests the analysis
type Analyzer struct {
	client   ContractAnalyzer
	interval time.Duration
	ctx      context.Context // outlives the request that started the run
	wg       sync.WaitGroup
}

func NewAnalyzer(ctx context.Context, client ContractAnalyzer, interval time.Duration) *Analyzer {
	if interval < 0 {
		interval = 0
	}
	return &Analyzer{
		client:   client,
		interval: interval,
		ctx:      ctx,
	}
}

// Start launches the run for sess in the background. It returns
// ErrAnalysisRunning when the session already has one.
func (a *Analyzer) Start(sess *Session) error {
	contractID, err := sess.BeginAnalysis()
	if err != nil {
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.run(sess, contractID)
	}()
	return nil
}

// Wait blocks until every started run has finished
func (a *Analyzer) Wait() {
	a.wg.Wait()
}

func (a *Analyzer) run(sess *Session, contractID string) {
	ctx := logger.WithContract(logger.WithSession(a.ctx, sess.ID), contractID)
	log := logger.WithContext(ctx)
	log.Info("analysis started", "phases", len(Phases), "interval", a.interval)

	for i, phase := range Phases {
		sess.Advance(i, phase, PhasePercent(i))
		if i == len(Phases)-1 {
			break
		}
		select {
		case <-time.After(a.interval):
		case <-ctx.Done():
			log.Warn("analysis interrupted", "error", ctx.Err())
			sess.FailAnalysis()
			return
		}
	}

	start := time.Now()
	result, err := a.client.Analyze(ctx, contractID)
	if err != nil {
		log.Error("analysis failed", "error", err, "duration", time.Since(start))
		sess.FailAnalysis()
		sess.PushToast("Analysis Failed", "There was an error analyzing your contract. Please try again.", model.ToastDestructive)
		return
	}

	log.Info("analysis completed",
		"risk_score", result.RiskScore,
		"clauses", len(result.Clauses),
		"duration", time.Since(start),
	)
	sess.CompleteAnalysis(result)
	sess.PushToast("Analysis Complete", "Your contract has been analyzed successfully.", model.ToastDefault)
}

var _ ContractAnalyzer = (*AnalysisClient)(nil)
