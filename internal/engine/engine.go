// Package engine drives a backtest run: the day-stepping loop that wires
// market data, the optimizer, the simulated broker, futures expiry handling
// and the audit ledger together.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"backchain/internal/broker"
	"backchain/internal/data"
	apperrors "backchain/internal/errors"
	"backchain/internal/ledger"
	"backchain/internal/logging"
	"backchain/internal/market"
	"backchain/internal/models"
	"backchain/internal/optimizer"
	"backchain/internal/roll"
	"backchain/pkg/utils"
)

// State is the lifecycle phase of a backtest run.
type State string

const (
	StateInitialized State = "INITIALIZED"
	StateRunning     State = "RUNNING"
	StateCompleted   State = "COMPLETED"
	StateFailed      State = "FAILED"
)

// RebalanceRule selects when the calendar forces a rebalance. Rules are
// tagged values picked at construction, not subclasses.
type RebalanceRule string

const (
	// RebalanceFirstOfMonth fires on the first calendar day of each month.
	RebalanceFirstOfMonth RebalanceRule = "first_of_month"
	// RebalanceDaily fires every simulated day.
	RebalanceDaily RebalanceRule = "daily"
)

func (r RebalanceRule) fires(t time.Time) bool {
	switch r {
	case RebalanceDaily:
		return true
	default:
		return utils.FirstOfMonth(t)
	}
}

// Config holds the fully-formed parameters of one backtest run.
type Config struct {
	Name        string
	InitialDate time.Time
	FinalDate   time.Time
	InitialCash float64
	Universe    []string
	AssetClass  models.AssetClass
	Window      time.Duration
	Rule        RebalanceRule

	// StopLoss is the per-position loss fraction that forces liquidation;
	// zero disables the risk model.
	StopLoss float64

	OutputDir    string
	ShowProgress bool
}

// Backtest owns the state of a single run. A Backtest belongs to exactly one
// goroutine; runs that execute concurrently must each have their own
// Backtest, broker and ledger chain.
type Backtest struct {
	cfg    Config
	state  State
	source data.Source
	store  *ledger.Store
	broker *broker.SimBroker
	risk   *StopLoss
	logger zerolog.Logger

	finalValue float64
}

// New validates the configuration and prepares a run in the INITIALIZED
// state. An empty Name gets a generated one.
func New(cfg Config, source data.Source, store *ledger.Store, logger zerolog.Logger) (*Backtest, error) {
	if cfg.Name == "" {
		cfg.Name = utils.GenerateRunName()
	}
	if cfg.FinalDate.Before(cfg.InitialDate) {
		return nil, apperrors.NewValidationError("final_date", cfg.FinalDate.Format(data.DateLayout), "must not precede initial date")
	}
	if cfg.InitialCash <= 0 {
		return nil, apperrors.NewValidationError("initial_cash", "", "must be positive")
	}
	if len(cfg.Universe) == 0 {
		return nil, apperrors.NewValidationError("universe", "", "must list at least one ticker")
	}
	if cfg.AssetClass != models.AssetStocks && cfg.AssetClass != models.AssetCommodities {
		return nil, apperrors.NewValidationError("asset_class", string(cfg.AssetClass), "must be stocks or commodities")
	}
	if cfg.Window <= 0 {
		cfg.Window = market.DefaultWindow
	}
	if cfg.Rule == "" {
		cfg.Rule = RebalanceFirstOfMonth
	}

	b := &Backtest{
		cfg:    cfg,
		state:  StateInitialized,
		source: source,
		store:  store,
		broker: broker.New(cfg.InitialCash, logger),
		logger: logging.WithRun(logger, cfg.Name),
	}
	if cfg.StopLoss > 0 {
		b.risk = &StopLoss{Threshold: cfg.StopLoss}
	}
	return b, nil
}

// Name returns the run's name, generated if none was configured.
func (b *Backtest) Name() string { return b.cfg.Name }

// State returns the current lifecycle phase.
func (b *Backtest) State() State { return b.state }

// FinalValue returns the portfolio valuation at the final date. Zero until
// the run reaches COMPLETED.
func (b *Backtest) FinalValue() float64 { return b.finalValue }

// Broker exposes the run's broker, mainly for inspection after completion.
func (b *Backtest) Broker() *broker.SimBroker { return b.broker }

// Run executes the backtest. It may be called once; any error leaves the run
// in the FAILED state and carries the failing date and step.
func (b *Backtest) Run(ctx context.Context) error {
	if b.state != StateInitialized {
		return apperrors.NewValidationError("state", string(b.state), "run already started")
	}
	b.state = StateRunning
	b.logger.Info().
		Time("initial_date", b.cfg.InitialDate).
		Time("final_date", b.cfg.FinalDate).
		Str("asset_class", string(b.cfg.AssetClass)).
		Strs("universe", b.cfg.Universe).
		Msg("Starting backtest")

	info, err := b.loadMarket(ctx)
	if err != nil {
		return b.fail(b.cfg.InitialDate, "load market data", err)
	}

	start := utils.Day(b.cfg.InitialDate)
	end := utils.Day(b.cfg.FinalDate)
	days := int(end.Sub(start).Hours()/24) + 1

	var bar *progressbar.ProgressBar
	if b.cfg.ShowProgress {
		bar = initProgressBar(days)
	}

	for t := start; !t.After(end); t = t.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return b.fail(t, "step", err)
		}
		b.step(t, info)
		if bar != nil {
			bar.Add(1)
		}
	}

	prices := info.Prices(end.AddDate(0, 0, 1))
	b.finalValue = b.broker.Value(prices)

	if err := b.report(); err != nil {
		return b.fail(end, "persist results", err)
	}

	b.state = StateCompleted
	b.logger.Info().Float64("final_value", b.finalValue).Msg("Backtest completed")
	return nil
}

// step processes one simulated day.
func (b *Backtest) step(t time.Time, info *market.Information) {
	prices := info.Prices(t)

	if b.risk != nil {
		b.risk.Apply(t, prices, b.broker, b.logger)
	}

	if !b.cfg.Rule.fires(t) && !b.contractExpiresBy(t) {
		return
	}

	b.logger.Debug().Time("date", t).Msg("Rebalancing portfolio")
	weights := optimizer.Optimize(info.Estimate(t), b.logger)
	b.broker.SellExpiredContracts(t, prices)
	b.broker.SweepExpiredOptions(t)
	b.broker.Rebalance(weights, prices, info.Expiries(t), t)
}

// contractExpiresBy reports whether any held futures position expires within
// the current step, which forces a roll regardless of the calendar rule.
func (b *Backtest) contractExpiresBy(t time.Time) bool {
	for _, pos := range b.broker.Positions() {
		if pos.Expiry.Equal(models.NeverExpires) {
			continue
		}
		if pos.Expiry.Before(t.AddDate(0, 0, 1)) {
			return true
		}
	}
	return false
}

// loadMarket fetches the price table, including the trailing estimation
// window before the initial date, and annotates futures expiries.
func (b *Backtest) loadMarket(ctx context.Context) (*market.Information, error) {
	fetchStart := b.cfg.InitialDate.Add(-b.cfg.Window)
	bars, err := b.source.Fetch(ctx, b.cfg.Universe, fetchStart, b.cfg.FinalDate)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, apperrors.ErrNoData
	}

	if b.cfg.AssetClass == models.AssetCommodities {
		bars, err = roll.Annotate(bars)
		if err != nil {
			return nil, err
		}
	} else {
		for i := range bars {
			bars[i].Expiry = models.NeverExpires
		}
	}
	return market.New(bars, b.cfg.Window), nil
}

func (b *Backtest) fail(date time.Time, step string, err error) error {
	b.state = StateFailed
	execErr := apperrors.NewExecutionError(date, step, err)
	b.logger.Error().Err(err).Time("date", date).Str("step", step).Msg("Backtest failed")
	return execErr
}

func initProgressBar(maxTicks int) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
