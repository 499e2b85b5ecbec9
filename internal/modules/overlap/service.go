package overlap

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/aristath/fundoverlap/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultResolveTimeout bounds a single fund's holdings resolution
const DefaultResolveTimeout = 5 * time.Second

// DefaultResolveGrace is how long past its deadline a resolver may take to
// return its own fallback before the service builds one
const DefaultResolveGrace = 250 * time.Millisecond

// ServiceConfig holds the tunables of the analysis service
type ServiceConfig struct {
	ResolveTimeout time.Duration // per-fund; zero means DefaultResolveTimeout
	ResolveGrace   time.Duration // zero means DefaultResolveGrace
	MatchMode      MatchMode     // default mode; empty means MatchByName
	StateObserver  StateObserver // optional
}

// Service orchestrates an overlap analysis: concurrent per-fund resolution,
// a join barrier, then aggregation, scoring and the sector matrix.
type Service struct {
	resolver       domain.HoldingsResolver
	fallback       domain.FallbackHoldingsProvider
	resolveTimeout time.Duration
	resolveGrace   time.Duration
	matchMode      MatchMode
	observer       StateObserver
	now            func() time.Time
	log            zerolog.Logger
}

// NewService creates a new overlap analysis service.
// fallback covers resolutions the resolver itself could not finish (panic or
// timeout); it may be nil, in which case such funds contribute no holdings.
func NewService(
	resolver domain.HoldingsResolver,
	fallback domain.FallbackHoldingsProvider,
	cfg ServiceConfig,
	log zerolog.Logger,
) *Service {
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = DefaultResolveTimeout
	}
	if cfg.ResolveGrace <= 0 {
		cfg.ResolveGrace = DefaultResolveGrace
	}
	if cfg.MatchMode == "" {
		cfg.MatchMode = MatchByName
	}

	return &Service{
		resolver:       resolver,
		fallback:       fallback,
		resolveTimeout: cfg.ResolveTimeout,
		resolveGrace:   cfg.ResolveGrace,
		matchMode:      cfg.MatchMode,
		observer:       cfg.StateObserver,
		now:            time.Now,
		log:            log.With().Str("component", "overlap_service").Logger(),
	}
}

// MatchMode returns the service's default match mode
func (s *Service) MatchMode() MatchMode {
	return s.matchMode
}

// AnalyzeOverlap analyzes the selected funds with the default match mode.
// The only error it returns is an InvalidSelectionError.
func (s *Service) AnalyzeOverlap(ctx context.Context, fundIDs []string) (*OverlapReport, error) {
	return s.AnalyzeOverlapWithMode(ctx, fundIDs, s.matchMode)
}

// AnalyzeOverlapWithMode analyzes the selected funds with an explicit match mode
func (s *Service) AnalyzeOverlapWithMode(ctx context.Context, fundIDs []string, mode MatchMode) (*OverlapReport, error) {
	if mode == "" {
		mode = s.matchMode
	}

	a := &analysis{id: uuid.NewString(), state: StateIdle, observer: s.observer}
	log := s.log.With().Str("analysis_id", a.id).Logger()

	if err := ValidateSelection(fundIDs); err != nil {
		a.advance(StateFailed)
		log.Debug().Err(err).Msg("Rejected fund selection")
		return nil, err
	}

	a.advance(StateResolving)
	log.Debug().Strs("fund_ids", fundIDs).Msg("Resolving holdings")
	resolved := s.resolveAll(ctx, fundIDs, log)

	a.advance(StateAggregating)
	agg, err := Aggregate(resolved, mode)
	if err != nil {
		// ValidateSelection guarantees at least MinFunds lists
		return nil, err
	}

	a.advance(StateScoring)
	scores := Score(agg, resolved)
	sectors := BuildSectorAllocation(agg)

	fallbackIDs := make([]string, 0)
	for _, fh := range resolved {
		if fh.IsFallback() {
			fallbackIDs = append(fallbackIDs, fh.FundID)
		}
	}
	sort.Strings(fallbackIDs)

	report := &OverlapReport{
		ID:                   a.id,
		FundIDs:              append([]string(nil), fundIDs...),
		MatchMode:            mode,
		CommonHoldings:       scores.CommonHoldings,
		OverlapPercent:       scores.OverlapPercent,
		DiversificationScore: scores.DiversificationScore,
		UniqueHoldingsByFund: scores.UniqueHoldingsByFund,
		SectorAllocation:     sectors,
		FallbackFundIDs:      fallbackIDs,
		GeneratedAt:          s.now().UTC(),
	}

	a.advance(StateComplete)
	log.Info().
		Int("funds", len(fundIDs)).
		Int("common_holdings", len(report.CommonHoldings)).
		Float64("overlap_pct", report.OverlapPercent).
		Strs("fallback_funds", fallbackIDs).
		Msg("Overlap analysis complete")

	return report, nil
}

// ValidateSelection checks the analysis precondition: between MinFunds and
// MaxFunds IDs, none blank, all distinct
func ValidateSelection(fundIDs []string) error {
	if len(fundIDs) < MinFunds || len(fundIDs) > MaxFunds {
		return InvalidSelectionError{
			Reason: "select between 2 and 5 funds",
			Count:  len(fundIDs),
		}
	}

	seen := make(map[string]bool, len(fundIDs))
	for _, id := range fundIDs {
		if strings.TrimSpace(id) == "" {
			return InvalidSelectionError{Reason: "fund id must not be blank", Count: len(fundIDs)}
		}
		if seen[id] {
			return InvalidSelectionError{Reason: "duplicate fund id", Count: len(fundIDs), Duplicate: id}
		}
		seen[id] = true
	}
	return nil
}

// resolveAll resolves every fund concurrently and returns only once all of
// them have produced a result. Each goroutine writes its own slot.
func (s *Service) resolveAll(ctx context.Context, fundIDs []string, log zerolog.Logger) []domain.FundHoldings {
	results := make([]domain.FundHoldings, len(fundIDs))

	g, gctx := errgroup.WithContext(ctx)
	for i, fundID := range fundIDs {
		i, fundID := i, fundID
		g.Go(func() error {
			results[i] = s.resolveOne(gctx, fundID, log)
			return nil // per-fund failures are absorbed as fallbacks
		})
	}
	_ = g.Wait()

	return results
}

// resolveOne runs a single resolution under its own timeout. The resolver
// owns the deadline and answers it with its own fallback. The service only
// builds one when the resolver panics or is still running after the grace
// period.
func (s *Service) resolveOne(ctx context.Context, fundID string, log zerolog.Logger) domain.FundHoldings {
	rctx, cancel := context.WithTimeout(ctx, s.resolveTimeout)
	defer cancel()

	backstop := time.NewTimer(s.resolveTimeout + s.resolveGrace)
	defer backstop.Stop()

	done := make(chan domain.FundHoldings, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("fund_id", fundID).
					Interface("panic", r).
					Msg("Holdings resolver panicked, using fallback holdings")
				done <- s.fallbackHoldings(fundID)
			}
		}()
		done <- s.resolver.Resolve(rctx, fundID)
	}()

	select {
	case fh := <-done:
		fh.FundID = fundID
		if fh.Source == "" {
			fh.Source = domain.SourceResolved
		}
		if fh.IsFallback() {
			log.Warn().Str("fund_id", fundID).Msg("Using fallback holdings")
		}
		return fh
	case <-backstop.C:
		log.Warn().
			Err(rctx.Err()).
			Str("fund_id", fundID).
			Dur("timeout", s.resolveTimeout).
			Msg("Holdings resolver ignored its deadline, using fallback holdings")
		return s.fallbackHoldings(fundID)
	}
}

func (s *Service) fallbackHoldings(fundID string) domain.FundHoldings {
	var holdings []domain.Holding
	if s.fallback != nil {
		holdings = s.fallback.FallbackHoldings(fundID, "")
	}
	return domain.FundHoldings{
		FundID:   fundID,
		Holdings: holdings,
		Source:   domain.SourceFallback,
	}
}
