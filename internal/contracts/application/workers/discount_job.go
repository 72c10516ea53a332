// Package workers holds the periodic contract jobs.
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	billing "github.com/felixgeelhaar/covera/internal/billing/domain"
	"github.com/felixgeelhaar/covera/internal/contracts/domain"
	customerDomain "github.com/felixgeelhaar/covera/internal/customers/domain"
	provisioning "github.com/felixgeelhaar/covera/internal/provisioning/domain"
	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/lock"
	telemetry "github.com/felixgeelhaar/covera/internal/telemetry/domain"
	"github.com/felixgeelhaar/covera/pkg/observability"
	"github.com/shopspring/decimal"
)

// ErrJobAlreadyRunning is returned when another run holds the job lock.
var ErrJobAlreadyRunning = errors.New("discount job is already running")

const (
	// DiscountLockKey is the lock held for the duration of a run.
	DiscountLockKey = "covera:jobs:discount"

	// DefaultDiscountLockTTL bounds a run that dies without releasing the lock.
	DefaultDiscountLockTTL = 30 * time.Minute

	discountPageSize = 10
)

// baselineScore is the driver behaviour score that earns no discount.
var baselineScore = decimal.NewFromInt(50)

// Outcome is what happened to one contract during a run.
type Outcome string

const (
	OutcomeApplied    Outcome = "applied"
	OutcomeNoDiscount Outcome = "no_discount"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeFailed     Outcome = "failed"
)

// Report summarizes a run.
type Report struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Visited     int
	Applied     int
	NoDiscount  int
	Skipped     int
	Failed      int
}

func (r *Report) count(o Outcome) {
	r.Visited++
	switch o {
	case OutcomeApplied:
		r.Applied++
	case OutcomeNoDiscount:
		r.NoDiscount++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
	observability.DiscountsApplied.WithLabelValues(string(o)).Inc()
}

// DiscountJob applies usage based discounts to every active contract.
type DiscountJob struct {
	contracts domain.Repository
	customers customerDomain.Repository
	fleet     provisioning.Fleet
	scores    telemetry.Reader
	gateway   billing.PaymentGateway
	locker    lock.Locker
	lockTTL   time.Duration
	logger    *slog.Logger
}

// NewDiscountJob creates a discount job. A zero lockTTL uses DefaultDiscountLockTTL.
func NewDiscountJob(
	contracts domain.Repository,
	customers customerDomain.Repository,
	fleet provisioning.Fleet,
	scores telemetry.Reader,
	gateway billing.PaymentGateway,
	locker lock.Locker,
	lockTTL time.Duration,
	logger *slog.Logger,
) *DiscountJob {
	if logger == nil {
		logger = slog.Default()
	}
	if lockTTL <= 0 {
		lockTTL = DefaultDiscountLockTTL
	}
	return &DiscountJob{
		contracts: contracts,
		customers: customers,
		fleet:     fleet,
		scores:    scores,
		gateway:   gateway,
		locker:    locker,
		lockTTL:   lockTTL,
		logger:    logger,
	}
}

// Run visits the active contracts newest first and applies the discount
// earned over [periodStart, periodEnd]. Per contract failures are logged and
// counted, they do not stop the run.
func (j *DiscountJob) Run(ctx context.Context, periodStart, periodEnd time.Time) (Report, error) {
	report := Report{PeriodStart: periodStart, PeriodEnd: periodEnd}

	release, err := j.locker.Acquire(ctx, DiscountLockKey, j.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLockHeld) {
			observability.DiscountRuns.WithLabelValues("skipped").Inc()
			return report, ErrJobAlreadyRunning
		}
		observability.DiscountRuns.WithLabelValues("failed").Inc()
		return report, fmt.Errorf("acquire discount lock: %w", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			j.logger.WarnContext(ctx, "failed to release discount lock", "error", err)
		}
	}()

	j.logger.InfoContext(ctx, "discount job started", "period_start", periodStart, "period_end", periodEnd)

	active := domain.StatusActive
	filter := domain.Filter{Status: &active}
	page := sharedDomain.Page{Start: 0, Limit: discountPageSize}
	for {
		if err := ctx.Err(); err != nil {
			observability.DiscountRuns.WithLabelValues("canceled").Inc()
			return report, err
		}

		contracts, _, err := j.contracts.List(ctx, filter, page, sharedDomain.SortDesc)
		if err != nil {
			observability.DiscountRuns.WithLabelValues("failed").Inc()
			return report, fmt.Errorf("list active contracts at %d: %w", page.Start, err)
		}
		if len(contracts) == 0 {
			break
		}
		for _, contract := range contracts {
			report.count(j.discount(ctx, contract, periodStart, periodEnd))
		}
		page = page.Next()
	}

	observability.DiscountRuns.WithLabelValues("completed").Inc()
	j.logger.InfoContext(ctx, "discount job completed",
		"visited", report.Visited,
		"applied", report.Applied,
		"no_discount", report.NoDiscount,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report, nil
}

func (j *DiscountJob) discount(ctx context.Context, contract *domain.Contract, start, end time.Time) Outcome {
	log := j.logger.With("contract_id", contract.ID(), "ref", contract.Ref())

	customer, err := j.customers.FindByID(ctx, contract.Customer())
	if err != nil {
		if errors.Is(err, customerDomain.ErrCustomerNotFound) {
			log.WarnContext(ctx, "contract customer not found, skipping")
			return OutcomeSkipped
		}
		log.ErrorContext(ctx, "failed to load contract customer", "error", err)
		return OutcomeFailed
	}
	gatewayCustomerID := customer.GatewayCustomerID()
	if gatewayCustomerID == "" {
		log.WarnContext(ctx, "customer has no gateway account, skipping", "customer_id", customer.ID())
		return OutcomeSkipped
	}

	average, ok, err := j.averageScore(ctx, contract, start, end)
	if err != nil {
		log.ErrorContext(ctx, "failed to average driver behaviour", "error", err)
		return OutcomeFailed
	}
	if !ok {
		log.DebugContext(ctx, "no driver behaviour in period, skipping")
		return OutcomeSkipped
	}

	percent := average.Sub(baselineScore).Round(2)
	if !percent.IsPositive() {
		log.DebugContext(ctx, "no discount earned", "average", average.String())
		return OutcomeNoDiscount
	}

	key := billing.DiscountKey(contract.ID(), start, end)
	if err := j.gateway.ApplyDiscount(ctx, gatewayCustomerID, contract.ID(), percent, contract.Gateway(), key); err != nil {
		log.ErrorContext(ctx, "failed to apply discount", "percent", percent.String(), "error", err)
		return OutcomeFailed
	}
	log.InfoContext(ctx, "discount applied", "average", average.String(), "percent", percent.String())
	return OutcomeApplied
}

// averageScore is the unweighted mean of the vehicle averages that have at
// least one session in the period.
func (j *DiscountJob) averageScore(ctx context.Context, contract *domain.Contract, start, end time.Time) (decimal.Decimal, bool, error) {
	vins, err := j.fleet.VehicleVINs(ctx, contract.ID())
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("vehicles of contract %s: %w", contract.ID(), err)
	}

	sum, n := decimal.Zero, 0
	for _, vin := range vins {
		avg, ok, err := j.scores.AverageDriverBehaviour(ctx, vin, start, end)
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("driver behaviour of %s: %w", vin, err)
		}
		if ok {
			sum = sum.Add(decimal.NewFromFloat(avg))
			n++
		}
	}
	if n == 0 {
		return decimal.Zero, false, nil
	}
	return sum.Div(decimal.NewFromInt(int64(n))), true, nil
}
