package reconciliation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"kesef/internal/domain/document"
	"kesef/internal/domain/transaction"
	"kesef/internal/shared/logger"
)

var (
	reconcileTracer   = otel.Tracer("kesef/reconciliation")
	reconcileMeter    = otel.Meter("kesef/reconciliation")
	reconcileTotal, _ = reconcileMeter.Int64Counter("kesef.reconciliation.total",
		metric.WithDescription("Reconciliation attempts by outcome"))
)

const (
	DefaultAmountTolerance   = 0.02
	DefaultDateToleranceDays = 1
)

const (
	OutcomeMatched = "matched"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Notifier is told about successful reconciliations.
type Notifier interface {
	NotifyReconciled(ctx context.Context, userID int64, creditDocumentID, bankTransactionID string, amount float64) error
}

// Trigger queues a reconciliation to run outside the caller's request.
type Trigger interface {
	TriggerReconcile(ctx context.Context, userID int64, documentID string)
}

// Result describes what a reconciliation attempt did. Reason is set for
// skipped and failed outcomes.
type Result struct {
	UserID            int64   `json:"userId"`
	DocumentID        string  `json:"documentId"`
	Outcome           string  `json:"outcome"`
	Reason            string  `json:"reason,omitempty"`
	BankTransactionID string  `json:"bankTransactionId,omitempty"`
	BankDocumentID    *string `json:"bankDocumentId,omitempty"`
	BillingAmount     float64 `json:"billingAmount,omitempty"`
	ChargedAmount     float64 `json:"chargedAmount,omitempty"`
	Difference        float64 `json:"difference,omitempty"`
	CandidatesFound   int     `json:"candidatesFound"`
	LinkedCount       int64   `json:"linkedCount"`
}

func (r *Result) Matched() bool { return r.Outcome == OutcomeMatched }

type Options struct {
	AmountTolerance   float64
	DateToleranceDays int
}

// Orchestrator merges a credit card statement into the bank charge that
// paid it: the bank row is absorbed and the statement's own transactions
// become the detail of that charge.
type Orchestrator struct {
	transactions transaction.Repository
	documents    document.Repository
	notifier     Notifier
	opts         Options
}

// NewOrchestrator builds an orchestrator. notifier may be nil. Non-positive
// tolerances fall back to the defaults.
func NewOrchestrator(transactions transaction.Repository, documents document.Repository, notifier Notifier, opts Options) *Orchestrator {
	if opts.AmountTolerance <= 0 || opts.AmountTolerance >= 1 {
		opts.AmountTolerance = DefaultAmountTolerance
	}
	if opts.DateToleranceDays <= 0 {
		opts.DateToleranceDays = DefaultDateToleranceDays
	}
	return &Orchestrator{
		transactions: transactions,
		documents:    documents,
		notifier:     notifier,
		opts:         opts,
	}
}

// Reconcile never returns an error; problems are reported in the Result and
// logged. Running it again after a match finds nothing left to absorb.
func (o *Orchestrator) Reconcile(ctx context.Context, userID int64, creditDocumentID string) *Result {
	ctx, span := reconcileTracer.Start(ctx, "reconciliation.reconcile",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.String("document.id", creditDocumentID),
		),
	)
	defer span.End()

	log := logger.FromContext(ctx).With().
		Int64("user_id", userID).
		Str("document_id", creditDocumentID).
		Logger()

	res := o.reconcile(ctx, log, userID, creditDocumentID)

	span.SetAttributes(attribute.String("reconciliation.outcome", res.Outcome))
	reconcileTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", res.Outcome)))

	switch res.Outcome {
	case OutcomeMatched:
		log.Info().
			Str("bank_transaction_id", res.BankTransactionID).
			Float64("difference", res.Difference).
			Int64("linked", res.LinkedCount).
			Msg("credit statement reconciled")
	case OutcomeSkipped:
		log.Debug().Str("reason", res.Reason).Msg("reconciliation skipped")
	default:
		log.Warn().Str("reason", res.Reason).Msg("reconciliation failed")
	}
	return res
}

func (o *Orchestrator) reconcile(ctx context.Context, log zerolog.Logger, userID int64, creditDocumentID string) *Result {
	res := &Result{UserID: userID, DocumentID: creditDocumentID}

	doc, err := o.documents.GetByID(ctx, creditDocumentID)
	if err != nil {
		return res.fail(fmt.Sprintf("load document: %v", err))
	}
	if doc == nil || doc.UserID != userID {
		return res.skip(document.ErrDocumentNotFound.Error())
	}
	if doc.Type != document.TypeCreditStatement {
		return res.skip("not a credit statement")
	}
	if !doc.Billing.Usable() {
		return res.skip("no billing metadata")
	}

	billingDate, err := doc.Billing.BillingDate()
	if err != nil {
		return res.skip(err.Error())
	}
	res.BillingAmount = doc.Billing.NextBillingAmount

	amount := decimal.NewFromFloat(res.BillingAmount)
	tol := decimal.NewFromFloat(o.opts.AmountTolerance)
	one := decimal.NewFromInt(1)
	amountMin, _ := amount.Mul(one.Sub(tol)).Float64()
	amountMax, _ := amount.Mul(one.Add(tol)).Float64()
	window := time.Duration(o.opts.DateToleranceDays) * 24 * time.Hour

	found, err := o.transactions.FindInWindow(ctx, transaction.WindowCriteria{
		UserID:            userID,
		AmountMin:         amountMin,
		AmountMax:         amountMax,
		DateFrom:          billingDate.Add(-window),
		DateTo:            billingDate.Add(window),
		ExcludeDocumentID: creditDocumentID,
	})
	if err != nil {
		return res.fail(fmt.Sprintf("search bank charge: %v", err))
	}

	var candidates []*transaction.Transaction
	for _, t := range found {
		if t.Type != transaction.TypeExpense || t.HasDetails {
			continue
		}
		if LooksLikeCardCharge(t, doc.Billing.CardLast4) {
			candidates = append(candidates, t)
		}
	}
	res.CandidatesFound = len(candidates)
	if len(candidates) == 0 {
		return res.skip("no matching bank charge")
	}

	best := closest(candidates, res.BillingAmount)
	res.BankTransactionID = best.ID
	res.BankDocumentID = best.DocumentID
	res.ChargedAmount = best.Amount
	res.Difference = roundDiff(best.Amount, res.BillingAmount)

	summary := true
	if _, err := o.transactions.Update(ctx, best.ID, transaction.UpdateTransactionParams{IsSummary: &summary}); err != nil {
		return res.fail(fmt.Sprintf("mark bank charge as summary: %v", err))
	}
	if _, err := o.transactions.DeleteBatch(ctx, userID, []string{best.ID}); err != nil {
		return res.fail(fmt.Sprintf("absorb bank charge: %v", err))
	}

	linked, err := o.transactions.MarkDocumentMatched(ctx, userID, creditDocumentID, best.DocumentID)
	if err != nil {
		log.Error().Err(err).
			Str("bank_transaction_id", best.ID).
			Msg("bank charge absorbed but statement rows were not marked matched")
		return res.fail(fmt.Sprintf("mark statement matched: %v", err))
	}
	res.LinkedCount = linked
	res.Outcome = OutcomeMatched

	o.afterMatch(ctx, log, doc, billingDate, res)
	return res
}

// afterMatch runs follow-ups whose failure does not change the result.
func (o *Orchestrator) afterMatch(ctx context.Context, log zerolog.Logger, doc *document.Document, billingDate time.Time, res *Result) {
	n, err := o.documents.ResolveMissingRequests(ctx, document.ResolveCriteria{
		UserID:      doc.UserID,
		CardLast4:   doc.Billing.CardLast4,
		PeriodMonth: time.Date(billingDate.Year(), billingDate.Month(), 1, 0, 0, 0, 0, time.UTC),
		DocumentID:  doc.ID,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve missing document requests")
	} else if n > 0 {
		log.Debug().Int64("resolved", n).Msg("missing document requests resolved")
	}

	if o.notifier == nil {
		return
	}
	if err := o.notifier.NotifyReconciled(ctx, doc.UserID, doc.ID, res.BankTransactionID, res.ChargedAmount); err != nil {
		log.Error().Err(err).Msg("failed to send reconciliation notification")
	}
}

// closest returns the candidate whose amount is nearest to target. The
// earliest candidate wins ties.
func closest(candidates []*transaction.Transaction, target float64) *transaction.Transaction {
	best := candidates[0]
	bestDiff := math.Abs(best.Amount - target)
	for _, c := range candidates[1:] {
		if d := math.Abs(c.Amount - target); d < bestDiff {
			best, bestDiff = c, d
		}
	}
	return best
}

func roundDiff(a, b float64) float64 {
	v, _ := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs().Round(2).Float64()
	return v
}

func (r *Result) skip(reason string) *Result {
	r.Outcome = OutcomeSkipped
	r.Reason = reason
	return r
}

func (r *Result) fail(reason string) *Result {
	r.Outcome = OutcomeFailed
	r.Reason = reason
	return r
}
