package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agencydesk/backend/internal/domain/billing"
	"github.com/agencydesk/backend/internal/domain/identity"
	"github.com/agencydesk/backend/internal/domain/jobrun"
	"github.com/agencydesk/backend/internal/domain/notification"
	"github.com/agencydesk/backend/internal/domain/shared"
	"github.com/agencydesk/backend/internal/infrastructure/telemetry"
)

// JobName identifies the installment lifecycle job in the run ledger
const JobName = "installment_lifecycle"

// PipelineService is the orchestrator of the installment lifecycle run:
// per agency it applies due-date transitions, queries reminder candidates,
// deduplicates and delivers notifications, then finalizes one ledger entry
// for the whole invocation. Agency-level failures are collected, not fatal.
type PipelineService struct {
	agencies      identity.AgencyRepository
	installments  billing.InstallmentRepository
	notifications notification.Repository
	runs          jobrun.Repository
	executor      *DeliveryExecutor
	logger        *zap.Logger
	now           func() time.Time
}

// NewPipelineService creates the pipeline orchestrator
func NewPipelineService(
	agencies identity.AgencyRepository,
	installments billing.InstallmentRepository,
	notifications notification.Repository,
	runs jobrun.Repository,
	executor *DeliveryExecutor,
	logger *zap.Logger,
) *PipelineService {
	return &PipelineService{
		agencies:      agencies,
		installments:  installments,
		notifications: notifications,
		runs:          runs,
		executor:      executor,
		logger:        logger,
		now:           time.Now,
	}
}

// WithNow overrides the reference-instant source, for tests
func (s *PipelineService) WithNow(now func() time.Time) *PipelineService {
	s.now = now
	return s
}

// RunOnce executes one pipeline invocation and returns its summary.
// Concurrent invocations are tolerated: the transition batch is idempotent
// and notification creation is guarded by the (installment, kind)
// uniqueness constraint.
func (s *PipelineService) RunOnce(ctx context.Context) (*RunSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "automation", "run_once")
	defer span.End()

	run, err := jobrun.StartRun(JobName)
	if err != nil {
		return nil, err
	}
	if err := s.runs.Create(ctx, run); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("creating run ledger entry: %w", err)
	}

	agencies, err := s.agencies.FindActive(ctx)
	if err != nil {
		_ = run.Fail(err)
		if saveErr := s.runs.Save(ctx, run); saveErr != nil {
			s.logger.Error("failed to finalize run ledger entry", zap.Error(saveErr))
		}
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("listing active agencies: %w", err)
	}

	now := s.now()
	var (
		totalUpdated int64
		totalSent    int
		totalFailed  int
		metadata     jobrun.RunMetadata
	)
	for i := range agencies {
		outcome := s.processAgency(ctx, &agencies[i], now)
		totalUpdated += outcome.UpdatedCount
		totalSent += outcome.NotificationsSent
		totalFailed += outcome.NotificationsFailed
		metadata = append(metadata, outcome)
	}

	if metadata.AllFailed() {
		cause := fmt.Errorf("transition batch failed for every agency: %s", joinAgencyErrors(metadata))
		if err := run.FailWithResults(totalUpdated, totalSent, totalFailed, metadata, cause); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if err := s.runs.Save(ctx, run); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("finalizing run ledger entry: %w", err)
		}
		telemetry.RecordError(span, cause)
		s.logger.Error("pipeline run failed for every agency",
			zap.String("run_id", run.ID.String()),
			zap.Int("agencies", len(agencies)),
			zap.Error(cause))
		return summaryFromRun(run), nil
	}

	if err := run.Complete(totalUpdated, totalSent, totalFailed, metadata); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.runs.Save(ctx, run); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("finalizing run ledger entry: %w", err)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrJobRunID, run.ID.String(),
		"agencies", len(agencies),
		"records_updated", totalUpdated,
		"notifications_sent", totalSent,
		"notifications_failed", totalFailed,
	)
	s.logger.Info("pipeline run completed",
		zap.String("run_id", run.ID.String()),
		zap.Int("agencies", len(agencies)),
		zap.Int64("records_updated", totalUpdated),
		zap.Int("notifications_sent", totalSent),
		zap.Int("notifications_failed", totalFailed),
		zap.Duration("duration", run.Duration()))
	return summaryFromRun(run), nil
}

// joinAgencyErrors flattens the per-agency errors into one ledger error line
func joinAgencyErrors(metadata jobrun.RunMetadata) string {
	parts := make([]string, 0, len(metadata))
	for _, outcome := range metadata {
		parts = append(parts, fmt.Sprintf("%s: %s", outcome.AgencyCode, outcome.Error))
	}
	return strings.Join(parts, "; ")
}

// processAgency runs the transition batch and reminder steps for one
// agency under its own clock. Transitions are applied before overdue
// candidates are queried so a same-run transition is visible to the
// notification step.
func (s *PipelineService) processAgency(ctx context.Context, agency *identity.Agency, now time.Time) jobrun.AgencyOutcome {
	outcome := jobrun.AgencyOutcome{AgencyID: agency.ID, AgencyCode: agency.Code}
	clock := billing.ClockFor(agency.Settings)
	localToday := clock.LocalToday(now)

	batch, err := s.installments.TransitionDueInstallments(ctx, agency.ID, localToday, clock.CutoffPassed(now))
	if err != nil {
		s.logger.Error("transition batch failed",
			zap.String("agency_id", agency.ID.String()),
			zap.Error(err))
		outcome.Error = err.Error()
		return outcome
	}
	outcome.UpdatedCount = batch.UpdatedCount
	outcome.Transitions = batch.Transitions

	dueSoon, err := s.installments.FindDueOn(ctx, agency.ID, clock.LocalTomorrow(now))
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	overdue, err := s.installments.FindOverdue(ctx, agency.ID)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	sent, failed := s.notify(ctx, agency, dueSoon, notification.KindDueSoon)
	outcome.NotificationsSent += sent
	outcome.NotificationsFailed += failed

	sent, failed = s.notify(ctx, agency, overdue, notification.KindOverdue)
	outcome.NotificationsSent += sent
	outcome.NotificationsFailed += failed
	return outcome
}

// notify routes each candidate through dedup and delivery, then records
// the outcome. A uniqueness-constraint violation on the insert means a
// concurrent run already recorded this (installment, kind) and is treated
// as already sent.
func (s *PipelineService) notify(ctx context.Context, agency *identity.Agency, candidates []billing.ReminderCandidate, kind notification.Kind) (sent, failed int) {
	for i := range candidates {
		candidate := &candidates[i]

		exists, err := s.notifications.Exists(ctx, agency.ID, candidate.InstallmentID, kind)
		if err != nil {
			s.logger.Error("dedup check failed",
				zap.String("installment_id", candidate.InstallmentID.String()),
				zap.String("kind", string(kind)),
				zap.Error(err))
			continue
		}
		if exists {
			continue
		}

		recipient := candidate.StudentEmail
		recipientName := candidate.StudentName
		if recipient == "" {
			recipient = agency.ContactEmail
			recipientName = agency.Name
		}
		record, err := notification.NewRecord(agency.ID, candidate.InstallmentID, recipient, recipientName, kind)
		if err != nil {
			s.logger.Warn("skipping unnotifiable installment",
				zap.String("installment_id", candidate.InstallmentID.String()),
				zap.String("kind", string(kind)),
				zap.Error(err))
			continue
		}

		outcome := s.executor.Deliver(ctx, composeMessage(agency, candidate, kind))
		if outcome.Sent {
			record.MarkSent(s.now())
		} else {
			record.MarkFailed(outcome.Err.Error())
		}

		if err := s.notifications.Create(ctx, record); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				s.logger.Debug("notification already recorded by a concurrent run",
					zap.String("installment_id", candidate.InstallmentID.String()),
					zap.String("kind", string(kind)))
			} else {
				s.logger.Error("failed to persist notification record",
					zap.String("installment_id", candidate.InstallmentID.String()),
					zap.Error(err))
			}
			continue
		}
		if outcome.Sent {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed
}

func composeMessage(agency *identity.Agency, candidate *billing.ReminderCandidate, kind notification.Kind) notification.Message {
	name := candidate.StudentName
	if name == "" {
		name = "student"
	}
	due := candidate.DueDate.Format("2 January 2006")
	outstanding := candidate.Outstanding.StringFixed(2)

	var subject, body string
	switch kind {
	case notification.KindDueSoon:
		subject = fmt.Sprintf("Payment reminder: installment %d due %s", candidate.Sequence, due)
		body = fmt.Sprintf(
			"Dear %s,\n\nThis is a reminder that installment %d of your payment plan is due on %s. The outstanding amount is %s.\n\nKind regards,\n%s",
			name, candidate.Sequence, due, outstanding, agency.Name)
	case notification.KindOverdue:
		subject = fmt.Sprintf("Overdue payment: installment %d was due %s", candidate.Sequence, due)
		body = fmt.Sprintf(
			"Dear %s,\n\nInstallment %d of your payment plan was due on %s and remains unpaid. The outstanding amount is %s. Please arrange payment as soon as possible.\n\nKind regards,\n%s",
			name, candidate.Sequence, due, outstanding, agency.Name)
	}

	to := candidate.StudentEmail
	toName := candidate.StudentName
	if to == "" {
		to = agency.ContactEmail
		toName = agency.Name
	}
	return notification.Message{To: to, ToName: toName, Subject: subject, Body: body}
}
