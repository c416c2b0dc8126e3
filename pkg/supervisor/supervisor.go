// Package supervisor implements the orchestration core: single-label request
// routing, capability negotiation per turn, the suspension and resume state
// machine, and pending interrupt expiry. It is the only component that talks
// to the checkpoint store, the executors, and the UI event channel together.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"concierge/pkg/capability"
	"concierge/pkg/config"
	"concierge/pkg/contextmgr"
	"concierge/pkg/eventlog"
	"concierge/pkg/executor"
	"concierge/pkg/ledger"
	"concierge/pkg/logx"
	"concierge/pkg/metrics"
	"concierge/pkg/proto"
	"concierge/pkg/uievent"
)

// Supervisor routes turns to domain executors and coordinates resume
// decisions against the interrupt ledger.
type Supervisor struct {
	cfg      *config.Config
	store    *ledger.Store
	registry *capability.Registry
	exec     executor.DomainExecutor

	classifier *Classifier
	locks      *sessionLocks
	events     *uievent.Channel
	audit      *eventlog.Writer
	recorder   metrics.Recorder
	logger     *logx.Logger
}

// New creates a supervisor. The audit writer may be nil to disable the
// JSONL trail (tests); everything else is required.
func New(cfg *config.Config, store *ledger.Store, registry *capability.Registry,
	exec executor.DomainExecutor, events *uievent.Channel, audit *eventlog.Writer,
	recorder metrics.Recorder) *Supervisor {

	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}

	return &Supervisor{
		cfg:        cfg,
		store:      store,
		registry:   registry,
		exec:       exec,
		classifier: NewClassifier(cfg.Domains),
		locks:      newSessionLocks(),
		events:     events,
		audit:      audit,
		recorder:   recorder,
		logger:     logx.NewLogger("supervisor"),
	}
}

// Route handles one inbound turn: classify, negotiate capabilities, delegate
// to the domain executor, and persist the outcome. Exactly one of the
// returned values is non-nil.
func (s *Supervisor) Route(ctx context.Context, req proto.TurnRequest) (*proto.TurnResponse, error) {
	start := time.Now()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = proto.GenerateSessionID()
	}

	if !s.locks.TryAcquire(sessionID) {
		return nil, &proto.SessionBusyError{SessionID: sessionID}
	}
	defer s.locks.Release(sessionID)

	session, err := s.store.EnsureSession(sessionID)
	if err != nil {
		return nil, err
	}

	// A fresh turn never displaces a pending approval: the session's one
	// in-flight question has to be answered or cancelled first.
	pending, err := s.store.PendingInterrupt(sessionID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		text := fmt.Sprintf("There's a pending approval for %s on this session. "+
			"Please approve, edit, or reject it before starting a new request.", pending.Action.Name)
		response := proto.Completed(text)
		response.InterruptID = pending.ID
		s.recorder.ObserveTurn(string(session.Domain), "pending_blocked", time.Since(start))
		return response, nil
	}

	domain, classified := s.classifier.Classify(req.RequestText)
	if !classified {
		// Unknown domain is conversation content, not an error.
		text := "I can help with WiFi and network issues, or with finding and watching video content. " +
			"Which of those can I help you with?"
		s.appendExchange(sessionID, req.RequestText, text)
		s.recorder.ObserveTurn("unknown", "completed", time.Since(start))
		s.writeAudit(proto.RecordTurn, sessionID, map[string]any{
			"text":    req.RequestText,
			"domain":  "unknown",
			"outcome": "completed",
		})
		return proto.Completed(text), nil
	}

	if session.Domain != domain {
		if err := s.store.BindDomain(sessionID, domain); err != nil {
			return nil, err
		}
	}

	history, err := s.loadContext(sessionID)
	if err != nil {
		return nil, err
	}

	toolSet := s.registry.Resolve(req.AdvertisedToolNames, domain)
	s.logger.Info("session %s: domain %s, %d effective tool(s)", sessionID, domain, toolSet.Len())

	outcome, err := s.exec.Run(ctx, executor.Request{
		SessionID: sessionID,
		Domain:    domain,
		Text:      req.RequestText,
		Context:   history,
		Tools:     toolSet,
	})
	if err != nil {
		return nil, fmt.Errorf("executor failed for session %s: %w", sessionID, err)
	}

	response, err := s.applyOutcome(sessionID, domain, req.RequestText, outcome)
	if err != nil {
		return nil, err
	}

	s.recorder.ObserveTurn(string(domain), string(response.Kind), time.Since(start))
	s.writeAudit(proto.RecordTurn, sessionID, map[string]any{
		"text":         req.RequestText,
		"domain":       string(domain),
		"outcome":      string(response.Kind),
		"interrupt_id": response.InterruptID,
	})
	return response, nil
}

// Resume applies a decision to a pending interrupt exactly once and re-enters
// the suspended execution.
func (s *Supervisor) Resume(ctx context.Context, req proto.ResumeRequest) (*proto.TurnResponse, error) {
	start := time.Now()

	if err := req.Decision.Validate(); err != nil {
		return nil, err
	}

	interrupt, err := s.store.GetInterrupt(req.InterruptID)
	if err != nil {
		return nil, err
	}
	sessionID := interrupt.SessionID

	if !s.locks.TryAcquire(sessionID) {
		return nil, &proto.SessionBusyError{SessionID: sessionID}
	}
	defer s.locks.Release(sessionID)

	// Resolve before executing: the compare-and-swap is what makes a
	// concurrent duplicate decision lose instead of double-firing the tool.
	// The flip side: an infrastructure error from the executor after this
	// point loses the approval, and the client must start a fresh turn. The
	// gated effect has not run at that point, so a fresh turn is safe.
	if err := s.store.ResolveInterrupt(req.InterruptID); err != nil {
		return nil, err
	}

	domain := interrupt.Token.Domain
	toolSet := s.registry.Resolve(req.AdvertisedToolNames, domain)

	action := interrupt.Token.Pending
	if req.Decision.Kind != proto.DecisionReject {
		action = action.WithOverrides(req.Decision.OverriddenArgs)
	}

	outcome, err := s.exec.Resume(ctx, executor.ResumeRequest{
		SessionID: sessionID,
		Domain:    domain,
		Action:    action,
		Decision:  req.Decision,
		Context:   interrupt.Token.Context,
		Tools:     toolSet,
	})
	if err != nil {
		return nil, fmt.Errorf("resume failed for interrupt %s: %w", req.InterruptID, err)
	}

	response, err := s.applyResumeOutcome(sessionID, domain, outcome)
	if err != nil {
		return nil, err
	}

	s.recorder.IncDecision(string(req.Decision.Kind), string(response.Kind))
	s.writeAudit(proto.RecordResume, sessionID, map[string]any{
		"interrupt_id": req.InterruptID,
		"decision":     string(req.Decision.Kind),
		"action":       interrupt.Action.Name,
		"outcome":      string(response.Kind),
	})
	s.logger.Info("interrupt %s resumed with %s in %v", req.InterruptID, req.Decision.Kind, time.Since(start))
	return response, nil
}

// Cancel abandons a pending interrupt without a decision. The underlying tool
// never runs.
func (s *Supervisor) Cancel(interruptID string) error {
	if err := s.store.AbandonInterrupt(interruptID); err != nil {
		return err
	}
	s.refreshPendingGauge()
	return nil
}

// applyOutcome persists a fresh turn's outcome and builds the response.
func (s *Supervisor) applyOutcome(sessionID string, domain proto.Domain, requestText string, outcome *executor.Outcome) (*proto.TurnResponse, error) {
	switch outcome.Kind {
	case proto.ResponseSuspended:
		interruptID := proto.GenerateInterruptID()
		interrupt := &proto.Interrupt{
			ID:        interruptID,
			SessionID: sessionID,
			Action:    *outcome.Pending,
			Token: proto.ResumeToken{
				SessionID:   sessionID,
				InterruptID: interruptID,
				Domain:      domain,
				Pending:     *outcome.Pending,
				Context:     outcome.Context,
			},
			Status:    proto.InterruptPending,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.store.CreateInterrupt(interrupt); err != nil {
			return nil, err
		}
		if err := s.store.AppendMessage(sessionID, "user", requestText); err != nil {
			return nil, err
		}
		s.emitUIEvents(sessionID, outcome.UIEvents)
		s.refreshPendingGauge()
		return proto.Suspended(interruptID, *outcome.Pending), nil

	case proto.ResponseCompleted:
		s.appendExchange(sessionID, requestText, outcome.Text)
		s.emitUIEvents(sessionID, outcome.UIEvents)
		return proto.Completed(outcome.Text), nil
	}

	return nil, fmt.Errorf("executor returned unknown outcome kind %q", outcome.Kind)
}

// applyResumeOutcome persists a resume outcome. A suspended outcome here is a
// chained approval: the previous interrupt is already resolved, so creating
// the next pending one preserves at most one pending per session.
func (s *Supervisor) applyResumeOutcome(sessionID string, domain proto.Domain, outcome *executor.Outcome) (*proto.TurnResponse, error) {
	switch outcome.Kind {
	case proto.ResponseSuspended:
		interruptID := proto.GenerateInterruptID()
		interrupt := &proto.Interrupt{
			ID:        interruptID,
			SessionID: sessionID,
			Action:    *outcome.Pending,
			Token: proto.ResumeToken{
				SessionID:   sessionID,
				InterruptID: interruptID,
				Domain:      domain,
				Pending:     *outcome.Pending,
				Context:     outcome.Context,
			},
			Status:    proto.InterruptPending,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.store.CreateInterrupt(interrupt); err != nil {
			return nil, err
		}
		s.emitUIEvents(sessionID, outcome.UIEvents)
		s.refreshPendingGauge()
		return proto.Suspended(interruptID, *outcome.Pending), nil

	case proto.ResponseCompleted:
		if err := s.store.AppendMessage(sessionID, "assistant", outcome.Text); err != nil {
			return nil, err
		}
		s.emitUIEvents(sessionID, outcome.UIEvents)
		s.refreshPendingGauge()
		return proto.Completed(outcome.Text), nil
	}

	return nil, fmt.Errorf("executor returned unknown outcome kind %q", outcome.Kind)
}

// loadContext reads persisted history through the compaction budget.
func (s *Supervisor) loadContext(sessionID string) ([]proto.ContextMessage, error) {
	history, err := s.store.GetMessages(sessionID)
	if err != nil {
		return nil, err
	}
	cm := contextmgr.NewContextManager(s.cfg.Context.MaxTokens)
	cm.Load(history)
	cm.CompactIfNeeded()
	return cm.Messages(), nil
}

func (s *Supervisor) appendExchange(sessionID, userText, assistantText string) {
	if err := s.store.AppendMessage(sessionID, "user", userText); err != nil {
		s.logger.Error("failed to persist user message for session %s: %v", sessionID, err)
	}
	if err := s.store.AppendMessage(sessionID, "assistant", assistantText); err != nil {
		s.logger.Error("failed to persist assistant message for session %s: %v", sessionID, err)
	}
}

// emitUIEvents pushes rendering hints to the UI channel. Best-effort only:
// nothing here can fail the turn.
func (s *Supervisor) emitUIEvents(sessionID string, uiEvents []proto.UIEvent) {
	for _, event := range uiEvents {
		event.SessionID = sessionID
		delivered := s.events.SubscriberCount(sessionID) > 0
		s.events.Emit(event)
		s.recorder.IncUIEvent(event.Name, delivered)
		s.writeAudit(proto.RecordUIEvent, sessionID, map[string]any{
			"name":      event.Name,
			"delivered": delivered,
		})
	}
}

func (s *Supervisor) refreshPendingGauge() {
	count, err := s.store.CountPending()
	if err != nil {
		s.logger.Warn("failed to count pending interrupts: %v", err)
		return
	}
	s.recorder.SetPendingInterrupts(count)
}

func (s *Supervisor) writeAudit(recordType proto.RecordType, sessionID string, payload map[string]any) {
	if s.audit == nil {
		return
	}
	record := proto.NewRecord(recordType, sessionID)
	for key, value := range payload {
		record.SetPayload(key, value)
	}
	if err := s.audit.WriteRecord(record); err != nil {
		s.logger.Warn("failed to write audit record: %v", err)
	}
}

// StartSweeper launches the TTL sweeper goroutine. It abandons pending
// interrupts older than the configured TTL until the context is cancelled.
func (s *Supervisor) StartSweeper(ctx context.Context) {
	interval := s.cfg.Interrupts.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				expired, err := s.store.ExpireStale(s.cfg.Interrupts.TTL)
				if err != nil {
					s.logger.Error("interrupt sweep failed: %v", err)
					continue
				}
				if expired > 0 {
					s.recorder.IncInterruptExpired(expired)
					s.refreshPendingGauge()
				}
			}
		}
	}()
}
