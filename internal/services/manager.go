package services

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"
	"time"

	"selfcheckout/internal/config"
	"selfcheckout/internal/dto"
	"selfcheckout/internal/logger"
	"selfcheckout/internal/model"
	"selfcheckout/internal/repository"
	"selfcheckout/internal/services/assistance"
	"selfcheckout/internal/services/cart"
	"selfcheckout/internal/services/ingest"
	"selfcheckout/internal/services/instruction"
	"selfcheckout/internal/services/metrics"
	"selfcheckout/internal/services/normalize"
	"selfcheckout/internal/services/tracker"
	"selfcheckout/internal/services/zones"

	"github.com/google/uuid"
)

// Publisher delivers messages to viewers.
type Publisher interface {
	Publish(msg dto.ViewerMessage)
}

// Renderer draws detection annotations onto a frame.
type Renderer interface {
	Render(frame []byte, objects []model.TrackedObject) ([]byte, error)
}

// AuditRecorder stores applied manual adjustments.
type AuditRecorder interface {
	Record(adj model.Adjustment)
}

// Dependencies are the collaborators of a Manager. Only Sender is required.
type Dependencies struct {
	Sender      zones.CommandSender
	Escalations repository.EscalationRepository
	Audit       AuditRecorder
	Publisher   Publisher
	Renderer    Renderer
	Metrics     *metrics.Metrics
}

// Manager owns the checkout session. Snapshots are applied one at a time by
// Run; user requests and backend acknowledgements may arrive concurrently.
type Manager struct {
	mu sync.Mutex

	sessionID  string
	tracker    *tracker.Tracker
	cart       *cart.Cart
	zones      *zones.Coordinator
	classifier *instruction.Classifier
	announcer  *instruction.Announcer
	assistance *assistance.Service

	mailbox   *ingest.Mailbox
	audit     AuditRecorder
	publisher Publisher
	renderer  Renderer
	metrics   *metrics.Metrics
	logger    *logger.Logger

	assetsURL        string
	minHistoryLength int
	now              func() time.Time

	last        *model.Snapshot
	instruction string
	decision    instruction.Decision
	frame       []byte

	fps            int
	fpsCount       int
	fpsWindowStart time.Time
}

func NewManager(cfg *config.Config, deps Dependencies, logger *logger.Logger) *Manager {
	m := &Manager{
		sessionID: uuid.NewString(),
		tracker:   tracker.New(),
		cart:      cart.New(cfg.EscalationThreshold),
		zones:     zones.NewCoordinator(deps.Sender),
		classifier: instruction.NewClassifier(instruction.Settings{
			StallTimeout:     cfg.StallTimeout,
			BacklogAge:       cfg.BacklogAge,
			MinHistoryLength: cfg.MinHistoryLength,
		}),
		mailbox:          ingest.NewMailbox(),
		audit:            deps.Audit,
		publisher:        deps.Publisher,
		renderer:         deps.Renderer,
		metrics:          deps.Metrics,
		logger:           logger,
		assetsURL:        strings.TrimRight(cfg.AssetsURL, "/"),
		minHistoryLength: cfg.MinHistoryLength,
		now:              time.Now,
	}
	if m.metrics == nil {
		m.metrics = metrics.New()
	}
	m.announcer = instruction.NewAnnouncer(instruction.SpeakerFunc(m.speak))
	m.assistance = assistance.NewService(deps.Escalations, m, logger)
	m.last = normalize.Empty(m.now())
	m.instruction = instruction.MessagePlaceItems

	m.logger.Info("Checkout session %s started", m.sessionID)
	return m
}

// SessionID identifies the current checkout session.
func (m *Manager) SessionID() string {
	return m.sessionID
}

// Assistance exposes the escalation store for the attendant endpoints.
func (m *Manager) Assistance() *assistance.Service {
	return m.assistance
}

func (m *Manager) Metrics() *metrics.Metrics {
	return m.metrics
}

// Mailbox is the latest-wins queue between the backend reader and Run.
func (m *Manager) Mailbox() *ingest.Mailbox {
	return m.mailbox
}

// HandleDetection queues a raw detection_results payload. It never blocks.
func (m *Manager) HandleDetection(data []byte, receivedAt time.Time) {
	m.metrics.SnapshotsReceived.Add(1)
	m.mailbox.Put(data, receivedAt)
}

// Run applies queued snapshots until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info("Snapshot processing started")
	for {
		p, err := m.mailbox.Take(ctx)
		if err != nil {
			if errors.Is(err, ingest.ErrClosed) || ctx.Err() != nil {
				m.logger.Info("Snapshot processing stopped")
				return nil
			}
			return err
		}
		m.ProcessPayload(p.Data, p.ReceivedAt)
	}
}

// ProcessPayload normalizes and applies one payload. Decode problems are
// logged; the snapshot is applied with defaults regardless.
func (m *Manager) ProcessPayload(data []byte, receivedAt time.Time) {
	snap, errs := normalize.Normalize(data, receivedAt)
	if len(errs) > 0 {
		m.metrics.NormalizeErrors.Add(uint64(len(errs)))
		for _, err := range errs {
			m.logger.Warning("Snapshot field rejected: %v", err)
		}
	}
	m.ApplySnapshot(snap)
}

// ApplySnapshot runs one reconciliation cycle and publishes the new state.
func (m *Manager) ApplySnapshot(snap *model.Snapshot) {
	start := time.Now()

	var frame []byte
	if m.renderer != nil && len(snap.Frame) > 0 {
		annotated, err := m.renderer.Render(snap.Frame, snap.TrackedObjects)
		if err != nil {
			m.logger.Warning("Failed to annotate frame: %v", err)
		}
		frame = annotated
	}
	if frame == nil {
		frame = snap.Frame
	}

	m.mu.Lock()
	now := m.now()
	m.tracker.Update(snap, now)
	m.zones.Sync(snap.UnstableZones, snap.ReceivedAt)
	open := m.zones.Open()
	m.cart.Reconcile(snap)

	m.decision = m.classifier.Classify(snap, m.tracker, open, now)
	if m.decision.Text != m.instruction {
		m.logger.Debug("Instruction changed (%s): %s", m.decision.Rule, m.decision.Text)
	}
	m.instruction = m.decision.Text
	if m.announcer.Announce(m.decision.Text) {
		m.metrics.InstructionsAnnounced.Add(1)
	}

	m.last = snap
	m.frame = frame
	m.tickFPS(now)
	m.metrics.UpdateCart(m.cart.Total(), m.cart.ItemCount())
	m.metrics.OpenZones.Store(int64(len(open)))
	state := m.stateLocked(open)
	m.mu.Unlock()

	m.metrics.SnapshotsProcessed.Add(1)
	m.metrics.UpdateProcessLatency(time.Since(start))
	m.publish(dto.ViewerMessage{Type: dto.MessageState, Data: state})
}

// tickFPS counts snapshots and publishes the count once per elapsed second.
func (m *Manager) tickFPS(now time.Time) {
	if m.fpsWindowStart.IsZero() {
		m.fpsWindowStart = now
	}
	m.fpsCount++
	if now.Sub(m.fpsWindowStart) >= time.Second {
		m.fps = m.fpsCount
		m.fpsCount = 0
		m.fpsWindowStart = now
		m.metrics.FPS.Store(int64(m.fps))
	}
}

// HandleZoneAck applies a backend acknowledgement of an ignore request.
func (m *Manager) HandleZoneAck(ack dto.ZoneAck) {
	m.metrics.ZoneAcks.Add(1)
	if !ack.Succeeded() {
		m.metrics.ZoneAckFailures.Add(1)
		m.logger.Warning("Backend refused to ignore zone %s (status %q)", ack.ZoneKey, ack.Status)
	}

	if !m.zones.HandleAck(ack, m.now()) {
		return
	}

	m.mu.Lock()
	m.tracker.ForgetZone(ack.ZoneKey)
	open := m.zones.Open()
	m.metrics.OpenZones.Store(int64(len(open)))
	state := m.stateLocked(open)
	m.mu.Unlock()

	m.logger.Info("Zone %s ignored", ack.ZoneKey)
	m.publish(dto.ViewerMessage{Type: dto.MessageState, Data: state})
}

// RequestIgnore asks the backend to drop an open zone. The zone stays open
// until the acknowledgement arrives.
func (m *Manager) RequestIgnore(zoneKey string) error {
	if err := m.zones.RequestIgnore(zoneKey); err != nil {
		return err
	}
	m.metrics.ZoneIgnoreRequests.Add(1)
	m.logger.Info("Requested ignore for zone %s", zoneKey)
	return nil
}

// AdjustQuantity applies a manual quantity change or escalates it.
func (m *Manager) AdjustQuantity(itemName string, quantity int) (dto.AdjustResponse, error) {
	m.mu.Lock()
	result, err := m.cart.Adjust(itemName, quantity)
	if err != nil {
		m.mu.Unlock()
		return dto.AdjustResponse{}, err
	}
	total := m.cart.Total()
	line := result.Line
	resp := dto.AdjustResponse{Outcome: dto.OutcomeApplied, Line: &line, Total: total}

	if result.Outcome == cart.Escalated {
		m.mu.Unlock()
		m.metrics.Escalations.Add(1)
		if err := m.assistance.Raise(m.sessionID, result.Escalation); err != nil {
			m.logger.Error("Escalation for %s not persisted: %v", itemName, err)
		}
		resp.Outcome = dto.OutcomeEscalated
		resp.Escalation = result.Escalation
		return resp, nil
	}

	m.metrics.UpdateCart(total, m.cart.ItemCount())
	state := m.stateLocked(m.zones.Open())
	m.mu.Unlock()

	m.metrics.AdjustmentsApplied.Add(1)
	m.record(model.AdjustmentSet, line, line.PreviousQuantity, quantity)
	m.logger.Info("Quantity of %s set to %d (was %d)", itemName, quantity, line.PreviousQuantity)
	m.publish(dto.ViewerMessage{Type: dto.MessageState, Data: state})
	return resp, nil
}

// ResetOverride returns an item to automatic counting.
func (m *Manager) ResetOverride(itemName string) (model.CartLine, error) {
	m.mu.Lock()
	hadOverride := m.cart.HasOverride(itemName)
	line, err := m.cart.ResetOverride(itemName)
	if err != nil {
		m.mu.Unlock()
		return model.CartLine{}, err
	}
	state := m.stateLocked(m.zones.Open())
	m.mu.Unlock()

	if hadOverride {
		m.metrics.OverridesReset.Add(1)
		m.record(model.AdjustmentReset, line, line.Quantity, line.Quantity)
		m.logger.Info("Override of %s reset at quantity %d", itemName, line.Quantity)
	}
	m.publish(dto.ViewerMessage{Type: dto.MessageState, Data: state})
	return line, nil
}

// RequestHelp raises an attendant escalation on behalf of the customer.
func (m *Manager) RequestHelp(note string) (*model.Escalation, error) {
	m.metrics.HelpRequests.Add(1)
	return m.assistance.RequestHelp(m.sessionID, note)
}

// NotifyEscalation forwards a raised escalation to viewers.
func (m *Manager) NotifyEscalation(esc model.Escalation) {
	m.publish(dto.ViewerMessage{Type: dto.MessageEscalation, Data: esc})
}

// State returns the current viewer state.
func (m *Manager) State() dto.ViewerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked(m.zones.Open())
}

// Decision returns the rule and text of the latest classification.
func (m *Manager) Decision() instruction.Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decision
}

func (m *Manager) stateLocked(open []model.UnstableZone) dto.ViewerState {
	lines := m.cart.Lines()
	viewerLines := make([]dto.ViewerCartLine, 0, len(lines))
	for _, l := range lines {
		viewerLines = append(viewerLines, dto.ViewerCartLine{
			CartLine:  l,
			LineTotal: l.LineTotal(),
			ImageURL:  m.imageURL(l.ImagePath),
		})
	}

	objects := make([]model.TrackedObject, len(m.last.TrackedObjects))
	copy(objects, m.last.TrackedObjects)

	return dto.ViewerState{
		SessionID:       m.sessionID,
		Instruction:     m.instruction,
		Cart:            viewerLines,
		Total:           m.cart.Total(),
		OpenZones:       open,
		TrackedObjects:  objects,
		FPS:             m.fps,
		CheckoutEnabled: m.last.PendingCount(m.minHistoryLength) == 0 && m.cart.ItemCount() > 0,
		Frame:           m.frame,
	}
}

// imageURL maps a backend image path to a URL under the assets base. Backend
// paths may use either separator.
func (m *Manager) imageURL(imagePath string) string {
	if imagePath == "" || m.assetsURL == "" {
		return ""
	}
	name := path.Base(strings.ReplaceAll(imagePath, `\`, "/"))
	return m.assetsURL + "/" + name
}

func (m *Manager) speak(text string) {
	m.publish(dto.ViewerMessage{Type: dto.MessageSpeak, Data: dto.SpeakEvent{Text: text}})
}

func (m *Manager) record(kind string, line model.CartLine, previous, requested int) {
	if m.audit == nil {
		return
	}
	m.audit.Record(model.Adjustment{
		SessionID:         m.sessionID,
		ItemName:          line.ItemName,
		Kind:              kind,
		PreviousQuantity:  previous,
		RequestedQuantity: requested,
		UnitPrice:         line.UnitPrice,
		CreatedAt:         m.now(),
	})
}

func (m *Manager) publish(msg dto.ViewerMessage) {
	if m.publisher != nil {
		m.publisher.Publish(msg)
	}
}
