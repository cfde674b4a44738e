package assistance

import (
	"fmt"
	"time"

	"selfcheckout/internal/dto"
	"selfcheckout/internal/logger"
	"selfcheckout/internal/model"
	"selfcheckout/internal/repository"

	"github.com/google/uuid"
)

// Notifier is told about every raised escalation.
type Notifier interface {
	NotifyEscalation(esc model.Escalation)
}

// Service stores escalations for the attendant workflow. It never touches the
// cart.
type Service struct {
	repo     repository.EscalationRepository
	notifier Notifier
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(repo repository.EscalationRepository, notifier Notifier, logger *logger.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: logger, now: time.Now}
}

// Raise assigns an id and timestamp, stores the escalation and notifies the
// attendant surface. A storage failure is logged and returned, but the
// notification is still sent so the customer is not left waiting.
func (s *Service) Raise(sessionID string, esc *model.Escalation) error {
	esc.ID = uuid.NewString()
	esc.SessionID = sessionID
	esc.Status = model.EscalationPending
	if esc.CreatedAt.IsZero() {
		esc.CreatedAt = s.now()
	}

	var err error
	if s.repo != nil {
		if err = s.repo.Insert(esc); err != nil {
			s.logger.Error("Failed to store escalation for %s: %v", esc.ItemName, err)
			err = fmt.Errorf("failed to store escalation: %w", err)
		}
	}

	s.logger.Warning("Assistance required (%s): %s %d -> %d, amount %.2f",
		esc.Reason, esc.ItemName, esc.CurrentQuantity, esc.RequestedQuantity, esc.DecreaseAmount)
	if s.notifier != nil {
		s.notifier.NotifyEscalation(*esc)
	}
	return err
}

// RequestHelp raises an escalation that is not tied to a cart edit.
func (s *Service) RequestHelp(sessionID, note string) (*model.Escalation, error) {
	esc := &model.Escalation{ItemName: note, Reason: model.ReasonHelpRequested}
	if err := s.Raise(sessionID, esc); err != nil {
		return esc, err
	}
	return esc, nil
}

// List returns stored escalations.
func (s *Service) List(filter *dto.EscalationFilter) ([]model.Escalation, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.GetAll(filter)
}

// Resolve closes a pending escalation.
func (s *Service) Resolve(id string) error {
	if s.repo == nil {
		return fmt.Errorf("escalation %s: %w", id, repository.ErrNotFound)
	}
	if err := s.repo.Resolve(id, s.now()); err != nil {
		return err
	}
	s.logger.Info("Escalation %s resolved", id)
	return nil
}
