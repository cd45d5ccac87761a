package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/URMC/urHL7/internal/platform/hl7v2"
	"github.com/URMC/urHL7/internal/platform/metrics"
)

// ErrInvalid wraps every rejection of caller input.
var ErrInvalid = errors.New("invalid request")

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Store parses raw and archives it.
func (s *Service) Store(ctx context.Context, raw []byte) (*Record, error) {
	msg, err := hl7v2.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return s.StoreMessage(ctx, msg)
}

// StoreMessage archives an already parsed message. MSH-9 and MSH-10 are
// required.
func (s *Service) StoreMessage(ctx context.Context, msg *hl7v2.Message) (*Record, error) {
	h := msg.Header()
	if h.ControlID == "" {
		return nil, fmt.Errorf("%w: MSH-10 control id is required", ErrInvalid)
	}
	if h.MessageType == "" {
		return nil, fmt.Errorf("%w: MSH-9 message type is required", ErrInvalid)
	}

	rec := &Record{
		ControlID:       h.ControlID,
		MessageType:     h.MessageType,
		TriggerEvent:    h.TriggerEvent,
		SendingApp:      h.SendingApp,
		SendingFacility: h.SendingFacility,
		Version:         h.Version,
		Raw:             msg.Marshal(),
	}
	if !h.Timestamp.IsZero() {
		sent := h.Timestamp
		rec.SentAt = &sent
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("archive message %s: %w", h.ControlID, err)
	}

	metrics.ArchivedMessages.Inc()
	s.log.Info().
		Str("id", rec.ID.String()).
		Str("control_id", rec.ControlID).
		Str("message_type", h.Type(msg.Delimiters())).
		Msg("message archived")
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByControlID(ctx context.Context, controlID string) (*Record, error) {
	if controlID == "" {
		return nil, fmt.Errorf("%w: control id is required", ErrInvalid)
	}
	return s.repo.GetByControlID(ctx, controlID)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Record, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Record, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("id", id.String()).Msg("archived message deleted")
	return nil
}

// Query re-parses the archived message and returns the decoded data of
// every element matching path.
func (s *Service) Query(ctx context.Context, id uuid.UUID, path string) ([]string, error) {
	loc, err := hl7v2.ParseLocation(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	msg, err := hl7v2.ParseString(rec.Raw)
	if err != nil {
		return nil, fmt.Errorf("stored message %s no longer parses: %w", id, err)
	}
	metrics.Queries.WithLabelValues("archive").Inc()

	values := []string{}
	if !loc.HasField() {
		for _, seg := range msg.SegmentsAt(loc) {
			values = append(values, seg.Marshal())
		}
		return values, nil
	}
	for _, e := range msg.GetAllAt(loc) {
		values = append(values, e.Data())
	}
	return values, nil
}
