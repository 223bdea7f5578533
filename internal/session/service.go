package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/branchpos-backend/internal/branches"
	"github.com/angelmondragon/branchpos-backend/internal/pricing"
	"github.com/angelmondragon/branchpos-backend/internal/units"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/angelmondragon/branchpos-backend/pkg/logger"
	"github.com/angelmondragon/branchpos-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	OutcomeAbandoned  = "abandoned"
	OutcomeCheckedOut = "checked_out"
)

// Service drives checkout sessions for the caller's branch. Sessions owned by
// another branch are reported as not found.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*SessionDTO, error)
	Get(ctx context.Context, branchID, id uuid.UUID) (*SessionDTO, error)
	AddLine(ctx context.Context, branchID, id uuid.UUID, input AddLineInput) (*SessionDTO, error)
	UpdateLine(ctx context.Context, branchID, id uuid.UUID, lineID string, update LineUpdate) (*SessionDTO, error)
	RemoveLine(ctx context.Context, branchID, id uuid.UUID, lineID string) (*SessionDTO, error)
	SetChannel(ctx context.Context, branchID, id uuid.UUID, channel enums.SellingChannel) (*SessionDTO, error)
	SetDiscount(ctx context.Context, branchID, id uuid.UUID, percent decimal.Decimal) (*SessionDTO, error)
	Abandon(ctx context.Context, branchID, id uuid.UUID) (*SessionDTO, error)
}

type CreateInput struct {
	Kind                enums.SessionKind
	BranchID            uuid.UUID
	UserID              *uuid.UUID
	DestinationBranchID uuid.UUID
	// Channel defaults to the branch's first enabled channel.
	Channel enums.SellingChannel
}

type AddLineInput struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	UnitID    string
}

type branchLoader interface {
	Branch(ctx context.Context, id uuid.UUID) (*branches.Branch, error)
	Catalog(ctx context.Context, storeID uuid.UUID) (*units.Catalog, error)
}

type productLoader interface {
	PricingSnapshot(ctx context.Context, storeID, productID uuid.UUID) (pricing.Product, error)
}

type ServiceParams struct {
	Registry *Registry
	Branches branchLoader
	Products productLoader
	Metrics  *metrics.PricingMetrics
	Logger   *logger.Logger
	MaxLines int
}

type service struct {
	registry *Registry
	branches branchLoader
	products productLoader
	metrics  *metrics.PricingMetrics
	logg     *logger.Logger
	maxLines int
}

func NewService(params ServiceParams) (Service, error) {
	if params.Registry == nil {
		return nil, fmt.Errorf("session registry required")
	}
	if params.Branches == nil {
		return nil, fmt.Errorf("branch service required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product service required")
	}
	return &service{
		registry: params.Registry,
		branches: params.Branches,
		products: params.Products,
		metrics:  params.Metrics,
		logg:     params.Logger,
		maxLines: params.MaxLines,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*SessionDTO, error) {
	branch, err := s.branches.Branch(ctx, input.BranchID)
	if err != nil {
		return nil, err
	}
	if input.Kind == enums.SessionKindTransfer {
		if err := s.checkDestination(ctx, branch, input.DestinationBranchID); err != nil {
			return nil, err
		}
	}
	catalog, err := s.branches.Catalog(ctx, branch.StoreID)
	if err != nil {
		return nil, err
	}

	channel := input.Channel
	if channel == "" {
		channel = branch.DefaultChannel()
	}
	sess, err := New(uuid.New(), Config{
		Kind:                input.Kind,
		StoreID:             branch.StoreID,
		BranchID:            branch.ID,
		DestinationBranchID: input.DestinationBranchID,
		UserID:              input.UserID,
		Mode:                branch.PricingMode,
		EnabledChannels:     branch.EnabledChannels(),
		Channel:             channel,
		Catalog:             catalog,
		MaxLines:            s.maxLines,
	})
	if err != nil {
		s.observe(err)
		return nil, err
	}
	if err := s.registry.Add(sess); err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithSessionID(s.logg.WithBranchID(ctx, branch.ID.String()), sess.ID().String())
		s.logg.Info(s.logg.WithField(logCtx, "kind", sess.Config().Kind.String()), "session opened")
	}
	return NewSessionDTO(sess), nil
}

func (s *service) checkDestination(ctx context.Context, source *branches.Branch, destID uuid.UUID) error {
	if destID == uuid.Nil || destID == source.ID {
		return pkgerrors.New(pkgerrors.CodeValidation, "transfer requires a destination branch different from the source")
	}
	dest, err := s.branches.Branch(ctx, destID)
	if err != nil {
		return err
	}
	if dest.StoreID != source.StoreID {
		return pkgerrors.New(pkgerrors.CodeValidation, "destination branch belongs to another store").
			WithDetails(map[string]any{"destination_branch_id": destID.String()})
	}
	return nil
}

func (s *service) Get(ctx context.Context, branchID, id uuid.UUID) (*SessionDTO, error) {
	var out *SessionDTO
	err := s.registry.Do(id, func(sess *Session) error {
		if err := owned(sess, branchID); err != nil {
			return err
		}
		out = NewSessionDTO(sess)
		return nil
	})
	return out, err
}

// AddLine loads the product snapshot before taking the session lock so the
// lock is never held across I/O.
func (s *service) AddLine(ctx context.Context, branchID, id uuid.UUID, input AddLineInput) (*SessionDTO, error) {
	cfg, err := s.config(branchID, id)
	if err != nil {
		return nil, err
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.products.PricingSnapshot(ctx, cfg.StoreID, input.ProductID)
	if err != nil {
		return nil, err
	}
	unitID := strings.TrimSpace(input.UnitID)

	return s.mutate(ctx, branchID, id, func(sess *Session) error {
		line, err := sess.AddLine(product, input.Quantity, unitID)
		if err != nil {
			return err
		}
		s.observeLine(sess, line.ID)
		return nil
	})
}

func (s *service) UpdateLine(ctx context.Context, branchID, id uuid.UUID, lineID string, update LineUpdate) (*SessionDTO, error) {
	return s.mutate(ctx, branchID, id, func(sess *Session) error {
		line, err := sess.UpdateLine(lineID, update)
		if err != nil {
			return err
		}
		s.observeLine(sess, line.ID)
		return nil
	})
}

func (s *service) RemoveLine(ctx context.Context, branchID, id uuid.UUID, lineID string) (*SessionDTO, error) {
	return s.mutate(ctx, branchID, id, func(sess *Session) error {
		return sess.RemoveLine(lineID)
	})
}

func (s *service) SetChannel(ctx context.Context, branchID, id uuid.UUID, channel enums.SellingChannel) (*SessionDTO, error) {
	return s.mutate(ctx, branchID, id, func(sess *Session) error {
		return sess.SetChannel(channel)
	})
}

func (s *service) SetDiscount(ctx context.Context, branchID, id uuid.UUID, percent decimal.Decimal) (*SessionDTO, error) {
	return s.mutate(ctx, branchID, id, func(sess *Session) error {
		return sess.SetDiscountPercent(percent)
	})
}

func (s *service) Abandon(ctx context.Context, branchID, id uuid.UUID) (*SessionDTO, error) {
	return s.mutate(ctx, branchID, id, func(sess *Session) error {
		if err := sess.Abandon(); err != nil {
			return err
		}
		s.metrics.IncOutcome(sess.Config().Kind.String(), OutcomeAbandoned)
		if s.logg != nil {
			s.logg.Info(s.logg.WithSessionID(ctx, sess.ID().String()), "session abandoned")
		}
		return nil
	})
}

func (s *service) mutate(ctx context.Context, branchID, id uuid.UUID, fn func(*Session) error) (*SessionDTO, error) {
	var out *SessionDTO
	err := s.registry.Do(id, func(sess *Session) error {
		if err := owned(sess, branchID); err != nil {
			return err
		}
		start := time.Now()
		if err := fn(sess); err != nil {
			return err
		}
		s.metrics.ObserveRecompute(sess.Config().Kind.String(), time.Since(start))
		out = NewSessionDTO(sess)
		return nil
	})
	if err != nil {
		s.observe(err)
		return nil, err
	}
	return out, nil
}

func (s *service) config(branchID, id uuid.UUID) (Config, error) {
	var cfg Config
	err := s.registry.Do(id, func(sess *Session) error {
		if err := owned(sess, branchID); err != nil {
			return err
		}
		cfg = sess.Config()
		return nil
	})
	return cfg, err
}

func (s *service) observe(err error) {
	if typed := pkgerrors.As(err); typed != nil && typed.Code().IsPricing() {
		s.metrics.IncError(strings.ToLower(string(typed.Code())))
	}
}

// observeLine counts a line that was kept but could not be priced.
func (s *service) observeLine(sess *Session, lineID string) {
	for _, v := range sess.Lines() {
		if v.ID == lineID && v.Err != nil {
			s.observe(v.Err)
		}
	}
}

func owned(sess *Session, branchID uuid.UUID) error {
	if sess.Config().BranchID != branchID {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("session %s not found", sess.ID()))
	}
	return nil
}
