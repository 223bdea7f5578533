package session

import (
	"fmt"

	"github.com/angelmondragon/branchpos-backend/internal/pricing"
	"github.com/angelmondragon/branchpos-backend/internal/units"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

const defaultMaxLines = 500

// Config fixes everything a session reads but never changes.
type Config struct {
	Kind                enums.SessionKind
	StoreID             uuid.UUID
	BranchID            uuid.UUID
	DestinationBranchID uuid.UUID
	UserID              *uuid.UUID
	Mode                enums.PricingMode
	EnabledChannels     []enums.SellingChannel
	Channel             enums.SellingChannel
	Catalog             units.Resolver
	MaxLines            int
}

// Session is a sale or transfer cart. Totals are recomputed synchronously
// after every mutation. A Session is not safe for concurrent use; Registry
// serialises access.
type Session struct {
	id       uuid.UUID
	cfg      Config
	status   enums.SessionStatus
	channel  enums.SellingChannel
	discount decimal.Decimal
	lines    []*entry
	products map[string]pricing.Product
	totals   Totals
}

type entry struct {
	line  Line
	price *LinePrice
	err   error
}

// LineView is a line with its pricing outcome. Exactly one of Price and Err
// is set.
type LineView struct {
	Line
	ProductName string
	Price       *LinePrice
	Err         error
}

// LineUpdate carries the optional changes to a line.
type LineUpdate struct {
	Quantity *decimal.Decimal
	UnitID   *string
}

func New(id uuid.UUID, cfg Config) (*Session, error) {
	if !cfg.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid session kind %q", cfg.Kind))
	}
	if !cfg.Mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("unknown pricing mode %q", cfg.Mode))
	}
	if cfg.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session requires a unit catalog")
	}
	if cfg.Kind == enums.SessionKindTransfer {
		if cfg.DestinationBranchID == uuid.Nil || cfg.DestinationBranchID == cfg.BranchID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer requires a destination branch different from the source")
		}
	}
	if cfg.MaxLines <= 0 {
		cfg.MaxLines = defaultMaxLines
	}
	s := &Session{
		id:       id,
		cfg:      cfg,
		status:   enums.SessionStatusEmpty,
		discount: decimal.Zero,
		products: map[string]pricing.Product{},
	}
	if err := s.checkChannel(cfg.Channel); err != nil {
		return nil, err
	}
	s.channel = cfg.Channel
	s.recompute()
	return s, nil
}

func (s *Session) ID() uuid.UUID                 { return s.id }
func (s *Session) Config() Config                { return s.cfg }
func (s *Session) Status() enums.SessionStatus   { return s.status }
func (s *Session) Channel() enums.SellingChannel { return s.channel }
func (s *Session) Totals() Totals                { return s.totals }

// AddLine appends a line, or merges it into an existing line for the same
// product and unit. An unpriceable line is kept and reported, not rejected.
func (s *Session) AddLine(product pricing.Product, quantity decimal.Decimal, unitID string) (Line, error) {
	if err := s.ensureOpen(); err != nil {
		return Line{}, err
	}
	if !quantity.IsPositive() {
		return Line{}, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "line quantity must be greater than zero").
			WithDetails(map[string]any{"product_id": product.ID, "quantity": quantity.String()})
	}
	if product.ID == "" {
		return Line{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	for _, e := range s.lines {
		if e.line.ProductID == product.ID && e.line.UnitID == unitID {
			e.line.Quantity = e.line.Quantity.Add(quantity)
			s.products[product.ID] = product
			s.recompute()
			return e.line, nil
		}
	}
	if len(s.lines) >= s.cfg.MaxLines {
		return Line{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("session cannot hold more than %d lines", s.cfg.MaxLines))
	}

	s.products[product.ID] = product
	line := Line{
		ID:        uuid.NewString(),
		ProductID: product.ID,
		Quantity:  quantity,
		UnitID:    unitID,
	}
	s.lines = append(s.lines, &entry{line: line})
	s.status = enums.SessionStatusPopulated
	s.recompute()
	return line, nil
}

// UpdateLine changes quantity and/or unit of an existing line.
func (s *Session) UpdateLine(lineID string, upd LineUpdate) (Line, error) {
	if err := s.ensureOpen(); err != nil {
		return Line{}, err
	}
	e, _, err := s.find(lineID)
	if err != nil {
		return Line{}, err
	}
	if upd.Quantity != nil && !upd.Quantity.IsPositive() {
		return Line{}, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "line quantity must be greater than zero").
			WithDetails(map[string]any{"line_id": lineID, "quantity": upd.Quantity.String()})
	}
	if upd.Quantity != nil {
		e.line.Quantity = *upd.Quantity
	}
	if upd.UnitID != nil {
		e.line.UnitID = *upd.UnitID
	}
	s.recompute()
	return e.line, nil
}

// RemoveLine drops a line; removing the last one empties the session.
func (s *Session) RemoveLine(lineID string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	_, idx, err := s.find(lineID)
	if err != nil {
		return err
	}
	productID := s.lines[idx].line.ProductID
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	if !s.references(productID) {
		delete(s.products, productID)
	}
	if len(s.lines) == 0 {
		s.status = enums.SessionStatusEmpty
	}
	s.recompute()
	return nil
}

// RefreshProduct swaps in a newer pricing snapshot for a product already in
// the cart.
func (s *Session) RefreshProduct(product pricing.Product) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if !s.references(product.ID) {
		return nil
	}
	s.products[product.ID] = product
	s.recompute()
	return nil
}

// SetChannel selects the price channel for every line.
func (s *Session) SetChannel(ch enums.SellingChannel) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := s.checkChannel(ch); err != nil {
		return err
	}
	s.channel = ch
	s.recompute()
	return nil
}

func (s *Session) SetDiscountPercent(p decimal.Decimal) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := validateDiscount(p); err != nil {
		return err
	}
	s.discount = p
	s.recompute()
	return nil
}

// Lines returns the cart in insertion order.
func (s *Session) Lines() []LineView {
	out := make([]LineView, 0, len(s.lines))
	for _, e := range s.lines {
		v := LineView{Line: e.line, ProductName: s.products[e.line.ProductID].Name, Err: e.err}
		if e.price != nil {
			p := *e.price
			v.Price = &p
		}
		out = append(out, v)
	}
	return out
}

// Err combines every line-level pricing error, or nil when all lines price.
func (s *Session) Err() error {
	var err error
	for _, e := range s.lines {
		if e.err != nil {
			err = multierr.Append(err, fmt.Errorf("line %s: %w", e.line.ID, e.err))
		}
	}
	return err
}

// Ready reports whether the session could be checked out now.
func (s *Session) Ready() error {
	if s.status != enums.SessionStatusPopulated {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot check out a session in status %s", s.status)).
			WithDetails(map[string]any{"status": s.status})
	}
	if err := s.Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "session has lines that cannot be priced").
			WithDetails(map[string]any{"line_errors": LineErrorDetails(s.Lines())})
	}
	return nil
}

// MarkCheckedOut moves a ready session to its terminal state. Callers
// persist first and mark after.
func (s *Session) MarkCheckedOut() error {
	if err := s.Ready(); err != nil {
		return err
	}
	s.status = enums.SessionStatusCheckedOut
	return nil
}

func (s *Session) Abandon() error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	s.status = enums.SessionStatusAbandoned
	return nil
}

func (s *Session) ensureOpen() error {
	if s.status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("session is %s", s.status)).
			WithDetails(map[string]any{"session_id": s.id.String(), "status": s.status})
	}
	return nil
}

func (s *Session) checkChannel(ch enums.SellingChannel) error {
	if s.cfg.Mode == enums.PricingModeManual && ch == "" {
		return nil
	}
	if !ch.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("unknown selling channel %q", ch))
	}
	for _, enabled := range s.cfg.EnabledChannels {
		if enabled == ch {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("selling channel %s is not enabled for this branch", ch)).
		WithDetails(map[string]any{"channel": ch})
}

func (s *Session) find(lineID string) (*entry, int, error) {
	for i, e := range s.lines {
		if e.line.ID == lineID {
			return e, i, nil
		}
	}
	return nil, -1, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("line %s not found", lineID))
}

func (s *Session) references(productID string) bool {
	for _, e := range s.lines {
		if e.line.ProductID == productID {
			return true
		}
	}
	return false
}

func (s *Session) recompute() {
	priced := make([]LinePrice, 0, len(s.lines))
	unpriced := 0
	for _, e := range s.lines {
		price, err := PriceLine(s.cfg.Catalog, e.line, s.products[e.line.ProductID], s.cfg.Mode, s.channel)
		if err != nil {
			e.price, e.err = nil, err
			unpriced++
			continue
		}
		e.price, e.err = &price, nil
		priced = append(priced, price)
	}
	s.totals = ComputeTotals(priced, unpriced, s.discount)
}

// LineErrorDetails renders line errors for API details.
func LineErrorDetails(lines []LineView) []map[string]any {
	var out []map[string]any
	for _, l := range lines {
		if l.Err == nil {
			continue
		}
		item := map[string]any{"line_id": l.ID, "product_id": l.ProductID, "unit_id": l.UnitID, "message": l.Err.Error()}
		if typed := pkgerrors.As(l.Err); typed != nil {
			item["code"] = typed.Code()
			item["message"] = typed.Message()
		}
		out = append(out, item)
	}
	return out
}
