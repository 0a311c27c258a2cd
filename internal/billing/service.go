package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-inventory/internal/common"
	"github.com/noah-isme/backend-inventory/internal/directory"
	"github.com/noah-isme/backend-inventory/internal/events"
	"github.com/noah-isme/backend-inventory/internal/invoice"
	"github.com/noah-isme/backend-inventory/internal/obs"
)

var (
	// ErrNotEditable is returned when a non-draft document is edited.
	ErrNotEditable = errors.New("billing: document is not editable")
	// ErrEmpty is returned when issuing a document without lines.
	ErrEmpty = errors.New("billing: document has no items")
	// ErrInvalidTransition is returned for lifecycle moves the status does not allow.
	ErrInvalidTransition = errors.New("billing: invalid status transition")
	// ErrLineNotFound is returned when a line id is not on the document.
	ErrLineNotFound = errors.New("billing: line not found")
)

// Catalog is the inventory view billing needs for line defaults and stock.
type Catalog interface {
	Item(ctx context.Context, id string) (directory.Item, error)
	Supplier(ctx context.Context, id string) (directory.Supplier, error)
	AdjustStock(ctx context.Context, id string, delta decimal.Decimal) (directory.Item, error)
}

// Publisher emits domain events.
type Publisher interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// Locker serialises state transitions of one document across processes.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

const transitionLockTTL = 10 * time.Second

// Service manages purchase and sales documents.
type Service struct {
	Store          Store
	Catalog        Catalog
	Events         Publisher
	Locker         Locker
	Logger         zerolog.Logger
	DefaultDueDays int

	validate *validator.Validate
	now      func() time.Time
}

// NewService wires a service over store. catalog and publisher may be nil.
func NewService(store Store, catalog Catalog, publisher Publisher, logger zerolog.Logger) *Service {
	return &Service{
		Store:          store,
		Catalog:        catalog,
		Events:         publisher,
		Logger:         logger,
		DefaultDueDays: 30,
		validate:       common.NewValidator(),
		now:            time.Now,
	}
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func today(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Create stores a new draft of kind.
func (s *Service) Create(ctx context.Context, kind Kind, in CreateInput) (View, error) {
	if !kind.Valid() {
		return View{}, ErrNotFound
	}
	if err := s.check(in); err != nil {
		return View{}, err
	}
	now := s.clock()
	doc := Document{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusDraft,
		PartyID:   strings.TrimSpace(in.PartyID),
		PartyName: strings.TrimSpace(in.PartyName),
		Notes:     strings.TrimSpace(in.Notes),
		Lines:     []Line{},
		Payments:  []Payment{},
		Settings:  invoice.Settings{RoundingMode: invoice.RoundingAuto},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.resolveParty(ctx, &doc); err != nil {
		return View{}, err
	}
	if err := in.Settings.apply(&doc.Settings); err != nil {
		return View{}, err
	}
	if doc.Settings.Date.IsZero() {
		doc.Settings.Date = today(now)
	}
	if doc.Settings.DueDate.IsZero() && s.DefaultDueDays > 0 {
		doc.Settings.DueDate = doc.Settings.Date.AddDate(0, 0, s.DefaultDueDays)
	}
	if err := doc.Settings.Validate(); err != nil {
		return View{}, err
	}
	for _, li := range in.Items {
		line, err := s.newLine(ctx, kind, li)
		if err != nil {
			return View{}, err
		}
		doc.Lines = append(doc.Lines, line)
	}
	if doc.Settings.InvoiceNumber == "" {
		n, err := s.Store.NextNumber(ctx, kind)
		if err != nil {
			return View{}, fmt.Errorf("allocate invoice number: %w", err)
		}
		doc.Settings.InvoiceNumber = kind.FormatNumber(n)
	}

	created, err := s.Store.Create(ctx, doc)
	if err != nil {
		return View{}, err
	}
	s.emit(ctx, events.TopicDocumentCreated, created)
	return s.view(created), nil
}

// Get returns the document of kind with id.
func (s *Service) Get(ctx context.Context, kind Kind, id string) (View, error) {
	doc, err := s.load(ctx, kind, id)
	if err != nil {
		return View{}, err
	}
	return s.view(doc), nil
}

// List returns one page of documents matching f and the total match count.
func (s *Service) List(ctx context.Context, f Filter) ([]View, int, error) {
	docs, total, err := s.Store.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	views := make([]View, len(docs))
	for i, doc := range docs {
		views[i] = s.view(doc)
	}
	return views, total, nil
}

// Delete removes a draft.
func (s *Service) Delete(ctx context.Context, kind Kind, id string) error {
	doc, err := s.load(ctx, kind, id)
	if err != nil {
		return err
	}
	if doc.Status != StatusDraft {
		return ErrNotEditable
	}
	if err := s.Store.Delete(ctx, doc.ID); err != nil {
		return err
	}
	s.emit(ctx, events.TopicDocumentDeleted, doc)
	return nil
}

// Patch edits the party and notes of a draft.
func (s *Service) Patch(ctx context.Context, kind Kind, id string, in PatchInput) (View, error) {
	if err := s.check(in); err != nil {
		return View{}, err
	}
	return s.editDraft(ctx, kind, id, func(doc *Document) error {
		if in.PartyID != nil {
			doc.PartyID = strings.TrimSpace(*in.PartyID)
			if in.PartyName == nil {
				doc.PartyName = ""
			}
		}
		if in.PartyName != nil {
			doc.PartyName = strings.TrimSpace(*in.PartyName)
		}
		if in.Notes != nil {
			doc.Notes = strings.TrimSpace(*in.Notes)
		}
		return s.resolveParty(ctx, doc)
	})
}

// AddItem appends a line to a draft.
func (s *Service) AddItem(ctx context.Context, kind Kind, id string, in LineInput) (View, error) {
	return s.editDraft(ctx, kind, id, func(doc *Document) error {
		line, err := s.newLine(ctx, doc.Kind, in)
		if err != nil {
			return err
		}
		doc.Lines = append(doc.Lines, line)
		return nil
	})
}

// UpdateItem patches the line lineID on a draft.
func (s *Service) UpdateItem(ctx context.Context, kind Kind, id, lineID string, in LineInput) (View, error) {
	return s.editDraft(ctx, kind, id, func(doc *Document) error {
		idx := doc.lineIndex(lineID)
		if idx < 0 {
			return ErrLineNotFound
		}
		line := doc.Lines[idx]
		if err := in.apply(&line); err != nil {
			return err
		}
		if in.ItemID != nil && line.ItemID != "" {
			if err := s.fillFromCatalog(ctx, doc.Kind, &line, in); err != nil {
				return err
			}
		}
		if err := validateLine(line); err != nil {
			return err
		}
		doc.Lines[idx] = line
		return nil
	})
}

// EditItemField sets one line field from its raw text value.
func (s *Service) EditItemField(ctx context.Context, kind Kind, id, lineID, field, raw string) (View, error) {
	in, err := EditLineField(field, raw)
	if err != nil {
		return View{}, err
	}
	return s.UpdateItem(ctx, kind, id, lineID, in)
}

// RemoveItem drops line lineID from a draft.
func (s *Service) RemoveItem(ctx context.Context, kind Kind, id, lineID string) (View, error) {
	return s.editDraft(ctx, kind, id, func(doc *Document) error {
		idx := doc.lineIndex(lineID)
		if idx < 0 {
			return ErrLineNotFound
		}
		doc.Lines = append(doc.Lines[:idx], doc.Lines[idx+1:]...)
		return nil
	})
}

// UpdateSettings patches the invoice settings of a draft.
func (s *Service) UpdateSettings(ctx context.Context, kind Kind, id string, in SettingsInput) (View, error) {
	return s.editDraft(ctx, kind, id, func(doc *Document) error {
		return in.apply(&doc.Settings)
	})
}

// RecordPayment adds a payment to an issued document. Overpayment is allowed.
func (s *Service) RecordPayment(ctx context.Context, kind Kind, id string, in PaymentInput) (View, error) {
	return s.locked(ctx, id, func(ctx context.Context) (View, error) { return s.recordPayment(ctx, kind, id, in) })
}

func (s *Service) recordPayment(ctx context.Context, kind Kind, id string, in PaymentInput) (View, error) {
	if err := s.check(in); err != nil {
		return View{}, err
	}
	amount, err := in.Amount.amount("amount")
	if err != nil {
		return View{}, err
	}
	if !amount.IsPositive() {
		return View{}, inputError("amount", in.Amount.text())
	}
	paidAt := s.clock()
	if in.PaidAt.text() != "" {
		if paidAt, err = invoice.ParseDate("paidAt", string(in.PaidAt)); err != nil {
			return View{}, err
		}
	}

	doc, err := s.load(ctx, kind, id)
	if err != nil {
		return View{}, err
	}
	if doc.Status != StatusIssued {
		return View{}, ErrInvalidTransition
	}
	wasOpen := doc.Totals().BalanceDue.IsPositive()
	mode := strings.TrimSpace(in.Mode)
	if mode == "" {
		mode = doc.Settings.PaymentMode
	}
	if mode == "" {
		mode = "cash"
	}
	doc.Payments = append(doc.Payments, Payment{
		ID:        uuid.NewString(),
		Amount:    amount,
		Mode:      mode,
		Reference: strings.TrimSpace(in.Reference),
		PaidAt:    paidAt,
	})
	doc.UpdatedAt = s.clock()
	saved, err := s.Store.Update(ctx, doc)
	if err != nil {
		return View{}, err
	}
	if wasOpen && !saved.Totals().BalanceDue.IsPositive() {
		s.emit(ctx, events.TopicDocumentPaid, saved)
	}
	return s.view(saved), nil
}

// Issue finalises a draft and applies its stock movements.
func (s *Service) Issue(ctx context.Context, kind Kind, id string) (View, error) {
	return s.locked(ctx, id, func(ctx context.Context) (View, error) { return s.issue(ctx, kind, id) })
}

func (s *Service) issue(ctx context.Context, kind Kind, id string) (View, error) {
	doc, err := s.load(ctx, kind, id)
	if err != nil {
		return View{}, err
	}
	if doc.Status != StatusDraft {
		return View{}, ErrInvalidTransition
	}
	if len(doc.Lines) == 0 {
		return View{}, ErrEmpty
	}
	undo, err := s.moveStock(ctx, doc, stockSign(doc.Kind))
	if err != nil {
		return View{}, err
	}
	now := s.clock()
	doc.Status = StatusIssued
	doc.IssuedAt = &now
	doc.UpdatedAt = now
	saved, err := s.Store.Update(ctx, doc)
	if err != nil {
		undo()
		return View{}, err
	}
	s.emit(ctx, events.TopicDocumentIssued, saved)
	return s.view(saved), nil
}

// Void cancels a draft, or an issued document without payments, reversing stock.
func (s *Service) Void(ctx context.Context, kind Kind, id string) (View, error) {
	return s.locked(ctx, id, func(ctx context.Context) (View, error) { return s.void(ctx, kind, id) })
}

func (s *Service) void(ctx context.Context, kind Kind, id string) (View, error) {
	doc, err := s.load(ctx, kind, id)
	if err != nil {
		return View{}, err
	}
	undo := func() {}
	switch doc.Status {
	case StatusDraft:
	case StatusIssued:
		if len(doc.Payments) > 0 {
			return View{}, ErrInvalidTransition
		}
		if undo, err = s.moveStock(ctx, doc, stockSign(doc.Kind).Neg()); err != nil {
			return View{}, err
		}
	default:
		return View{}, ErrInvalidTransition
	}
	doc.Status = StatusVoid
	doc.UpdatedAt = s.clock()
	saved, err := s.Store.Update(ctx, doc)
	if err != nil {
		undo()
		return View{}, err
	}
	s.emit(ctx, events.TopicDocumentVoided, saved)
	return s.view(saved), nil
}

// locked runs fn under the document lock when a Locker is configured.
func (s *Service) locked(ctx context.Context, id string, fn func(context.Context) (View, error)) (View, error) {
	if s.Locker == nil {
		return fn(ctx)
	}
	var out View
	err := s.Locker.WithLock(ctx, "lock:document:"+id, transitionLockTTL, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

func (s *Service) load(ctx context.Context, kind Kind, id string) (Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Document{}, ErrNotFound
	}
	doc, err := s.Store.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if kind != "" && doc.Kind != kind {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (s *Service) editDraft(ctx context.Context, kind Kind, id string, fn func(*Document) error) (View, error) {
	doc, err := s.load(ctx, kind, id)
	if err != nil {
		return View{}, err
	}
	if doc.Status != StatusDraft {
		return View{}, ErrNotEditable
	}
	if err := fn(&doc); err != nil {
		return View{}, err
	}
	doc.UpdatedAt = s.clock()
	saved, err := s.Store.Update(ctx, doc)
	if err != nil {
		return View{}, err
	}
	return s.view(saved), nil
}

func (s *Service) view(doc Document) View {
	obs.ObserveTotalsComputed()
	return NewView(doc)
}

func (s *Service) check(in any) error {
	if s.validate == nil {
		s.validate = common.NewValidator()
	}
	return common.Struct(s.validate, in)
}

// resolveParty fills the supplier name for purchases and requires a party name.
func (s *Service) resolveParty(ctx context.Context, doc *Document) error {
	if doc.Kind == KindPurchase && doc.PartyID != "" && s.Catalog != nil {
		supplier, err := s.Catalog.Supplier(ctx, doc.PartyID)
		if err != nil {
			if errors.Is(err, directory.ErrNotFound) {
				return inputError("partyId", doc.PartyID)
			}
			return err
		}
		if doc.PartyName == "" {
			doc.PartyName = supplier.Name
		}
	}
	if doc.PartyName == "" {
		return inputError("partyName", "")
	}
	return nil
}

func (s *Service) newLine(ctx context.Context, kind Kind, in LineInput) (Line, error) {
	line := Line{
		LineItem:     invoice.LineItem{ID: uuid.NewString(), Quantity: decimal.NewFromInt(1)},
		DiscountKind: DiscountAmount,
	}
	if err := in.apply(&line); err != nil {
		return Line{}, err
	}
	if line.ItemID != "" {
		if err := s.fillFromCatalog(ctx, kind, &line, in); err != nil {
			return Line{}, err
		}
	}
	if err := validateLine(line); err != nil {
		return Line{}, err
	}
	return line, nil
}

// fillFromCatalog copies name, price and tax rate from the linked inventory
// item where the input left them blank.
func (s *Service) fillFromCatalog(ctx context.Context, kind Kind, line *Line, in LineInput) error {
	if s.Catalog == nil {
		return nil
	}
	item, err := s.Catalog.Item(ctx, line.ItemID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return inputError("itemId", line.ItemID)
		}
		return err
	}
	if in.Name == nil || line.Name == "" {
		line.Name = item.Name
	}
	if in.UnitPrice == nil || in.UnitPrice.text() == "" {
		line.UnitPrice = item.SalePrice
		if kind == KindPurchase {
			line.UnitPrice = item.CostPrice
		}
	}
	if in.TaxPercent == nil || in.TaxPercent.text() == "" {
		line.TaxPercent = item.TaxPercent
	}
	if line.DiscountKind == DiscountPercent {
		line.DiscountAmount = invoice.DiscountFromPercent(line.Quantity.Mul(line.UnitPrice), line.DiscountPercent)
	}
	return nil
}

func stockSign(kind Kind) decimal.Decimal {
	if kind == KindPurchase {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}

// moveStock applies sign*quantity to every linked item. On failure already
// applied moves are reverted. The returned undo reverts a successful call.
func (s *Service) moveStock(ctx context.Context, doc Document, sign decimal.Decimal) (func(), error) {
	type move struct {
		itemID string
		delta  decimal.Decimal
	}
	var applied []move
	undo := func() {
		for i := len(applied) - 1; i >= 0; i-- {
			m := applied[i]
			if _, err := s.Catalog.AdjustStock(ctx, m.itemID, m.delta.Neg()); err != nil {
				s.Logger.Error().Err(err).Str("item_id", m.itemID).Str("document_id", doc.ID).Msg("revert stock adjustment")
			}
		}
	}
	if s.Catalog == nil {
		return func() {}, nil
	}
	direction := "in"
	if sign.IsNegative() {
		direction = "out"
	}
	for _, line := range doc.Lines {
		if line.ItemID == "" || line.Quantity.IsZero() {
			continue
		}
		delta := line.Quantity.Mul(sign)
		if _, err := s.Catalog.AdjustStock(ctx, line.ItemID, delta); err != nil {
			undo()
			if errors.Is(err, directory.ErrNotFound) {
				return nil, inputError("itemId", line.ItemID)
			}
			return nil, err
		}
		applied = append(applied, move{itemID: line.ItemID, delta: delta})
		obs.ObserveStockAdjustment(direction)
	}
	return undo, nil
}

func (s *Service) emit(ctx context.Context, topic string, doc Document) {
	if s.Events == nil {
		return
	}
	totals := doc.Totals()
	payload := map[string]any{
		"kind":          doc.Kind,
		"status":        doc.Status,
		"invoiceNumber": doc.Settings.InvoiceNumber,
		"partyName":     doc.PartyName,
		"total":         totals.Total,
		"balanceDue":    totals.BalanceDue,
	}
	if _, err := s.Events.Emit(ctx, topic, doc.ID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Str("document_id", doc.ID).Msg("emit document event")
	}
}
