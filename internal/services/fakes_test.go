package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/biomarker-backend/internal/data/repos"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/biomarker-backend/internal/pkg/errors"
	"github.com/yungbote/biomarker-backend/internal/platform/llm"
	"github.com/yungbote/biomarker-backend/internal/realtime"
)

// memStore backs every fake repo in this package's tests.
type memStore struct {
	mu sync.Mutex

	docs       map[uuid.UUID]*types.Document
	readings   map[uuid.UUID][]*types.BiomarkerReading
	docUpdates []*types.DocumentProcessingUpdate

	biomarkers []*types.Biomarker
	profiles   map[uuid.UUID]*types.UserProfile

	analyses        map[uuid.UUID]*types.HealthAnalysis
	analysisUpdates []*types.AnalysisProcessingUpdate

	partners map[uuid.UUID]*types.Partner
	products map[uuid.UUID]*types.PartnerProduct
	carts    map[uuid.UUID]*types.Cart
	orders   map[uuid.UUID]*types.Order

	// cartRace makes the next cart Create lose against a concurrent insert.
	cartRace bool
	// failOrderItems makes CreateItems fail.
	failOrderItems bool
}

func newMemStore() *memStore {
	return &memStore{
		docs:     map[uuid.UUID]*types.Document{},
		readings: map[uuid.UUID][]*types.BiomarkerReading{},
		profiles: map[uuid.UUID]*types.UserProfile{},
		analyses: map[uuid.UUID]*types.HealthAnalysis{},
		partners: map[uuid.UUID]*types.Partner{},
		products: map[uuid.UUID]*types.PartnerProduct{},
		carts:    map[uuid.UUID]*types.Cart{},
		orders:   map[uuid.UUID]*types.Order{},
	}
}

func (m *memStore) doc(id uuid.UUID) *types.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.docs[id]
	if d == nil {
		return nil
	}
	cp := *d
	return &cp
}

// ---- documents ----

type fakeDocRepo struct{ *memStore }

func (f fakeDocRepo) Create(_ dbctx.Context, doc *types.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := time.Now().UTC()
	doc.CreatedAt, doc.UpdatedAt = now, now
	cp := *doc
	f.docs[doc.ID] = &cp
	return nil
}

func (f fakeDocRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Document, error) {
	if d := f.doc(id); d != nil {
		return d, nil
	}
	return nil, pkgerrors.ErrNotFound
}

func (f fakeDocRepo) GetForUser(_ dbctx.Context, userID, id uuid.UUID) (*types.Document, error) {
	d := f.doc(id)
	if d == nil || d.UserID != userID {
		return nil, pkgerrors.ErrNotFound
	}
	return d, nil
}

func (f fakeDocRepo) ListForUser(_ dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Document
	for _, d := range f.docs {
		if d.UserID == userID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f fakeDocRepo) SetStatus(_ dbctx.Context, id uuid.UUID, status types.DocumentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.docs[id]
	if d == nil {
		return pkgerrors.ErrNotFound
	}
	d.Status = status
	return nil
}

func (f fakeDocRepo) TryStartProcessing(_ dbctx.Context, id uuid.UUID, staleBefore time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.docs[id]
	if d == nil {
		return false, nil
	}
	stale := d.Status == types.DocumentStatusProcessing &&
		(d.ProcessingStartedAt == nil || d.ProcessingStartedAt.Before(staleBefore))
	if !d.Status.Startable() && !stale {
		return false, nil
	}
	now := time.Now().UTC()
	d.Status = types.DocumentStatusProcessing
	d.ErrorMessage = ""
	d.ProcessingStartedAt = &now
	return true, nil
}

func (f fakeDocRepo) MarkFailed(_ dbctx.Context, id uuid.UUID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.docs[id]
	if d == nil {
		return pkgerrors.ErrNotFound
	}
	d.Status = types.DocumentStatusFailed
	d.ErrorMessage = message
	return nil
}

func (f fakeDocRepo) CompleteWithReadings(_ dbctx.Context, id uuid.UUID, extracted, ocrMeta datatypes.JSON, readings []*types.BiomarkerReading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.docs[id]
	if d == nil {
		return pkgerrors.ErrNotFound
	}
	for _, r := range readings {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
	}
	now := time.Now().UTC()
	f.readings[id] = append(f.readings[id], readings...)
	d.Status = types.DocumentStatusCompleted
	d.ExtractedData = extracted
	d.OCRMetadata = ocrMeta
	d.ProcessedAt = &now
	return nil
}

type fakeReadingRepo struct{ *memStore }

func (f fakeReadingRepo) ListByDocument(_ dbctx.Context, documentID uuid.UUID) ([]*types.BiomarkerReading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*types.BiomarkerReading, 0, len(f.readings[documentID]))
	for _, r := range f.readings[documentID] {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (f fakeReadingRepo) ListByDocumentIDs(dbc dbctx.Context, documentIDs []uuid.UUID) ([]*types.BiomarkerReading, error) {
	var out []*types.BiomarkerReading
	for _, id := range documentIDs {
		rows, _ := f.ListByDocument(dbc, id)
		out = append(out, rows...)
	}
	return out, nil
}

func (f fakeReadingRepo) ApplyClassifications(_ dbctx.Context, rows []repos.ReadingClassification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyClassificationsLocked(rows)
	return nil
}

func (m *memStore) applyClassificationsLocked(rows []repos.ReadingClassification) {
	for _, c := range rows {
		for _, list := range m.readings {
			for _, r := range list {
				if r.ID == c.ReadingID {
					r.Status, r.Severity = c.Status, c.Severity
				}
			}
		}
	}
}

type fakeDocUpdateRepo struct{ *memStore }

func (f fakeDocUpdateRepo) Append(_ dbctx.Context, row *types.DocumentProcessingUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *row
	f.docUpdates = append(f.docUpdates, &cp)
	return nil
}

func (f fakeDocUpdateRepo) ListByDocument(_ dbctx.Context, documentID uuid.UUID) ([]*types.DocumentProcessingUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.DocumentProcessingUpdate
	for _, u := range f.docUpdates {
		if u.DocumentID == documentID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) docPhases(documentID uuid.UUID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, u := range m.docUpdates {
		if u.DocumentID == documentID {
			out = append(out, u.Phase)
		}
	}
	return out
}

// ---- catalogue / profile ----

type fakeBiomarkerRepo struct{ *memStore }

func (f fakeBiomarkerRepo) ListAll(dbctx.Context) ([]*types.Biomarker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Biomarker(nil), f.biomarkers...), nil
}

func (f fakeBiomarkerRepo) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.Biomarker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Biomarker
	for _, b := range f.biomarkers {
		for _, id := range ids {
			if b.ID == id {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

func (f fakeBiomarkerRepo) Upsert(_ dbctx.Context, b *types.Biomarker) (*types.Biomarker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	f.biomarkers = append(f.biomarkers, b)
	return b, nil
}

type fakeProfileRepo struct{ *memStore }

func (f fakeProfileRepo) GetByUserID(_ dbctx.Context, userID uuid.UUID) (*types.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.profiles[userID]
	if p == nil {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f fakeProfileRepo) Upsert(_ dbctx.Context, row *types.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	cp := *row
	f.profiles[row.UserID] = &cp
	return nil
}

func (f fakeProfileRepo) CountUsers(dbctx.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.profiles)), nil
}

// ---- analyses ----

type fakeAnalysisRepo struct{ *memStore }

func (f fakeAnalysisRepo) Save(_ dbctx.Context, a *types.HealthAnalysis, classifications []repos.ReadingClassification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()
	cp := *a
	f.analyses[a.ID] = &cp
	f.applyClassificationsLocked(classifications)
	return nil
}

func (f fakeAnalysisRepo) GetForUser(_ dbctx.Context, userID, id uuid.UUID) (*types.HealthAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.analyses[id]
	if a == nil || a.UserID != userID {
		return nil, pkgerrors.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f fakeAnalysisRepo) ListForUser(_ dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.HealthAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.HealthAnalysis
	for _, a := range f.analyses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f fakeAnalysisRepo) ListByDocument(_ dbctx.Context, userID, documentID uuid.UUID) ([]*types.HealthAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.HealthAnalysis
	for _, a := range f.analyses {
		if a.UserID == userID && a.DocumentID == documentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f fakeAnalysisRepo) Exists(_ dbctx.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.analyses[id]
	return ok, nil
}

type fakeAnalysisUpdateRepo struct{ *memStore }

func (f fakeAnalysisUpdateRepo) HasUpdates(_ dbctx.Context, analysisID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.analysisUpdates {
		if u.AnalysisID == analysisID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeAnalysisUpdateRepo) Append(_ dbctx.Context, row *types.AnalysisProcessingUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *row
	f.analysisUpdates = append(f.analysisUpdates, &cp)
	return nil
}

func (f fakeAnalysisUpdateRepo) ListForUser(_ dbctx.Context, userID, analysisID uuid.UUID) ([]*types.AnalysisProcessingUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.AnalysisProcessingUpdate
	for _, u := range f.analysisUpdates {
		if u.UserID == userID && u.AnalysisID == analysisID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) analysisPhases(analysisID uuid.UUID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, u := range m.analysisUpdates {
		if u.AnalysisID == analysisID {
			out = append(out, u.Phase)
		}
	}
	return out
}

// ---- commerce ----

type fakeProductRepo struct{ *memStore }

func (f fakeProductRepo) ListActive(_ dbctx.Context, category string) ([]*types.PartnerProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.PartnerProduct
	for _, p := range f.products {
		if p.Active && (category == "" || p.Category == category) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f fakeProductRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.PartnerProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[id]
	if p == nil {
		return nil, pkgerrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f fakeProductRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.PartnerProduct, error) {
	var out []*types.PartnerProduct
	for _, id := range ids {
		if p, err := f.GetByID(dbc, id); err == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f fakeProductRepo) DecrementStock(_ dbctx.Context, id uuid.UUID, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[id]
	if p == nil || p.StockQuantity < qty {
		return pkgerrors.ErrConflict
	}
	p.StockQuantity -= qty
	return nil
}

func (f fakeProductRepo) UpsertByName(_ dbctx.Context, p *types.PartnerProduct) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	f.products[p.ID] = &cp
	return nil
}

type fakePartnerRepo struct{ *memStore }

func (f fakePartnerRepo) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.Partner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[uuid.UUID]bool{}
	var out []*types.Partner
	for _, id := range ids {
		if p := f.partners[id]; p != nil && !seen[id] {
			seen[id] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func (f fakePartnerRepo) UpsertByName(_ dbctx.Context, p *types.Partner) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.partners[p.ID] = p
	return nil
}

type fakeCartRepo struct{ *memStore }

func (f fakeCartRepo) GetByUserID(_ dbctx.Context, userID uuid.UUID) (*types.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.carts {
		if c.UserID != userID {
			continue
		}
		cp := *c
		cp.Items = make([]types.CartItem, 0, len(c.Items))
		for _, it := range c.Items {
			if p := f.products[it.ProductID]; p != nil {
				pc := *p
				it.Product = &pc
			}
			cp.Items = append(cp.Items, it)
		}
		return &cp, nil
	}
	return nil, nil
}

func (f fakeCartRepo) Create(_ dbctx.Context, cart *types.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cartRace {
		f.cartRace = false
		winner := &types.Cart{ID: uuid.New(), UserID: cart.UserID}
		f.carts[winner.ID] = winner
		return pkgerrors.ErrConflict
	}
	for _, c := range f.carts {
		if c.UserID == cart.UserID {
			return pkgerrors.ErrConflict
		}
	}
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	f.carts[cart.ID] = &types.Cart{ID: cart.ID, UserID: cart.UserID}
	return nil
}

func (f fakeCartRepo) GetItem(_ dbctx.Context, cartID, itemID uuid.UUID) (*types.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.carts[cartID]
	if c == nil {
		return nil, pkgerrors.ErrNotFound
	}
	for _, it := range c.Items {
		if it.ID == itemID {
			if p := f.products[it.ProductID]; p != nil {
				pc := *p
				it.Product = &pc
			}
			return &it, nil
		}
	}
	return nil, pkgerrors.ErrNotFound
}

func (f fakeCartRepo) GetItemByProduct(_ dbctx.Context, cartID, productID uuid.UUID) (*types.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.carts[cartID]
	if c == nil {
		return nil, nil
	}
	for _, it := range c.Items {
		if it.ProductID == productID {
			return &it, nil
		}
	}
	return nil, nil
}

func (f fakeCartRepo) CreateItem(_ dbctx.Context, item *types.CartItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.carts[item.CartID]
	if c == nil {
		return pkgerrors.ErrInvalidArgument
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	c.Items = append(c.Items, *item)
	return nil
}

func (f fakeCartRepo) UpdateItemQuantity(_ dbctx.Context, itemID uuid.UUID, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.carts {
		for i := range c.Items {
			if c.Items[i].ID == itemID {
				c.Items[i].Quantity = qty
				return nil
			}
		}
	}
	return nil
}

func (f fakeCartRepo) DeleteItem(_ dbctx.Context, cartID, itemID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.carts[cartID]
	if c == nil {
		return false, nil
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f fakeCartRepo) ClearItems(_ dbctx.Context, cartID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c := f.carts[cartID]; c != nil {
		c.Items = nil
	}
	return nil
}

type fakeOrderRepo struct{ *memStore }

func (f fakeOrderRepo) Create(_ dbctx.Context, order *types.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.OrderNumber == order.OrderNumber {
			return pkgerrors.ErrConflict
		}
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = time.Now().UTC()
	cp := *order
	cp.Items = nil
	f.orders[order.ID] = &cp
	return nil
}

func (f fakeOrderRepo) CreateItems(_ dbctx.Context, items []*types.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOrderItems {
		return pkgerrors.ErrInvalidArgument
	}
	for _, it := range items {
		o := f.orders[it.OrderID]
		if o == nil {
			return pkgerrors.ErrInvalidArgument
		}
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		o.Items = append(o.Items, *it)
	}
	return nil
}

func (f fakeOrderRepo) Delete(_ dbctx.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.orders, id)
	return nil
}

func (f fakeOrderRepo) GetForUser(_ dbctx.Context, userID, id uuid.UUID) (*types.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.orders[id]
	if o == nil || o.UserID != userID {
		return nil, pkgerrors.ErrNotFound
	}
	cp := *o
	cp.Items = append([]types.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (f fakeOrderRepo) ListForUser(_ dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f fakeOrderRepo) ConfirmPending(_ dbctx.Context, id uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.orders[id]
	if o == nil || o.Status != types.OrderStatusPendingPayment {
		return false, nil
	}
	o.Status = types.OrderStatusConfirmed
	o.ConfirmedAt = &at
	return true, nil
}

func (f fakeOrderRepo) ListRecent(_ dbctx.Context, limit int) ([]*types.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Order
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out, nil
}

// ---- collaborators ----

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (s *fakeObjectStore) Upload(_ context.Context, _ string, key, _ string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *fakeObjectStore) Download(_ context.Context, _ string, key string, _ int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	b, ok := s.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return b, nil
}

type fakeOCR struct {
	res      *OCRResult
	err      error
	calls    int
	deadline time.Time
}

func (f *fakeOCR) Extract(ctx context.Context, _ []byte, _ string) (*OCRResult, error) {
	f.calls++
	f.deadline, _ = ctx.Deadline()
	return f.res, f.err
}

type fakeExtractor struct {
	result ExtractionResult
	err    error
}

func (f *fakeExtractor) Extract(context.Context, string, []*types.Biomarker) (ExtractionResult, error) {
	return f.result, f.err
}

type fakeLLM struct {
	resp  *llm.Response
	err   error
	calls int
	last  llm.Request
}

func (f *fakeLLM) GenerateJSON(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.calls++
	f.last = req
	return f.resp, f.err
}

func (f *fakeLLM) Provider() string { return "fake" }
func (f *fakeLLM) Model() string    { return "fake-model" }

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (n *recordingNotifier) Publish(_ context.Context, msg realtime.SSEMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *recordingNotifier) events() []realtime.SSEEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]realtime.SSEEvent, 0, len(n.msgs))
	for _, m := range n.msgs {
		out = append(out, m.Event)
	}
	return out
}

func dbcFor() dbctx.Context { return dbctx.New(context.Background()) }
