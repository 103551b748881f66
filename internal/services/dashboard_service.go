package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"products-dashboard/internal/models"
	"products-dashboard/internal/viewstate"
)

var (
	// ErrPageSizeTooLarge is returned when a page size exceeds the configured cap
	ErrPageSizeTooLarge = errors.New("items per page exceeds the maximum")
)

// ProductsAPI is the remote API that owns the records
type ProductsAPI interface {
	UpdateProduct(ctx context.Context, id models.ProductID, payload models.ProductPayload) (*models.Product, error)
	CreateProduct(ctx context.Context, payload models.ProductPayload) (*models.Product, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
}

// SnapshotSource provides the initial product dataset
type SnapshotSource interface {
	Load(ctx context.Context) ([]models.Product, error)
	Refresh(ctx context.Context) ([]models.Product, error)
}

// AuditStore persists the mutation trail
type AuditStore interface {
	Record(ctx context.Context, entry *models.AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error)
	ListByProduct(ctx context.Context, productID models.ProductID, limit int) ([]models.AuditEntry, error)
}

// EventPublisher announces confirmed mutations
type EventPublisher interface {
	PublishProductCreated(ctx context.Context, sessionID string, product *models.Product)
	PublishProductUpdated(ctx context.Context, sessionID string, product *models.Product)
	PublishReconcileFailed(ctx context.Context, sessionID string, productID models.ProductID, reason string)
}

// Options configures the per-session controllers
type Options struct {
	DefaultItemsPerPage int
	MaxItemsPerPage     int
	IdleTimeout         time.Duration
}

// ExportResult is the visible page captured for a download
type ExportResult struct {
	Page  int
	CSV   string
	Items []models.Product
}

// session owns one controller. mu guards every controller call.
type session struct {
	id         string
	mu         sync.Mutex
	controller *viewstate.Controller
	lastSeen   time.Time
}

// DashboardService keeps one view-state controller per browser session and
// coordinates remote mutations with local state.
type DashboardService struct {
	snapshots SnapshotSource
	api       ProductsAPI
	audit     AuditStore
	events    EventPublisher
	opts      Options
	logger    *logrus.Entry
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewDashboardService creates the service. audit and events may be nil.
func NewDashboardService(snapshots SnapshotSource, api ProductsAPI, audit AuditStore, events EventPublisher, opts Options, logger *logrus.Logger) *DashboardService {
	if opts.DefaultItemsPerPage < 1 {
		opts.DefaultItemsPerPage = viewstate.DefaultItemsPerPage
	}
	if opts.MaxItemsPerPage < opts.DefaultItemsPerPage {
		opts.MaxItemsPerPage = opts.DefaultItemsPerPage
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &DashboardService{
		snapshots: snapshots,
		api:       api,
		audit:     audit,
		events:    events,
		opts:      opts,
		logger:    logger.WithField("component", "dashboard_service"),
		now:       time.Now,
		sessions:  make(map[string]*session),
	}
}

// acquire returns the session locked. A new session loads the snapshot
// before anyone else can see it; a failed load leaves it empty and is reported
// once as a DataLoadError. The caller must unlock sess.mu.
func (s *DashboardService) acquire(ctx context.Context, sessionID string) (*session, error) {
	return s.lockSession(ctx, sessionID, true)
}

func (s *DashboardService) lockSession(ctx context.Context, sessionID string, load bool) (*session, error) {
	now := s.now()

	s.mu.Lock()
	s.pruneLocked(now)
	sess, ok := s.sessions[sessionID]
	if ok {
		sess.lastSeen = now
		s.mu.Unlock()
		sess.mu.Lock()
		return sess, nil
	}
	sess = s.newSession(sessionID, now)
	sess.mu.Lock()
	s.sessions[sessionID] = sess
	s.mu.Unlock()

	if !load {
		return sess, nil
	}

	products, err := s.snapshots.Load(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("session_id", sessionID).Error("Failed to load snapshot for new session")
		if ctx.Err() != nil {
			// the caller went away; the next request for this session loads again
			s.mu.Lock()
			if s.sessions[sessionID] == sess {
				delete(s.sessions, sessionID)
			}
			s.mu.Unlock()
		}
		return sess, err
	}
	sess.controller.Load(products)
	s.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"count":      len(products),
	}).Info("Session created")
	return sess, nil
}

func (s *DashboardService) newSession(sessionID string, now time.Time) *session {
	log := s.logger.WithField("session_id", sessionID)
	controller := viewstate.New(
		viewstate.WithItemsPerPage(s.opts.DefaultItemsPerPage),
		viewstate.WithRenderer(func(v viewstate.PageView) {
			log.WithFields(logrus.Fields{
				"page":    v.Pagination.Page,
				"summary": v.Summary(),
				"search":  v.Search,
				"sort":    v.Sort.Column,
			}).Debug("View rendered")
		}),
	)
	return &session{id: sessionID, controller: controller, lastSeen: now}
}

func (s *DashboardService) pruneLocked(now time.Time) int {
	pruned := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.opts.IdleTimeout {
			delete(s.sessions, id)
			pruned++
		}
	}
	if pruned > 0 {
		s.logger.WithField("pruned", pruned).Debug("Pruned idle sessions")
	}
	return pruned
}

// PruneIdle drops sessions idle for longer than the configured timeout
func (s *DashboardService) PruneIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(s.now())
}

// StartJanitor prunes idle sessions every interval until ctx is done
func (s *DashboardService) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.PruneIdle()
			}
		}
	}()
}

// ActiveSessions returns the number of live sessions
func (s *DashboardService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// View returns the current view of a session
func (s *DashboardService) View(ctx context.Context, sessionID string) (viewstate.PageView, error) {
	sess, err := s.acquire(ctx, sessionID)
	defer sess.mu.Unlock()
	return sess.controller.View(), err
}

// Search applies a title filter
func (s *DashboardService) Search(ctx context.Context, sessionID, term string) (viewstate.PageView, error) {
	sess, err := s.acquire(ctx, sessionID)
	defer sess.mu.Unlock()
	if err != nil {
		return sess.controller.View(), err
	}
	return sess.controller.ApplySearch(term), nil
}

// Sort applies the sort toggle rule to column
func (s *DashboardService) Sort(ctx context.Context, sessionID, column string) (viewstate.PageView, error) {
	sess, err := s.acquire(ctx, sessionID)
	defer sess.mu.Unlock()
	if err != nil {
		return sess.controller.View(), err
	}
	return sess.controller.ApplySort(column)
}

// SetItemsPerPage changes the page size, bounded by MaxItemsPerPage
func (s *DashboardService) SetItemsPerPage(ctx context.Context, sessionID string, n int) (viewstate.PageView, error) {
	sess, err := s.acquire(ctx, sessionID)
	defer sess.mu.Unlock()
	if err != nil {
		return sess.controller.View(), err
	}
	if n > s.opts.MaxItemsPerPage {
		return sess.controller.View(), fmt.Errorf("%w: %d > %d", ErrPageSizeTooLarge, n, s.opts.MaxItemsPerPage)
	}
	return sess.controller.SetItemsPerPage(n)
}

// GoToPage navigates; changed is false for out-of-range pages
func (s *DashboardService) GoToPage(ctx context.Context, sessionID string, page int) (viewstate.PageView, bool, error) {
	sess, err := s.acquire(ctx, sessionID)
	defer sess.mu.Unlock()
	if err != nil {
		return sess.controller.View(), false, err
	}
	view, changed := sess.controller.GoToPage(page)
	return view, changed, nil
}

// Detail opens the detail view of a product
func (s *DashboardService) Detail(ctx context.Context, sessionID string, id models.ProductID) (models.Product, error) {
	sess, err := s.acquire(ctx, sessionID)
	defer sess.mu.Unlock()
	if err != nil {
		return models.Product{}, err
	}
	return sess.controller.ViewDetail(id)
}

// EditForm opens the detail view and returns the pre-filled edit form
func (s *DashboardService) EditForm(ctx context.Context, sessionID string, id models.ProductID) (models.EditForm, error) {
	product, err := s.Detail(ctx, sessionID, id)
	if err != nil {
		return models.EditForm{}, err
	}
	return models.EditFormFrom(product), nil
}

// Update sends the change to the remote API and splices the confirmed record
// into the session. Local state is untouched when the API call fails.
func (s *DashboardService) Update(ctx context.Context, sessionID string, id models.ProductID, payload models.ProductPayload) (*models.Product, viewstate.PageView, error) {
	sess, err := s.acquire(ctx, sessionID)
	sess.mu.Unlock()
	if err != nil {
		return nil, viewstate.PageView{}, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"product_id": id,
	})

	updated, err := s.api.UpdateProduct(ctx, id, payload)
	if err != nil {
		mutErr := &models.MutationError{Op: "update", ProductID: id, Err: err}
		log.WithError(err).Error("Remote update failed")
		s.record(ctx, &models.AuditEntry{
			SessionID:  sessionID,
			Action:     models.AuditActionMutationFailed,
			ProductID:  id.String(),
			Title:      payload.Title,
			StatusCode: mutErr.StatusCode(),
			Message:    err.Error(),
			Payload:    payloadJSON("update", payload),
		})
		return nil, s.currentView(sess), mutErr
	}

	sess.mu.Lock()
	view, err := sess.controller.ApplyUpdate(id, *updated)
	sess.mu.Unlock()

	if errors.Is(err, models.ErrProductNotFound) {
		log.WithError(err).Warn("Remote update succeeded but the product is not in the local dataset")
		s.record(ctx, &models.AuditEntry{
			SessionID: sessionID,
			Action:    models.AuditActionReconcileFailed,
			ProductID: id.String(),
			Title:     updated.Title,
			Message:   err.Error(),
			Payload:   payloadJSON("update", payload),
		})
		s.publishReconcileFailed(ctx, sessionID, id, err.Error())
		return updated, view, fmt.Errorf("%w: %w", models.ErrReconcileFailed, err)
	}
	if err != nil {
		return updated, view, err
	}

	log.Info("Product updated")
	s.record(ctx, &models.AuditEntry{
		SessionID: sessionID,
		Action:    models.AuditActionUpdate,
		ProductID: id.String(),
		Title:     updated.Title,
		Payload:   payloadJSON("update", payload),
	})
	if s.events != nil {
		s.events.PublishProductUpdated(ctx, sessionID, updated)
	}
	return updated, view, nil
}

// Create sends a new record to the remote API and prepends the confirmed
// record to the session's dataset.
func (s *DashboardService) Create(ctx context.Context, sessionID string, payload models.ProductPayload) (*models.Product, viewstate.PageView, error) {
	sess, err := s.acquire(ctx, sessionID)
	sess.mu.Unlock()
	if err != nil {
		return nil, viewstate.PageView{}, err
	}

	log := s.logger.WithField("session_id", sessionID)

	created, err := s.api.CreateProduct(ctx, payload)
	if err != nil {
		mutErr := &models.MutationError{Op: "create", Err: err}
		log.WithError(err).Error("Remote create failed")
		s.record(ctx, &models.AuditEntry{
			SessionID:  sessionID,
			Action:     models.AuditActionMutationFailed,
			Title:      payload.Title,
			StatusCode: mutErr.StatusCode(),
			Message:    err.Error(),
			Payload:    payloadJSON("create", payload),
		})
		return nil, s.currentView(sess), mutErr
	}

	sess.mu.Lock()
	view := sess.controller.ApplyCreate(*created)
	sess.mu.Unlock()

	log.WithField("product_id", created.ID).Info("Product created")
	s.record(ctx, &models.AuditEntry{
		SessionID: sessionID,
		Action:    models.AuditActionCreate,
		ProductID: created.ID.String(),
		Title:     created.Title,
		Payload:   payloadJSON("create", payload),
	})
	if s.events != nil {
		s.events.PublishProductCreated(ctx, sessionID, created)
	}
	return created, view, nil
}

// Reload re-reads the snapshot, bypassing the cache. On failure the session
// keeps its previous dataset. A session created by Reload is filled by the
// refresh alone.
func (s *DashboardService) Reload(ctx context.Context, sessionID string) (viewstate.PageView, error) {
	sess, err := s.lockSession(ctx, sessionID, false)
	sess.mu.Unlock()
	if err != nil {
		return s.currentView(sess), err
	}

	products, err := s.snapshots.Refresh(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("session_id", sessionID).Error("Snapshot reload failed")
		return s.currentView(sess), err
	}

	sess.mu.Lock()
	view := sess.controller.Load(products)
	sess.mu.Unlock()

	s.record(ctx, &models.AuditEntry{
		SessionID: sessionID,
		Action:    models.AuditActionSnapshotLoaded,
		Payload:   models.JSON{"count": len(products)},
	})
	return view, nil
}

// Export captures the visible page for a download
func (s *DashboardService) Export(ctx context.Context, sessionID string) (ExportResult, error) {
	sess, err := s.acquire(ctx, sessionID)
	defer sess.mu.Unlock()
	if err != nil {
		return ExportResult{}, err
	}
	return ExportResult{
		Page:  sess.controller.CurrentPage(),
		CSV:   sess.controller.ExportCurrentPage(),
		Items: sess.controller.VisibleItems(),
	}, nil
}

// Categories lists the remote categories for the edit and create forms
func (s *DashboardService) Categories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.api.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// AuditTrail lists recent audit entries, optionally for one product
func (s *DashboardService) AuditTrail(ctx context.Context, productID models.ProductID, limit int) ([]models.AuditEntry, error) {
	if s.audit == nil {
		return []models.AuditEntry{}, nil
	}
	if productID != "" {
		return s.audit.ListByProduct(ctx, productID, limit)
	}
	return s.audit.ListRecent(ctx, limit)
}

func (s *DashboardService) currentView(sess *session) viewstate.PageView {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.controller.View()
}

// record never fails the request; the audit trail is best effort
func (s *DashboardService) record(ctx context.Context, entry *models.AuditEntry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("action", entry.Action).Warn("Failed to record audit entry")
	}
}

func (s *DashboardService) publishReconcileFailed(ctx context.Context, sessionID string, id models.ProductID, reason string) {
	if s.events != nil {
		s.events.PublishReconcileFailed(ctx, sessionID, id, reason)
	}
}

func payloadJSON(op string, p models.ProductPayload) models.JSON {
	return models.JSON{
		"op":          op,
		"title":       p.Title,
		"price":       p.Price,
		"description": p.Description,
		"categoryId":  p.CategoryID,
		"images":      p.Images,
	}
}
