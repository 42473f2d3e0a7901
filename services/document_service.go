package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"venue-backend/metrics"
	"venue-backend/models"
)

var (
	// ErrDocumentNotFound means the relational projection was never populated.
	ErrDocumentNotFound = errors.New("document_not_populated")
	// ErrInvalidDocument wraps every validation failure of an incoming document.
	ErrInvalidDocument = errors.New("invalid_document")
)

// Snapshot is a document as read back from the store.
type Snapshot struct {
	Document  models.Document `json:"document"`
	Revision  int64           `json:"revision"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// SaveResult describes a committed reconciliation.
type SaveResult struct {
	Revision        int64             `json:"revision"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	ReassignedCodes map[string]string `json:"reassignedCodes"`
}

// DocumentService keeps the relational projection equal to the latest
// document written by any session. Every write replaces the projection as a
// whole inside one transaction; the last transaction to commit wins.
type DocumentService struct {
	DB         *gorm.DB
	Log        *zap.Logger
	QuoteScope string
	Cache      SnapshotCache

	now func() time.Time
}

func NewDocumentService(db *gorm.DB, log *zap.Logger, quoteScope string) *DocumentService {
	if log == nil {
		log = zap.NewNop()
	}
	scope, err := NormalizeScope(quoteScope)
	if err != nil {
		scope = DefaultQuoteScope
	}
	return &DocumentService{
		DB:         db,
		Log:        log,
		QuoteScope: scope,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Save runs the reconciliation transaction for doc. On any error the store is
// left exactly as it was.
func (s *DocumentService) Save(ctx context.Context, doc models.Document) (*SaveResult, error) {
	start := time.Now()
	doc, err := cloneDocument(doc)
	if err == nil {
		err = s.prepare(&doc)
	}
	if err != nil {
		metrics.Reconciliations.WithLabelValues("invalid").Inc()
		return nil, err
	}

	var result *SaveResult
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.reconcile(tx, &doc)
		return txErr
	})
	metrics.ReconciliationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Reconciliations.WithLabelValues(classifyStoreError(err)).Inc()
		s.Log.Error("reconciliation rolled back", zap.Error(err), zap.Int("events", len(doc.Events)))
		return nil, fmt.Errorf("reconcile document: %w", err)
	}
	metrics.Reconciliations.WithLabelValues("committed").Inc()
	s.Log.Info("document reconciled",
		zap.Int64("revision", result.Revision),
		zap.Int("events", len(doc.Events)),
		zap.Int("reassigned_codes", len(result.ReassignedCodes)),
		zap.Duration("took", time.Since(start)),
	)
	return result, nil
}

// Load rebuilds the document from the relational projection. It returns
// ErrDocumentNotFound when nothing was ever written.
func (s *DocumentService) Load(ctx context.Context) (*Snapshot, error) {
	var (
		snap   *Snapshot
		cached bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meta, err := readMeta(tx)
		if err != nil {
			return err
		}
		if s.Cache != nil {
			if doc, ok := s.Cache.Get(ctx, meta.Revision); ok {
				snap = &Snapshot{Document: *doc, Revision: meta.Revision, UpdatedAt: meta.UpdatedAt}
				cached = true
				return nil
			}
		}
		doc, err := s.readDocument(tx)
		if err != nil {
			return err
		}
		snap = &Snapshot{Document: *doc, Revision: meta.Revision, UpdatedAt: meta.UpdatedAt}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load document: %w", err)
	}
	if s.Cache != nil && !cached {
		s.Cache.Set(ctx, snap.Revision, &snap.Document)
	}
	return snap, nil
}

// Revision returns the revision of the stored document without loading it.
func (s *DocumentService) Revision(ctx context.Context) (int64, error) {
	meta, err := readMeta(s.DB.WithContext(ctx))
	if err != nil {
		return 0, err
	}
	return meta.Revision, nil
}

func readMeta(tx *gorm.DB) (*models.DocumentMeta, error) {
	var meta models.DocumentMeta
	err := tx.First(&meta, models.DocumentMetaID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read document meta: %w", err)
	}
	if meta.Revision <= 0 {
		return nil, ErrDocumentNotFound
	}
	meta.UpdatedAt = meta.UpdatedAt.UTC()
	return &meta, nil
}
