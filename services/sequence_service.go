package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"venue-backend/metrics"
	"venue-backend/models"
)

// DefaultQuoteScope is the scope (and code prefix) of quote numbers.
const DefaultQuoteScope = "COT"

var (
	ErrInvalidScope = errors.New("invalid_scope")
	scopePattern    = regexp.MustCompile(`^[A-Z][A-Z0-9]{0,15}$`)
)

// NormalizeScope upper-cases and validates a sequence scope.
func NormalizeScope(scope string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(scope))
	if !scopePattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	return s, nil
}

// FormatCode renders a document number as PREFIX-### .
func FormatCode(scope string, n int64) string {
	return fmt.Sprintf("%s-%03d", scope, n)
}

// ParseCode extracts the number from a code issued under scope. Malformed
// codes report ok=false so callers treat them as "no number yet".
func ParseCode(scope, code string) (int64, bool) {
	prefix := scope + "-"
	code = strings.TrimSpace(code)
	if !strings.HasPrefix(code, prefix) {
		return 0, false
	}
	digits := code[len(prefix):]
	if len(digits) < 3 {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// SequenceService hands out document numbers from durable per-scope counters.
// Uniqueness relies on the store's row lock: the increment and the read back
// happen in one transaction.
type SequenceService struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewSequenceService(db *gorm.DB, log *zap.Logger) *SequenceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SequenceService{DB: db, Log: log}
}

// ReserveNext allocates the next number of scope and returns it formatted.
func (s *SequenceService) ReserveNext(ctx context.Context, scope string) (string, error) {
	scope, err := NormalizeScope(scope)
	if err != nil {
		return "", err
	}
	var n int64
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		n, txErr = ReserveNextTx(tx, scope)
		return txErr
	})
	if err != nil {
		return "", err
	}
	code := FormatCode(scope, n)
	s.Log.Debug("document number reserved", zap.String("scope", scope), zap.String("code", code))
	return code, nil
}

// EnsureAtLeast advances the counter of scope to min. It never moves it back.
func (s *SequenceService) EnsureAtLeast(ctx context.Context, scope string, min int64) error {
	scope, err := NormalizeScope(scope)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return EnsureAtLeastTx(tx, scope, min)
	})
}

// Current returns the last value issued for scope, 0 when nothing was issued.
func (s *SequenceService) Current(ctx context.Context, scope string) (int64, error) {
	scope, err := NormalizeScope(scope)
	if err != nil {
		return 0, err
	}
	var seq models.DocSequence
	err = s.DB.WithContext(ctx).Where("scope = ?", scope).First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read sequence %s: %w", scope, err)
	}
	return seq.LastValue, nil
}

func ensureSequenceRow(tx *gorm.DB, scope string) error {
	row := models.DocSequence{Scope: scope, UpdatedAt: time.Now().UTC()}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("create sequence %s: %w", scope, err)
	}
	return nil
}

// ReserveNextTx increments the counter of an already normalized scope inside
// tx and returns the new value. The row stays locked until tx ends, so a
// concurrent caller blocks instead of reading the same value.
func ReserveNextTx(tx *gorm.DB, scope string) (int64, error) {
	if err := ensureSequenceRow(tx, scope); err != nil {
		return 0, err
	}
	res := tx.Model(&models.DocSequence{}).
		Where("scope = ?", scope).
		Updates(map[string]interface{}{
			"last_value": gorm.Expr("last_value + ?", 1),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("increment sequence %s: %w", scope, res.Error)
	}
	var seq models.DocSequence
	if err := tx.Where("scope = ?", scope).First(&seq).Error; err != nil {
		return 0, fmt.Errorf("read sequence %s: %w", scope, err)
	}
	metrics.SequenceAllocations.WithLabelValues(scope).Inc()
	return seq.LastValue, nil
}

// EnsureAtLeastTx is EnsureAtLeast inside an open transaction.
func EnsureAtLeastTx(tx *gorm.DB, scope string, min int64) error {
	if min <= 0 {
		return nil
	}
	if err := ensureSequenceRow(tx, scope); err != nil {
		return err
	}
	err := tx.Model(&models.DocSequence{}).
		Where("scope = ? AND last_value < ?", scope, min).
		Updates(map[string]interface{}{
			"last_value": min,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("advance sequence %s: %w", scope, err)
	}
	return nil
}
