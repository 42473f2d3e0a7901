package services

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestFormatAndParseCode(t *testing.T) {
	assert.Equal(t, "COT-007", FormatCode("COT", 7))
	assert.Equal(t, "COT-1234", FormatCode("COT", 1234))

	valid := map[string]int64{"COT-001": 1, "COT-007": 7, " COT-1234 ": 1234, "COT-0008": 8}
	for code, want := range valid {
		n, ok := ParseCode("COT", code)
		assert.True(t, ok, code)
		assert.Equal(t, want, n, code)
	}
	for _, code := range []string{"", "COT-", "COT-7", "COT-07", "COT-000", "COT-00a", "FAC-001", "cot-001", "COT001", "COT--01"} {
		_, ok := ParseCode("COT", code)
		assert.False(t, ok, code)
	}
}

func TestNormalizeScope(t *testing.T) {
	s, err := NormalizeScope(" cot ")
	require.NoError(t, err)
	assert.Equal(t, "COT", s)

	for _, bad := range []string{"", "1AB", "CO-T", "ABCDEFGHIJKLMNOPQ"} {
		_, err := NormalizeScope(bad)
		assert.ErrorIs(t, err, ErrInvalidScope, bad)
	}
}

func TestReserveNextIsSequential(t *testing.T) {
	svc := NewSequenceService(newTestDB(t), nil)
	ctx := context.Background()

	for i, want := range []string{"COT-001", "COT-002", "COT-003"} {
		code, err := svc.ReserveNext(ctx, "COT")
		require.NoError(t, err, i)
		assert.Equal(t, want, code)
	}
	code, err := svc.ReserveNext(ctx, "FAC")
	require.NoError(t, err)
	assert.Equal(t, "FAC-001", code, "scopes count independently")

	_, err = svc.ReserveNext(ctx, "bad scope")
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestEnsureAtLeastNeverRetreats(t *testing.T) {
	svc := NewSequenceService(newTestDB(t), nil)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAtLeast(ctx, "COT", 41))
	n, err := svc.Current(ctx, "COT")
	require.NoError(t, err)
	assert.Equal(t, int64(41), n)

	require.NoError(t, svc.EnsureAtLeast(ctx, "COT", 10))
	n, err = svc.Current(ctx, "COT")
	require.NoError(t, err)
	assert.Equal(t, int64(41), n)

	code, err := svc.ReserveNext(ctx, "COT")
	require.NoError(t, err)
	assert.Equal(t, "COT-042", code)
}

func TestCurrentOfUnusedScope(t *testing.T) {
	n, err := NewSequenceService(newTestDB(t), nil).Current(context.Background(), "NEW")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConcurrentReservationsAreDistinctAndGapless(t *testing.T) {
	svc := NewSequenceService(newTestDB(t), nil)
	ctx := context.Background()

	const callers = 1000
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		nums  []int64
		fails []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, err := svc.ReserveNext(ctx, "COT")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fails = append(fails, err)
				return
			}
			n, ok := ParseCode("COT", code)
			if !ok {
				fails = append(fails, errors.New("malformed code "+code))
				return
			}
			nums = append(nums, n)
		}()
	}
	wg.Wait()

	require.Empty(t, fails)
	require.Len(t, nums, callers)
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	for i, n := range nums {
		require.Equal(t, int64(i+1), n)
	}
}

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestReserveNextRunsInOneTransaction(t *testing.T) {
	db, mock := newMockGorm(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `doc_sequences`")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `doc_sequences` SET `last_value`=last_value + ?")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `doc_sequences`")).
		WillReturnRows(sqlmock.NewRows([]string{"scope", "last_value", "updated_at"}).AddRow("COT", 8, time.Now()))
	mock.ExpectCommit()

	code, err := NewSequenceService(db, nil).ReserveNext(context.Background(), "COT")
	require.NoError(t, err)
	assert.Equal(t, "COT-008", code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveNextRollsBackOnFailure(t *testing.T) {
	db, mock := newMockGorm(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `doc_sequences`")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `doc_sequences`")).
		WillReturnError(&mysqldriver.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"})
	mock.ExpectRollback()

	_, err := NewSequenceService(db, nil).ReserveNext(context.Background(), "COT")
	require.Error(t, err)
	assert.Equal(t, "contention", classifyStoreError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassifyStoreError(t *testing.T) {
	assert.Equal(t, "constraint", classifyStoreError(&mysqldriver.MySQLError{Number: 1062}))
	assert.Equal(t, "contention", classifyStoreError(&mysqldriver.MySQLError{Number: 1213}))
	assert.Equal(t, "store", classifyStoreError(&mysqldriver.MySQLError{Number: 1146}))
	assert.Equal(t, "invalid", classifyStoreError(ErrInvalidDocument))
	assert.Equal(t, "constraint", classifyStoreError(errors.New("UNIQUE constraint failed: events.id")))
	assert.Equal(t, "constraint", classifyStoreError(errors.New(`ERROR: duplicate key value violates unique constraint "quotes_code_key" (SQLSTATE 23505)`)))
	assert.Equal(t, "contention", classifyStoreError(errors.New("database is locked")))
	assert.True(t, IsConstraintViolation(&mysqldriver.MySQLError{Number: 1452}))
	assert.False(t, IsConstraintViolation(nil))
}
