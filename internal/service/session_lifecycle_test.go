package service

import (
	"errors"
	"medprep_backend/internal/model"
	"medprep_backend/internal/repository"
	"medprep_backend/internal/util"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newSQLMock 用 sqlmock 驱动 gorm，SQL 逐条断言，无需真实 MySQL
func newSQLMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func newLifecycleService(db *gorm.DB) *SessionService {
	questionRepo := repository.NewQuestionRepository(db)
	return NewSessionService(
		repository.NewSessionRepository(db),
		repository.NewPurchaseRepository(db),
		repository.NewPackageRepository(db),
		questionRepo,
		NewSamplerService(questionRepo, repository.NewTopicRepository(db)),
		nil, // 旁路协作方不参与持久化断言
		nil,
		db,
	)
}

var purchaseColumns = []string{"id", "user_id", "package_id", "sessions_total", "sessions_used", "status"}

func purchaseRow(used int) *sqlmock.Rows {
	return sqlmock.NewRows(purchaseColumns).AddRow(1, 7, 2, 10, used, "active")
}

func packageRow(kind string, totalQuestions int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "kind", "price_cents", "session_qty", "total_questions", "is_active"}).
		AddRow(2, "套餐", kind, 4900, 10, totalQuestions, true)
}

var variationColumns = []string{"id", "base_question_id", "variation_number", "version", "topic_id", "statement", "is_visible"}

func variationRows(n int) *sqlmock.Rows {
	rows := sqlmock.NewRows(variationColumns)
	for i := 1; i <= n; i++ {
		rows.AddRow(i, i, 1, 1, 1, "题干", true)
	}
	return rows
}

var emptyAlternativeRows = []string{"id", "variation_id", "text", "is_correct", "display_order"}

// expectEligiblePool 开考抽题的两条读：题目版本 + 选项预加载
func expectEligiblePool(mock sqlmock.Sqlmock, n int) {
	mock.ExpectQuery("SELECT (.+) FROM .question_variations.").WillReturnRows(variationRows(n))
	mock.ExpectQuery("SELECT (.+) FROM .alternatives.").WillReturnRows(sqlmock.NewRows(emptyAlternativeRows))
}

var sessionColumns = []string{"id", "user_id", "purchase_id", "status", "total_questions", "correct_answers", "score", "started_at", "completed_at", "time_spent_secs"}

func inProgressSessionRow(startedAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(sessionColumns).
		AddRow("sess-1", 7, 1, "in_progress", 45, nil, nil, startedAt, nil, nil)
}

func completedSessionRow(score, correct int, completedAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(sessionColumns).
		AddRow("sess-1", 7, 1, "completed", 45, correct, score, completedAt.Add(-10*time.Minute), completedAt, 600)
}

func TestStartConsumesQuotaAtomically(t *testing.T) {
	db, mock := newSQLMock(t)
	s := newLifecycleService(db)

	// 最后一个剩余名额
	mock.ExpectQuery("SELECT (.+) FROM .purchases.").WillReturnRows(purchaseRow(9))
	mock.ExpectQuery("SELECT (.+) FROM .packages.").WillReturnRows(packageRow("control", 2))
	expectEligiblePool(mock, 3)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM .purchases. (.+)FOR UPDATE").WillReturnRows(purchaseRow(9))
	mock.ExpectExec("INSERT INTO .sessions.").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO .session_questions.").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE .purchases. SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	session, err := s.Start(7, 1)
	require.NoError(t, err)
	assert.Equal(t, model.SessionInProgress, session.Status)
	assert.Equal(t, 2, session.TotalQuestions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartLoserSeesExhaustionUnderLock(t *testing.T) {
	db, mock := newSQLMock(t)
	s := newLifecycleService(db)

	// 事务外的预检通过（9/10），但拿到行锁后并发赢家已把配额用完（10/10）。
	// 行锁把同一购买上的并发开考串行化：剩 R 个名额就只有 R 次能走到扣减
	mock.ExpectQuery("SELECT (.+) FROM .purchases.").WillReturnRows(purchaseRow(9))
	mock.ExpectQuery("SELECT (.+) FROM .packages.").WillReturnRows(packageRow("control", 2))
	expectEligiblePool(mock, 3)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM .purchases. (.+)FOR UPDATE").WillReturnRows(purchaseRow(10))
	mock.ExpectRollback()

	_, err := s.Start(7, 1)
	assert.ErrorIs(t, err, util.ErrPurchaseExhausted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartConflictWhenGuardedIncrementMisses(t *testing.T) {
	db, mock := newSQLMock(t)
	s := newLifecycleService(db)

	mock.ExpectQuery("SELECT (.+) FROM .purchases.").WillReturnRows(purchaseRow(9))
	mock.ExpectQuery("SELECT (.+) FROM .packages.").WillReturnRows(packageRow("control", 2))
	expectEligiblePool(mock, 3)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM .purchases. (.+)FOR UPDATE").WillReturnRows(purchaseRow(9))
	mock.ExpectExec("INSERT INTO .sessions.").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO .session_questions.").WillReturnResult(sqlmock.NewResult(0, 2))
	// 守卫条件 sessions_used < sessions_total 没有命中任何行
	mock.ExpectExec("UPDATE .purchases. SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.Start(7, 1)
	assert.ErrorIs(t, err, util.ErrPurchaseConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartInsufficientQuestionsPersistsNothing(t *testing.T) {
	db, mock := newSQLMock(t)
	s := newLifecycleService(db)

	mock.ExpectQuery("SELECT (.+) FROM .purchases.").WillReturnRows(purchaseRow(0))
	mock.ExpectQuery("SELECT (.+) FROM .packages.").WillReturnRows(packageRow("exam", 45))
	expectEligiblePool(mock, 40)
	// 此后不允许出现任何事务或写入

	_, err := s.Start(7, 1)

	var insufficient *util.InsufficientQuestionsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 45, insufficient.Required)
	assert.Equal(t, 40, insufficient.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectAnswerWrite(mock sqlmock.Sqlmock, startedAt time.Time) {
	mock.ExpectQuery("SELECT (.+) FROM .sessions.").WillReturnRows(inProgressSessionRow(startedAt))
	mock.ExpectQuery("SELECT count(.+) FROM .session_questions.").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM .question_variations.").WillReturnRows(variationRows(1))
	mock.ExpectQuery("SELECT (.+) FROM .alternatives.").WillReturnRows(
		sqlmock.NewRows(emptyAlternativeRows).
			AddRow(100, 1, "Amoxicilina", false, 0).
			AddRow(101, 1, "Azitromicina", true, 1))
	// 唯一键 (session_id, variation_id) 冲突走覆盖更新，不产生第二行
	mock.ExpectExec("INSERT INTO .answers.(.+)ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func TestAnswerResubmissionUpsertsNotInserts(t *testing.T) {
	db, mock := newSQLMock(t)
	s := newLifecycleService(db)
	startedAt := time.Now()

	expectAnswerWrite(mock, startedAt)
	isCorrect, err := s.Answer("sess-1", 7, 1, "Azitromicina")
	require.NoError(t, err)
	assert.True(t, isCorrect)

	// 重复提交同一题：仍然是带 ON DUPLICATE KEY UPDATE 的写入，
	// 普通 INSERT 会在这里对不上期望而失败
	expectAnswerWrite(mock, startedAt)
	isCorrect, err = s.Answer("sess-1", 7, 1, "A")
	require.NoError(t, err)
	assert.False(t, isCorrect)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnswerRejectedAfterCompletion(t *testing.T) {
	db, mock := newSQLMock(t)
	s := newLifecycleService(db)

	mock.ExpectQuery("SELECT (.+) FROM .sessions.").
		WillReturnRows(completedSessionRow(80, 36, time.Now()))

	_, err := s.Answer("sess-1", 7, 1, "Azitromicina")
	assert.ErrorIs(t, err, util.ErrSessionFinished)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteScoresAndFinishesSession(t *testing.T) {
	db, mock := newSQLMock(t)
	s := newLifecycleService(db)

	mock.ExpectQuery("SELECT (.+) FROM .sessions.").WillReturnRows(inProgressSessionRow(time.Now().Add(-10 * time.Minute)))
	mock.ExpectQuery("SELECT count(.+) FROM .answers.").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(36))
	mock.ExpectExec("UPDATE .sessions. SET").WillReturnResult(sqlmock.NewResult(0, 1))

	session, err := s.Complete("sess-1", 7)
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, session.Status)
	require.NotNil(t, session.Score)
	assert.Equal(t, 80, *session.Score) // 36/45
	require.NotNil(t, session.CorrectAnswers)
	assert.Equal(t, 36, *session.CorrectAnswers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteIsIdempotent(t *testing.T) {
	db, mock := newSQLMock(t)
	s := newLifecycleService(db)
	completedAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	// 已完成的会话：两次交卷都只读不写，返回完全一致的落库结果
	mock.ExpectQuery("SELECT (.+) FROM .sessions.").WillReturnRows(completedSessionRow(80, 36, completedAt))
	first, err := s.Complete("sess-1", 7)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM .sessions.").WillReturnRows(completedSessionRow(80, 36, completedAt))
	second, err := s.Complete("sess-1", 7)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, *first.Score, *second.Score)
	assert.Equal(t, *first.CorrectAnswers, *second.CorrectAnswers)
	assert.True(t, first.CompletedAt.Equal(*second.CompletedAt))
	assert.Equal(t, *first.TimeSpentSecs, *second.TimeSpentSecs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteConcurrentLoserReadsCommittedResult(t *testing.T) {
	db, mock := newSQLMock(t)
	s := newLifecycleService(db)
	completedAt := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM .sessions.").WillReturnRows(inProgressSessionRow(completedAt.Add(-10 * time.Minute)))
	mock.ExpectQuery("SELECT count(.+) FROM .answers.").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(36))
	// 守卫更新没抢到 in_progress 行：并发交卷已先提交
	mock.ExpectExec("UPDATE .sessions. SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM .sessions.").WillReturnRows(completedSessionRow(80, 36, completedAt))

	session, err := s.Complete("sess-1", 7)
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, session.Status)
	require.NotNil(t, session.Score)
	assert.Equal(t, 80, *session.Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}
