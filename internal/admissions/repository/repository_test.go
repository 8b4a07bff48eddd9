package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"admissions-engine/internal/common/sentinel"
	"admissions-engine/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func newTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db).WithClock(func() time.Time { return fixedNow }), mock
}

func earlyYearsApplication() *models.Application {
	return &models.Application{
		ID:                "app-1",
		ApplicationNumber: "ADM-2025-1234",
		Pool:              models.PoolEarlyYears,
		FullName:          "Anna Joseph",
		Gender:            "female",
		DateOfBirth:       "2020-04-11",
		FatherName:        "Joseph K",
		MotherName:        "Mary J",
		Mobile:            "+91 96454-99929",
		Email:             "joseph@example.com",
		Address: models.Address{
			HouseName: "Rose Villa", Place: "Kottayam", PostOffice: "Kottayam",
			District: "Kottayam", State: "Kerala", PinCode: "686001",
		},
		EarlyYearsDetails: &models.EarlyYearsDetails{Stage: "LKG"},
		Status:            models.StatusSubmitted,
		CreatedAt:         fixedNow,
		UpdatedAt:         fixedNow,
	}
}

// ==========================
// Error translation
// ==========================

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, sentinel.ErrNotFound},
		{"number collision", &pq.Error{Code: "23505", Constraint: "early_years_applications_application_number_key"}, sentinel.ErrCollision},
		{"undefined column", &pq.Error{Code: "42703"}, sentinel.ErrSchemaMismatch},
		{"undefined function", &pq.Error{Code: "42883"}, sentinel.ErrUnavailable},
		{"undefined table", &pq.Error{Code: "42P01"}, sentinel.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	t.Run("other unique violation passes through", func(t *testing.T) {
		err := &pq.Error{Code: "23505", Constraint: "early_years_applications_pkey"}
		got := translate(err)
		assert.False(t, errors.Is(got, sentinel.ErrCollision))
		assert.Equal(t, err, got)
	})
	assert.NoError(t, translate(nil))
}

// ==========================
// Schema shape
// ==========================

func TestShape_ProbesOnceAndCaches(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`FROM information_schema.columns`).
		WithArgs("senior_entry_applications", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(len(newerColumns)))

	for i := 0; i < 3; i++ {
		shape, err := repo.Shape(context.Background(), models.PoolSeniorEntry)
		require.NoError(t, err)
		assert.Equal(t, ShapePreferred, shape)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShape_MissingColumnsMeansLegacy(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`FROM information_schema.columns`).
		WithArgs("early_years_applications", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	shape, err := repo.Shape(context.Background(), models.PoolEarlyYears)
	require.NoError(t, err)
	assert.Equal(t, ShapeLegacy, shape)
	assert.Equal(t, "legacy", shape.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShape_MarkLegacySkipsProbe(t *testing.T) {
	repo, mock := newTestRepository(t)

	repo.MarkLegacy(models.PoolEarlyYears)
	shape, err := repo.Shape(context.Background(), models.PoolEarlyYears)
	require.NoError(t, err)
	assert.Equal(t, ShapeLegacy, shape)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Applications
// ==========================

func anyArgs(n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}

func TestInsertApplication_Shapes(t *testing.T) {
	tests := []struct {
		shape SchemaShape
		args  int
	}{
		{ShapePreferred, 24},
		{ShapeLegacy, 19},
	}
	for _, tt := range tests {
		t.Run(tt.shape.String(), func(t *testing.T) {
			repo, mock := newTestRepository(t)
			mock.ExpectExec(`INSERT INTO early_years_applications`).
				WithArgs(anyArgs(tt.args)...).
				WillReturnResult(sqlmock.NewResult(0, 1))

			err := repo.InsertApplication(context.Background(), earlyYearsApplication(), tt.shape)
			assert.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestInsertApplication_Collision(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectExec(`INSERT INTO early_years_applications`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "early_years_applications_application_number_key"})

	err := repo.InsertApplication(context.Background(), earlyYearsApplication(), ShapePreferred)
	assert.ErrorIs(t, err, sentinel.ErrCollision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertApplication_UnknownPool(t *testing.T) {
	repo, _ := newTestRepository(t)
	app := earlyYearsApplication()
	app.Pool = "evening"

	err := repo.InsertApplication(context.Background(), app, ShapePreferred)
	assert.Error(t, err)
}

func TestFindByNumber_LegacyChildName(t *testing.T) {
	repo, mock := newTestRepository(t)

	row := `{"id":"app-7","application_number":"ADM-2024-5521","child_name":"Old Row",
		"mobile":"9645499929","status":"under_review","stage":"UKG"}`
	mock.ExpectQuery(`SELECT to_jsonb\(a\) FROM early_years_applications a WHERE a.application_number = \$1`).
		WithArgs("ADM-2024-5521").
		WillReturnRows(sqlmock.NewRows([]string{"to_jsonb"}).AddRow([]byte(row)))

	app, err := repo.FindByNumber(context.Background(), models.PoolEarlyYears, "ADM-2024-5521")
	require.NoError(t, err)
	assert.Equal(t, "Old Row", app.FullName)
	assert.Equal(t, models.PoolEarlyYears, app.Pool)
	assert.Equal(t, models.StatusUnderReview, app.Status)
	require.NotNil(t, app.EarlyYearsDetails)
	assert.Equal(t, "UKG", app.Stage)
	assert.Nil(t, app.SeniorEntryDetails)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByNumber_NotFound(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`FROM senior_entry_applications`).
		WithArgs("ADM-2025-0000").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByNumber(context.Background(), models.PoolSeniorEntry, "ADM-2025-0000")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_WithSchedule(t *testing.T) {
	repo, mock := newTestRepository(t)

	row := `{"id":"app-1","application_number":"ADM-2025-1234","status":"shortlisted_for_interview",
		"interview_date":"2025-06-10","interview_time":"10:30","stream":"Science"}`
	mock.ExpectQuery(`UPDATE senior_entry_applications AS a`).
		WithArgs("shortlisted_for_interview", "2025-06-10", "10:30", fixedNow, "app-1").
		WillReturnRows(sqlmock.NewRows([]string{"to_jsonb"}).AddRow([]byte(row)))

	app, err := repo.UpdateStatus(context.Background(),
		models.ApplicationRef{Pool: models.PoolSeniorEntry, ID: "app-1"},
		models.StatusShortlistedForInterview,
		&models.InterviewSchedule{Date: "2025-06-10", Time: "10:30"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusShortlistedForInterview, app.Status)
	require.NotNil(t, app.InterviewDate)
	assert.Equal(t, "2025-06-10", *app.InterviewDate)
	assert.Equal(t, "Science", app.Stream)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_WithoutScheduleLeavesInterviewColumns(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`SET status = \$1, updated_at = \$2`).
		WithArgs("admitted", fixedNow, "app-1").
		WillReturnRows(sqlmock.NewRows([]string{"to_jsonb"}).AddRow([]byte(`{"id":"app-1","status":"admitted"}`)))

	app, err := repo.UpdateStatus(context.Background(),
		models.ApplicationRef{Pool: models.PoolEarlyYears, ID: "app-1"}, models.StatusAdmitted, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAdmitted, app.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusMany(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectExec(`WHERE id = ANY\(\$3\)`).
		WithArgs("under_review", fixedNow, pq.Array([]string{"a", "b", "c"})).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.UpdateStatusMany(context.Background(), models.PoolEarlyYears,
		[]string{"a", "b", "c"}, models.StatusUnderReview, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = repo.UpdateStatusMany(context.Background(), models.PoolEarlyYears, nil, models.StatusUnderReview, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Templates and marks
// ==========================

func TestApplyTemplates_RetiresThenUpserts(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE interview_subject_templates`).
		WithArgs(fixedNow, "early_years", pq.Array([]string{"B"})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO interview_subject_templates`).
		WithArgs(sqlmock.AnyArg(), "early_years", "A", 25.0, 1, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`ON CONFLICT \(pool, subject_name\)`).
		WithArgs(sqlmock.AnyArg(), "senior_entry", "Aptitude", 50.0, 2, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ApplyTemplates(context.Background(), TemplatePlan{
		Retire: map[models.Pool][]string{models.PoolEarlyYears: {"B"}},
		Upserts: []models.SubjectTemplate{
			{Pool: models.PoolEarlyYears, SubjectName: "A", MaxMarks: 25, DisplayOrder: 1},
			{Pool: models.PoolSeniorEntry, SubjectName: "Aptitude", MaxMarks: 50, DisplayOrder: 2},
		},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTemplates_RollsBackOnFailure(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO interview_subject_templates`).
		WillReturnError(fmt.Errorf("connection reset"))
	mock.ExpectRollback()

	err := repo.ApplyTemplates(context.Background(), TemplatePlan{
		Upserts: []models.SubjectTemplate{{Pool: models.PoolEarlyYears, SubjectName: "A", MaxMarks: 25, DisplayOrder: 1}},
	})
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTemplates(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`FROM interview_subject_templates`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "pool", "subject_name", "max_marks", "display_order", "is_active", "updated_at"}).
			AddRow("t1", "early_years", "Reading", 50.0, 1, true, fixedNow).
			AddRow("t2", "senior_entry", "Aptitude", 100.0, 2, true, fixedNow))

	templates, err := repo.ListTemplates(context.Background())
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, models.PoolSeniorEntry, templates[1].Pool)
	assert.Equal(t, 100.0, templates[1].MaxMarks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepairMaxMarksAndDelete(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectExec(`UPDATE interview_marks`).
		WithArgs(25.0, "A", fixedNow, "early_years").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM interview_marks`).
		WithArgs("early_years", "B").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.RepairMaxMarks(context.Background(), models.PoolEarlyYears, "A", 25)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = repo.DeleteSubjectMarks(context.Background(), models.PoolEarlyYears, "B")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMarkSubjects(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`SELECT DISTINCT subject_name\s+FROM interview_marks`).
		WithArgs("early_years").
		WillReturnRows(sqlmock.NewRows([]string{"subject_name"}).AddRow("A").AddRow("B"))

	names, err := repo.ListMarkSubjects(context.Background(), models.PoolEarlyYears)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertMarks(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(`ON CONFLICT \(application_id, subject_name\)`).
		WithArgs(sqlmock.AnyArg(), "app-1", "senior_entry", "Aptitude", 50.0, 45.0, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpsertMarks(context.Background(), []models.MarkRecord{
		{ApplicationID: "app-1", Pool: models.PoolSeniorEntry, SubjectName: "Aptitude", MaxMarks: 50, MarksObtained: 45},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Combined lookup
// ==========================

func TestResolveCombined(t *testing.T) {
	repo, mock := newTestRepository(t)

	doc := `{"pool":"senior_entry",
		"application":{"id":"app-1","application_number":"ADM-2025-1234","mobile":"9645499929","status":"interview_complete","stream":"Commerce"},
		"academic_year":{"label":"2025-26","admissions_open":true,"is_current":true},
		"interview_marks":[{"subject_name":"Aptitude","max_marks":50,"marks_obtained":45},{"subject_name":"Viva","max_marks":50,"marks_obtained":null}]}`
	mock.ExpectQuery(`SELECT get_admission_status\(\$1\)`).
		WithArgs("ADM-2025-1234").
		WillReturnRows(sqlmock.NewRows([]string{"get_admission_status"}).AddRow([]byte(doc)))

	rec, err := repo.ResolveCombined(context.Background(), "ADM-2025-1234")
	require.NoError(t, err)
	assert.Equal(t, models.PoolSeniorEntry, rec.Application.Pool)
	assert.Equal(t, "Commerce", rec.Application.Stream)
	require.NotNil(t, rec.AcademicYear)
	assert.Equal(t, models.PoolSeniorEntry, rec.AcademicYear.Pool)
	require.Len(t, rec.Marks, 2)
	assert.Nil(t, rec.Marks[1].MarksObtained)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveCombined_NullAndMissingFunction(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`get_admission_status`).
		WillReturnRows(sqlmock.NewRows([]string{"get_admission_status"}).AddRow(nil))
	mock.ExpectQuery(`get_admission_status`).
		WillReturnError(&pq.Error{Code: "42883"})

	_, err := repo.ResolveCombined(context.Background(), "ADM-2025-9999")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = repo.ResolveCombined(context.Background(), "ADM-2025-9999")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCurrentAcademicYear(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`FROM academic_years`).
		WithArgs("early_years").
		WillReturnRows(sqlmock.NewRows([]string{"label", "admissions_open", "is_current"}).AddRow("2025-26", true, true))

	year, err := repo.CurrentAcademicYear(context.Background(), models.PoolEarlyYears)
	require.NoError(t, err)
	assert.Equal(t, "2025-26", year.Label)
	assert.Equal(t, models.PoolEarlyYears, year.Pool)
	assert.NoError(t, mock.ExpectationsWereMet())
}
