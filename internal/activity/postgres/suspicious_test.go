package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var suspiciousColumns = []string{
	"id", "activity_code", "user_id", "type", "action", "description",
	"target_type", "target_id", "ip_address", "user_agent", "request_method",
	"request_url", "response_status", "success", "severity", "metadata", "created_at",
}

// suspiciousQueryPattern pins the selection criteria: failed auth, critical
// permission events, off-hours access, and users rotating through many user
// agents in a day, all scoped to the last week.
var suspiciousQueryPattern = "(?s)" +
	regexp.QuoteMeta(`(type = 'auth' AND NOT success)`) + ".*" +
	regexp.QuoteMeta(`(type = 'permission' AND severity = 'critical')`) + ".*" +
	regexp.QuoteMeta(`EXTRACT(HOUR FROM created_at) < 6`) + ".*" +
	regexp.QuoteMeta(`EXTRACT(HOUR FROM created_at) > 22`) + ".*" +
	regexp.QuoteMeta(`INTERVAL '1 day'`) + ".*" +
	regexp.QuoteMeta(`HAVING COUNT(DISTINCT user_agent) > 3`) + ".*" +
	regexp.QuoteMeta(`created_at >= NOW() - INTERVAL '7 days'`) + ".*" +
	regexp.QuoteMeta(`ORDER BY created_at DESC`)

var _ = Describe("suspicious activity query", func() {
	var (
		ctx  context.Context
		db   *sql.DB
		mock sqlmock.Sqlmock
		repo *ActivityRepository
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		db, mock, err = sqlmock.New()
		Expect(err).NotTo(HaveOccurred())

		repo = NewActivityRepository(nil, sqlx.NewDb(db, "sqlmock")).(*ActivityRepository)
	})

	AfterEach(func() {
		Expect(mock.ExpectationsWereMet()).To(Succeed())
		db.Close()
	})

	It("selects on the unusual-pattern criteria and maps the rows", func() {
		createdAt := time.Date(2026, 8, 30, 23, 15, 0, 0, time.UTC)
		rows := sqlmock.NewRows(suspiciousColumns).
			AddRow(
				int64(7), "ACT-01HSUSP01", int64(42), "auth", "login",
				"Failed login", "", "", "203.0.113.7", "curl/8.0",
				"POST", "/api/auth/login", 401, false, "medium",
				`{"attempt":3}`, createdAt,
			).
			AddRow(
				int64(8), "ACT-01HSUSP02", nil, "permission", "Permission Denied",
				"Critical permission change", "permission", "12", "203.0.113.8", "Mozilla/5.0",
				"DELETE", "/api/permissions/12", 403, true, "critical",
				"", createdAt.Add(-time.Hour),
			)

		mock.ExpectQuery(suspiciousQueryPattern).
			WithArgs(25).
			WillReturnRows(rows)

		entries, err := repo.Suspicious(ctx, 25)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(2))

		Expect(entries[0].ActivityCode).To(Equal("ACT-01HSUSP01"))
		Expect(entries[0].UserID).To(HaveValue(Equal(int64(42))))
		Expect(entries[0].Success).To(BeFalse())
		Expect(entries[0].Metadata).To(HaveKeyWithValue("attempt", float64(3)))

		Expect(entries[1].ActivityCode).To(Equal("ACT-01HSUSP02"))
		Expect(entries[1].UserID).To(BeNil())
		Expect(entries[1].Severity).To(Equal("critical"))
	})

	It("propagates query failures", func() {
		mock.ExpectQuery(suspiciousQueryPattern).
			WithArgs(10).
			WillReturnError(errors.New("connection reset"))

		entries, err := repo.Suspicious(ctx, 10)
		Expect(err).To(MatchError(ContainSubstring("connection reset")))
		Expect(entries).To(BeNil())
	})
})
