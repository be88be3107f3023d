package postgres

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/frahmantamala/habilitation-management/internal/activity"
)

func TestActivityRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "ActivityRepository Suite")
}

type SQLiteActivityLog struct {
	ID             int64  `gorm:"primaryKey"`
	ActivityCode   string `gorm:"column:activity_code"`
	UserID         *int64 `gorm:"column:user_id"`
	Type           string `gorm:"column:type"`
	Action         string `gorm:"column:action"`
	Description    string `gorm:"column:description"`
	TargetType     string `gorm:"column:target_type"`
	TargetID       string `gorm:"column:target_id"`
	IPAddress      string `gorm:"column:ip_address"`
	UserAgent      string `gorm:"column:user_agent"`
	RequestMethod  string `gorm:"column:request_method"`
	RequestURL     string `gorm:"column:request_url"`
	ResponseStatus *int   `gorm:"column:response_status"`
	Success        bool   `gorm:"column:success"`
	Severity       string `gorm:"column:severity"`
	Metadata       string `gorm:"column:metadata"`
	CreatedAt      time.Time
}

func (SQLiteActivityLog) TableName() string {
	return "activity_logs"
}

var _ = Describe("ActivityRepository", func() {
	var (
		db   *gorm.DB
		repo activity.RepositoryAPI
		ctx  context.Context
	)

	insert := func(e activity.Entry) activity.Entry {
		if e.ActivityCode == "" {
			e.ActivityCode = activity.NewActivityCode()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now()
		}
		Expect(repo.Insert(ctx, &e)).To(Succeed())
		return e
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteActivityLog{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewActivityRepository(db, nil)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	Describe("Insert", func() {
		It("persists the entry and assigns an id", func() {
			userID := int64(7)
			e := insert(activity.Entry{
				UserID:   &userID,
				Type:     activity.TypeAuth,
				Action:   "login",
				Success:  true,
				Severity: activity.SeverityLow,
				Metadata: map[string]interface{}{"device": "cli"},
			})

			Expect(e.ID).NotTo(BeZero())

			entries, _, err := repo.FindPage(ctx, activity.Filter{}, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Metadata).To(HaveKeyWithValue("device", "cli"))
		})
	})

	Describe("FindPage", func() {
		BeforeEach(func() {
			userA, userB := int64(1), int64(2)
			insert(activity.Entry{UserID: &userA, Type: activity.TypeAuth, Action: "login", Description: "User a@x.com logged in", Success: true, Severity: activity.SeverityLow, IPAddress: "10.0.0.1"})
			insert(activity.Entry{UserID: &userA, Type: activity.TypeSecurity, Action: "login", Description: "Failed login attempt", Success: false, Severity: activity.SeverityHigh, IPAddress: "10.0.0.2"})
			insert(activity.Entry{UserID: &userB, Type: activity.TypePermission, Action: "grant", Description: "Permission granted", Success: true, Severity: activity.SeverityMedium, IPAddress: "10.0.0.1"})
		})

		It("filters by user", func() {
			userA := int64(1)
			entries, page, err := repo.FindPage(ctx, activity.Filter{UserID: &userA}, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(page.Total).To(Equal(int64(2)))
		})

		It("filters by type and success", func() {
			failed := false
			entries, _, err := repo.FindPage(ctx, activity.Filter{Type: activity.TypeSecurity, Success: &failed}, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Severity).To(Equal(activity.SeverityHigh))
		})

		It("matches the search term case-insensitively against description and action", func() {
			entries, _, err := repo.FindPage(ctx, activity.Filter{Search: "FAILED"}, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))

			entries, _, err = repo.FindPage(ctx, activity.Filter{Search: "grant"}, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
		})

		It("matches the search term against the activity code", func() {
			insert(activity.Entry{ActivityCode: "ACT-01HTRACE42", Type: activity.TypeSystem, Action: "cleanup", Severity: activity.SeverityLow})

			entries, _, err := repo.FindPage(ctx, activity.Filter{Search: "trace42"}, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].ActivityCode).To(Equal("ACT-01HTRACE42"))
		})

		It("combines the search group with other filters", func() {
			insert(activity.Entry{ActivityCode: "ACT-01HTRACE43", Type: activity.TypeSystem, Action: "cleanup", Severity: activity.SeverityLow})

			entries, _, err := repo.FindPage(ctx, activity.Filter{Search: "trace43", Type: activity.TypeAuth}, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})

		It("filters by ip address", func() {
			entries, _, err := repo.FindPage(ctx, activity.Filter{IPAddress: "10.0.0.1"}, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
		})

		It("paginates with navigation flags", func() {
			entries, page, err := repo.FindPage(ctx, activity.Filter{}, 1, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(page.Total).To(Equal(int64(3)))
			Expect(page.TotalPages).To(Equal(2))
			Expect(page.HasNext).To(BeTrue())
			Expect(page.HasPrev).To(BeFalse())

			entries, page, err = repo.FindPage(ctx, activity.Filter{}, 2, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(page.HasNext).To(BeFalse())
			Expect(page.HasPrev).To(BeTrue())
		})
	})

	Describe("SecurityAlerts", func() {
		It("returns recent failed or severe security entries, most severe first", func() {
			insert(activity.Entry{Type: activity.TypeSecurity, Action: "login", Success: false, Severity: activity.SeverityHigh})
			insert(activity.Entry{Type: activity.TypeSecurity, Action: "escalation", Success: true, Severity: activity.SeverityCritical})
			insert(activity.Entry{Type: activity.TypeSecurity, Action: "scan", Success: true, Severity: activity.SeverityLow})
			insert(activity.Entry{Type: activity.TypeAuth, Action: "login", Success: false, Severity: activity.SeverityHigh})
			insert(activity.Entry{Type: activity.TypeSecurity, Action: "old", Success: false, Severity: activity.SeverityHigh, CreatedAt: time.Now().Add(-48 * time.Hour)})

			alerts, err := repo.SecurityAlerts(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(alerts).To(HaveLen(2))
			Expect(alerts[0].Action).To(Equal("escalation"))
			Expect(alerts[1].Action).To(Equal("login"))
		})
	})

	Describe("DeleteAged", func() {
		It("removes old low and medium entries but keeps high and critical ones", func() {
			old := time.Now().AddDate(0, 0, -120)
			insert(activity.Entry{Type: activity.TypeAuth, Action: "old-low", Severity: activity.SeverityLow, CreatedAt: old})
			insert(activity.Entry{Type: activity.TypeData, Action: "old-medium", Severity: activity.SeverityMedium, CreatedAt: old})
			insert(activity.Entry{Type: activity.TypeSecurity, Action: "old-high", Severity: activity.SeverityHigh, CreatedAt: old})
			insert(activity.Entry{Type: activity.TypeSecurity, Action: "old-critical", Severity: activity.SeverityCritical, CreatedAt: old})
			insert(activity.Entry{Type: activity.TypeAuth, Action: "recent-low", Severity: activity.SeverityLow})

			deleted, err := repo.DeleteAged(ctx, 90)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(int64(2)))

			entries, _, err := repo.FindPage(ctx, activity.Filter{}, 1, 10)
			Expect(err).NotTo(HaveOccurred())

			actions := make([]string, 0, len(entries))
			for _, e := range entries {
				actions = append(actions, e.Action)
			}
			Expect(actions).To(ConsistOf("old-high", "old-critical", "recent-low"))
		})
	})
})
