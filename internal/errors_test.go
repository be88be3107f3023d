package internal

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func TestErrors(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Errors Suite")
}

var _ = Describe("ClassifyStorageError", func() {
	It("returns nil for a nil error", func() {
		Expect(ClassifyStorageError(nil)).To(BeNil())
	})

	It("passes an existing app error through unchanged", func() {
		appErr := NewNotFoundError("User not found", "NOT_FOUND")
		Expect(ClassifyStorageError(appErr)).To(BeIdenticalTo(appErr))
	})

	It("maps a unique violation to a conflict", func() {
		classified := ClassifyStorageError(&pgconn.PgError{Code: "23505"})
		Expect(classified.Type).To(Equal(ErrorTypeConflict))
		Expect(classified.Code).To(Equal(ErrCodeDuplicateEntry))
		Expect(classified.StatusCode).To(Equal(http.StatusConflict))
	})

	It("maps a foreign key violation to a bad request", func() {
		classified := ClassifyStorageError(&pgconn.PgError{Code: "23503"})
		Expect(classified.Type).To(Equal(ErrorTypeValidation))
		Expect(classified.Code).To(Equal(ErrCodeMissingReference))
		Expect(classified.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("maps connection class errors to unavailable", func() {
		classified := ClassifyStorageError(&pgconn.PgError{Code: "08006"})
		Expect(classified.Type).To(Equal(ErrorTypeUnavailable))
		Expect(classified.StatusCode).To(Equal(http.StatusServiceUnavailable))
	})

	It("handles SQLSTATE codes shorter than two characters", func() {
		classified := ClassifyStorageError(&pgconn.PgError{Code: "7"})
		Expect(classified.Type).To(Equal(ErrorTypeInternal))
	})

	It("maps a missing record to not found", func() {
		classified := ClassifyStorageError(gorm.ErrRecordNotFound)
		Expect(classified.Type).To(Equal(ErrorTypeNotFound))
		Expect(classified.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("wraps anything else as internal", func() {
		cause := errors.New("boom")
		classified := ClassifyStorageError(cause)
		Expect(classified.Type).To(Equal(ErrorTypeInternal))
		Expect(classified.Cause).To(MatchError("boom"))
	})
})
