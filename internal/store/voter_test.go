package store_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/voterlookup/epic-extractor/internal/config"
	"github.com/voterlookup/epic-extractor/internal/store"
	"github.com/voterlookup/epic-extractor/internal/store/model"
	"gorm.io/gorm"
)

const (
	insertVoterStm = "INSERT INTO voters (id, epic_number, full_name, is_active, is_deleted, created_at, updated_at) VALUES (?, ?, ?, true, false, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);"
	insertJobStm   = "INSERT INTO jobs (id, name, type, status, total_records, created_at, updated_at) VALUES (?, ?, 'bulk_epic', ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);"
)

func strPtr(s string) *string { return &s }

var _ = Describe("voter store", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration(context.TODO())).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	Context("create if absent", func() {
		It("inserts a new voter", func() {
			voter, created, err := s.Voter().CreateIfAbsent(context.TODO(), model.Voter{
				EpicNumber: "ABC1234567",
				FullName:   strPtr("Asha Devi"),
				IsActive:   true,
				RawResponse: model.MakeJSONField(map[string]any{
					"epicNumber": "ABC1234567",
					"age":        float64(42),
				}),
				ExtractionMetadata: model.MakeJSONField(model.ExtractionMetadata{
					ExtractedAt: time.Now(),
					APIVersion:  model.ExtractionAPIVersion,
				}),
			})
			Expect(err).To(BeNil())
			Expect(created).To(BeTrue())
			Expect(voter.ID).ToNot(Equal(uuid.Nil))

			stored, err := s.Voter().GetByEpic(context.TODO(), "ABC1234567")
			Expect(err).To(BeNil())
			Expect(stored.ID).To(Equal(voter.ID))
			Expect(*stored.FullName).To(Equal("Asha Devi"))
			Expect(stored.IsActive).To(BeTrue())
			Expect(stored.RawResponse).ToNot(BeNil())
			Expect(stored.RawResponse.Data).To(HaveKeyWithValue("age", float64(42)))
			Expect(stored.ExtractionMetadata.Data.APIVersion).To(Equal("1.0"))
		})

		It("returns the existing row when the epic number is taken", func() {
			first, created, err := s.Voter().CreateIfAbsent(context.TODO(), model.Voter{EpicNumber: "ABC1234567", FullName: strPtr("first")})
			Expect(err).To(BeNil())
			Expect(created).To(BeTrue())

			second, created, err := s.Voter().CreateIfAbsent(context.TODO(), model.Voter{EpicNumber: "ABC1234567", FullName: strPtr("second")})
			Expect(err).To(BeNil())
			Expect(created).To(BeFalse())
			Expect(second.ID).To(Equal(first.ID))
			Expect(*second.FullName).To(Equal("first"))

			count, err := s.Voter().Count(context.TODO())
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(1)))
		})

		AfterEach(func() {
			gormdb.Exec("DELETE FROM voters;")
		})
	})

	Context("lookup", func() {
		BeforeEach(func() {
			Expect(gormdb.Exec(insertVoterStm, uuid.NewString(), "AAA0000001", "Ravi Kumar").Error).To(BeNil())
			Expect(gormdb.Exec(insertVoterStm, uuid.NewString(), "AAA0000002", "Kumari Sen").Error).To(BeNil())
			Expect(gormdb.Exec(insertVoterStm, uuid.NewString(), "AAA0000003", "John Doe").Error).To(BeNil())
		})

		It("reports existence", func() {
			exists, err := s.Voter().Exists(context.TODO(), "AAA0000001")
			Expect(err).To(BeNil())
			Expect(exists).To(BeTrue())

			exists, err = s.Voter().Exists(context.TODO(), "ZZZ9999999")
			Expect(err).To(BeNil())
			Expect(exists).To(BeFalse())
		})

		It("fails to get an unknown epic number", func() {
			_, err := s.Voter().GetByEpic(context.TODO(), "ZZZ9999999")
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})

		It("searches names case-insensitively", func() {
			voters, err := s.Voter().List(context.TODO(), store.NewVoterQueryFilter().ByNameLike("KUMAR"), store.NewVoterQueryOptions().WithSortOrder(store.SortByEpicNumber))
			Expect(err).To(BeNil())
			Expect(voters).To(HaveLen(2))
			Expect(voters[0].EpicNumber).To(Equal("AAA0000001"))
			Expect(voters[1].EpicNumber).To(Equal("AAA0000002"))
		})

		It("pages through the voters", func() {
			voters, err := s.Voter().List(context.TODO(), nil, store.NewVoterQueryOptions().WithSortOrder(store.SortByEpicNumber).WithLimit(2).WithOffset(1))
			Expect(err).To(BeNil())
			Expect(voters).To(HaveLen(2))
			Expect(voters[0].EpicNumber).To(Equal("AAA0000002"))
		})

		It("filters by exact epic number", func() {
			voters, err := s.Voter().List(context.TODO(), store.NewVoterQueryFilter().ByEpicNumber("AAA0000003"), nil)
			Expect(err).To(BeNil())
			Expect(voters).To(HaveLen(1))
			Expect(*voters[0].FullName).To(Equal("John Doe"))
		})

		AfterEach(func() {
			gormdb.Exec("DELETE FROM voters;")
		})
	})
})
