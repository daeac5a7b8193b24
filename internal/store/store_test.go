package store_test

import (
	"context"
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/voterlookup/epic-extractor/internal/config"
	st "github.com/voterlookup/epic-extractor/internal/store"
	"github.com/voterlookup/epic-extractor/internal/store/model"
	"gorm.io/gorm"
)

var _ = Describe("Store", Ordered, func() {
	var (
		store  st.Store
		gormDB *gorm.DB
	)

	BeforeAll(func() {
		cfg := config.NewDefault()
		db, err := st.InitDB(cfg)
		Expect(err).To(BeNil())
		gormDB = db

		store = st.NewStore(db)
		Expect(store).ToNot(BeNil())
		Expect(store.InitialMigration(context.TODO())).To(BeNil())
	})

	AfterAll(func() {
		store.Close()
	})

	Context("transaction", func() {
		It("insert a voter successfully", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			voter, created, err := store.Voter().CreateIfAbsent(ctx, model.Voter{EpicNumber: "ABC1234567", IsActive: true})
			Expect(err).To(BeNil())
			Expect(created).To(BeTrue())
			Expect(voter.ID).ToNot(Equal(uuid.Nil))

			// commit
			_, cerr := st.Commit(ctx)
			Expect(cerr).To(BeNil())

			count := 0
			err = gormDB.Raw("SELECT COUNT(*) from voters;").Scan(&count).Error
			Expect(err).To(BeNil())
			Expect(count).To(Equal(1))
		})

		It("rollback a voter successfully", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			_, created, err := store.Voter().CreateIfAbsent(ctx, model.Voter{EpicNumber: "XYZ7654321"})
			Expect(err).To(BeNil())
			Expect(created).To(BeTrue())

			// count in the same transaction
			count := 0
			err = st.FromContext(ctx).Raw("SELECT COUNT(*) from voters;").Scan(&count).Error
			Expect(err).To(BeNil())
			Expect(count).To(Equal(1))

			_, rerr := st.Rollback(ctx)
			Expect(rerr).To(BeNil())

			count = 0
			err = gormDB.Raw("SELECT COUNT(*) from voters;").Scan(&count).Error
			Expect(err).To(BeNil())
			Expect(count).To(Equal(0))
		})

		It("reuses the transaction carried by the context", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			nested, err := store.NewTransactionContext(ctx)
			Expect(err).To(BeNil())
			Expect(st.FromContext(nested)).To(BeIdenticalTo(st.FromContext(ctx)))

			_, rerr := st.Rollback(ctx)
			Expect(rerr).To(BeNil())
		})

		It("commits everything written inside InTransaction", func() {
			err := st.InTransaction(context.TODO(), store, func(ctx context.Context) error {
				Expect(st.FromContext(ctx)).ToNot(BeNil())
				if _, _, err := store.Voter().CreateIfAbsent(ctx, model.Voter{EpicNumber: "AAA0000001"}); err != nil {
					return err
				}
				_, _, err := store.Voter().CreateIfAbsent(ctx, model.Voter{EpicNumber: "BBB0000002"})
				return err
			})
			Expect(err).To(BeNil())

			count, err := store.Voter().Count(context.TODO())
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(2)))
		})

		It("rolls back InTransaction when the callback fails", func() {
			boom := errors.New("boom")
			err := st.InTransaction(context.TODO(), store, func(ctx context.Context) error {
				_, _, err := store.Voter().CreateIfAbsent(ctx, model.Voter{EpicNumber: "AAA0000001"})
				Expect(err).To(BeNil())
				return boom
			})
			Expect(err).To(MatchError(boom))

			count, err := store.Voter().Count(context.TODO())
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(0)))
		})

		It("commits even when the caller's context is cancelled afterwards", func() {
			ctx, cancel := context.WithCancel(context.Background())
			err := st.InTransaction(context.WithoutCancel(ctx), store, func(txCtx context.Context) error {
				cancel()
				_, _, err := store.Voter().CreateIfAbsent(txCtx, model.Voter{EpicNumber: "AAA0000001"})
				return err
			})
			Expect(err).To(BeNil())

			exists, err := store.Voter().Exists(context.TODO(), "AAA0000001")
			Expect(err).To(BeNil())
			Expect(exists).To(BeTrue())
		})

		AfterEach(func() {
			gormDB.Exec("DELETE FROM voters;")
		})
	})

	Context("statistics", func() {
		It("counts voters and jobs by status", func() {
			tx := gormDB.Exec(insertVoterStm, uuid.NewString(), "AAA0000001", "Ravi Kumar")
			Expect(tx.Error).To(BeNil())
			tx = gormDB.Exec(insertJobStm, uuid.NewString(), "job-1", model.JobStatusCompleted, 10)
			Expect(tx.Error).To(BeNil())
			tx = gormDB.Exec(insertJobStm, uuid.NewString(), "job-2", model.JobStatusCompleted, 3)
			Expect(tx.Error).To(BeNil())
			tx = gormDB.Exec(insertJobStm, uuid.NewString(), "job-3", model.JobStatusInProgress, 4)
			Expect(tx.Error).To(BeNil())

			stats, err := store.Statistics(context.TODO())
			Expect(err).To(BeNil())
			Expect(stats.Voters).To(Equal(int64(1)))
			Expect(stats.JobsByStatus).To(HaveKeyWithValue(model.JobStatusCompleted, int64(2)))
			Expect(stats.JobsByStatus).To(HaveKeyWithValue(model.JobStatusInProgress, int64(1)))
		})

		It("pings the database", func() {
			Expect(store.Ping(context.TODO())).To(Succeed())
		})

		AfterEach(func() {
			gormDB.Exec("DELETE FROM voters;")
			gormDB.Exec("DELETE FROM jobs;")
		})
	})
})
