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

var _ = Describe("job store", Ordered, func() {
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

	AfterEach(func() {
		gormdb.Exec("DELETE FROM jobs;")
	})

	Context("create and get", func() {
		It("creates a pending job", func() {
			job, err := s.Job().Create(context.TODO(), *model.NewJob("Bulk extraction - 3 EPICs", model.JobTypeBulk, "S08", 3))
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusPending))

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Name).To(Equal("Bulk extraction - 3 EPICs"))
			Expect(stored.Total).To(Equal(3))
			Expect(stored.Processed).To(Equal(0))
			Expect(stored.StartedAt).To(BeNil())
		})

		It("fails to get an unknown job", func() {
			_, err := s.Job().Get(context.TODO(), uuid.New())
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("list", func() {
		It("lists newest first with status filter and limit", func() {
			now := time.Now()
			for i, status := range []string{model.JobStatusCompleted, model.JobStatusInProgress, model.JobStatusCompleted} {
				job := model.NewJob("job", model.JobTypeBulk, "S08", 1)
				job.Status = status
				job.CreatedAt = now.Add(time.Duration(i) * time.Minute)
				_, err := s.Job().Create(context.TODO(), *job)
				Expect(err).To(BeNil())
			}

			jobs, err := s.Job().List(context.TODO(), nil, nil)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(3))
			Expect(jobs[0].CreatedAt.After(jobs[1].CreatedAt)).To(BeTrue())

			jobs, err = s.Job().List(context.TODO(), store.NewJobQueryFilter().ByStatus(model.JobStatusCompleted), store.NewJobQueryOptions().WithLimit(1))
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].Status).To(Equal(model.JobStatusCompleted))
		})
	})

	Context("lifecycle", func() {
		var job *model.Job

		BeforeEach(func() {
			var err error
			job, err = s.Job().Create(context.TODO(), *model.NewJob("job", model.JobTypeBulk, "S08", 3))
			Expect(err).To(BeNil())
		})

		It("records progress and completion", func() {
			Expect(s.Job().MarkInProgress(context.TODO(), job.ID, time.Now())).To(Succeed())
			Expect(s.Job().UpdateProgress(context.TODO(), job.ID, model.JobCounters{Processed: 2, Successful: 1, Duplicates: 1}, nil)).To(Succeed())

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.JobStatusInProgress))
			Expect(stored.StartedAt).ToNot(BeNil())
			Expect(stored.Counters()).To(Equal(model.JobCounters{Processed: 2, Successful: 1, Duplicates: 1}))
			Expect(stored.Progress()).To(Equal(66.67))

			failed := model.FailedEntries{{Identifier: "BAD0000001", Reason: "captcha attempts exhausted"}}
			Expect(s.Job().MarkCompleted(context.TODO(), job.ID, model.JobCounters{Processed: 3, Successful: 1, Failed: 1, Duplicates: 1}, failed, time.Now())).To(Succeed())

			stored, err = s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.JobStatusCompleted))
			Expect(stored.CompletedAt).ToNot(BeNil())
			Expect(stored.Progress()).To(Equal(100.0))
			Expect(stored.FailedEntries).ToNot(BeNil())
			Expect(stored.FailedEntries.Data).To(Equal(failed))
		})

		It("marks only unfinished jobs as failed", func() {
			Expect(s.Job().MarkInProgress(context.TODO(), job.ID, time.Now())).To(Succeed())

			updated, err := s.Job().MarkFailed(context.TODO(), job.ID, "process restarted", time.Now())
			Expect(err).To(BeNil())
			Expect(updated).To(BeTrue())

			updated, err = s.Job().MarkFailed(context.TODO(), job.ID, "again", time.Now())
			Expect(err).To(BeNil())
			Expect(updated).To(BeFalse())

			stored, err := s.Job().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.JobStatusFailed))
			Expect(*stored.ErrorMessage).To(Equal("process restarted"))
		})

		It("fails to update an unknown job", func() {
			err := s.Job().UpdateProgress(context.TODO(), uuid.New(), model.JobCounters{Processed: 1}, nil)
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("stale jobs", func() {
		It("lists unfinished jobs not touched since the cutoff", func() {
			old := time.Now().Add(-2 * time.Hour)

			stale := model.NewJob("stale", model.JobTypeBulk, "S08", 1)
			stale.Status = model.JobStatusInProgress
			stale.CreatedAt = old
			stale.UpdatedAt = old
			_, err := s.Job().Create(context.TODO(), *stale)
			Expect(err).To(BeNil())

			done := model.NewJob("done", model.JobTypeBulk, "S08", 1)
			done.Status = model.JobStatusCompleted
			done.CreatedAt = old
			done.UpdatedAt = old
			_, err = s.Job().Create(context.TODO(), *done)
			Expect(err).To(BeNil())

			fresh := model.NewJob("fresh", model.JobTypeBulk, "S08", 1)
			fresh.Status = model.JobStatusInProgress
			_, err = s.Job().Create(context.TODO(), *fresh)
			Expect(err).To(BeNil())

			jobs, err := s.Job().ListStale(context.TODO(), time.Now().Add(-time.Hour))
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].ID).To(Equal(stale.ID))
		})
	})
})
