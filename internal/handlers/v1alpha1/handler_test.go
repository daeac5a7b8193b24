package v1alpha1_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	api "github.com/voterlookup/epic-extractor/api/v1alpha1"
	"github.com/voterlookup/epic-extractor/internal/config"
	handlers "github.com/voterlookup/epic-extractor/internal/handlers/v1alpha1"
	"github.com/voterlookup/epic-extractor/internal/service"
	"github.com/voterlookup/epic-extractor/internal/store"
	"github.com/voterlookup/epic-extractor/internal/store/model"
	"gorm.io/gorm"
)

var _ = Describe("service handler", Ordered, func() {
	var (
		s        store.Store
		gormdb   *gorm.DB
		launcher *fakeLauncher
		router   chi.Router
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

	BeforeEach(func() {
		launcher = &fakeLauncher{identifiers: map[uuid.UUID][]string{}}
		extractor := &fakeExtractor{records: map[string]map[string]any{
			"ABC1234567": {"fullName": "Asha Devi", "age": float64(42), "stateCd": "S08"},
			"XYZ7654321": {"fullName": "Ravi Kumar", "age": "37", "stateCd": "S08"},
		}}

		h := handlers.NewServiceHandler(
			service.NewExtractionService(s, extractor, launcher, service.WithMaxAttempts(3)),
			service.NewJobService(s),
			service.NewVoterService(s),
			service.NewHealthService(s, fakePinger{status: http.StatusOK}),
		)
		router = chi.NewRouter()
		h.RegisterRoutes(router)
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM extraction_logs;")
		gormdb.Exec("DELETE FROM voters;")
		gormdb.Exec("DELETE FROM jobs;")
	})

	Context("single extraction", func() {
		It("stores the voter and returns its record", func() {
			rec := postJSON(router, "/api/v1/extract/single", `{"epic_number":"ABC1234567","state_code":"S08"}`)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp api.ExtractionResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Status).To(Equal(api.ExtractionStatusSuccess))
			Expect(resp.EpicNumber).To(Equal("ABC1234567"))
			Expect(resp.Attempts).To(Equal(2))
			Expect(resp.VoterID).NotTo(BeNil())
			Expect(resp.Data).To(HaveKeyWithValue("full_name", "Asha Devi"))

			count, err := s.Voter().Count(context.TODO())
			Expect(err).To(BeNil())
			Expect(count).To(BeNumerically("==", 1))
		})

		It("reports a known voter as duplicate", func() {
			first := postJSON(router, "/api/v1/extract/single", `{"epic_number":"ABC1234567"}`)
			Expect(first.Code).To(Equal(http.StatusOK))

			rec := postJSON(router, "/api/v1/extract/single", `{"epic_number":"ABC1234567"}`)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp api.ExtractionResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Status).To(Equal(api.ExtractionStatusDuplicate))
			Expect(resp.Message).To(Equal("Voter already exists in database"))
			Expect(resp.Data).To(HaveKeyWithValue("epic_number", "ABC1234567"))
		})

		It("returns 422 with the attempt count when extraction fails", func() {
			rec := postJSON(router, "/api/v1/extract/single", `{"epic_number":"NOP0000001"}`)
			Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))

			var resp api.ExtractionResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Status).To(Equal(api.ExtractionStatusFailed))
			Expect(resp.Attempts).To(Equal(3))
			Expect(resp.Message).To(ContainSubstring("could not extract NOP0000001"))
			Expect(resp.Data).To(BeNil())
		})

		It("rejects a malformed body", func() {
			rec := postJSON(router, "/api/v1/extract/single", `{"epic_number":`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects an invalid identifier", func() {
			rec := postJSON(router, "/api/v1/extract/single", `{"epic_number":"AB1"}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			var resp api.Error
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Message).To(ContainSubstring("not a valid EPIC number"))
		})

		It("rejects an invalid state code", func() {
			rec := postJSON(router, "/api/v1/extract/single", `{"epic_number":"ABC1234567","state_code":"X99"}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("bulk extraction", func() {
		It("creates a pending job and launches it", func() {
			rec := postJSON(router, "/api/v1/extract/bulk", `{"epic_numbers":["ABC1234567"," XYZ7654321 "],"state_code":"S08"}`)
			Expect(rec.Code).To(Equal(http.StatusAccepted))

			var resp api.JobAccepted
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Status).To(Equal("accepted"))
			Expect(resp.TotalRecords).To(Equal(2))
			Expect(launcher.identifiers).To(HaveKeyWithValue(resp.JobID, []string{"ABC1234567", "XYZ7654321"}))

			job, err := s.Job().Get(context.TODO(), resp.JobID)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusPending))
			Expect(job.Name).To(Equal("Bulk extraction - 2 EPICs"))
		})

		It("rejects an empty list", func() {
			rec := postJSON(router, "/api/v1/extract/bulk", `{"epic_numbers":[]}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(launcher.identifiers).To(BeEmpty())
		})

		It("rejects a list with an invalid identifier", func() {
			rec := postJSON(router, "/api/v1/extract/bulk", `{"epic_numbers":["ABC1234567","??"]}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("spreadsheet upload", func() {
		It("starts a job for the named column", func() {
			content := []byte("name,voter id\nAsha,ABC1234567\nRavi,XYZ7654321\n")
			rec := upload(router, "voters.csv", content, map[string]string{"epic_column": "voter id"})
			Expect(rec.Code).To(Equal(http.StatusAccepted))

			var resp api.JobAccepted
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.TotalRecords).To(Equal(2))
			Expect(resp.Message).To(Equal("File uploaded successfully. Processing 2 EPIC numbers"))
			Expect(launcher.identifiers[resp.JobID]).To(Equal([]string{"ABC1234567", "XYZ7654321"}))

			job, err := s.Job().Get(context.TODO(), resp.JobID)
			Expect(err).To(BeNil())
			Expect(job.Type).To(Equal(model.JobTypeExcel))
			Expect(*job.FileName).To(Equal("voters.csv"))
			Expect(*job.FileSize).To(BeNumerically("==", len(content)))
		})

		It("rejects an unsupported extension", func() {
			rec := upload(router, "voters.txt", []byte("ABC1234567\n"), nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			var resp api.Error
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Message).To(ContainSubstring("Only Excel"))
		})

		It("rejects a file without identifiers", func() {
			rec := upload(router, "voters.csv", []byte("epic_number\n"), nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			var resp api.Error
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Message).To(ContainSubstring("no EPIC numbers found"))
		})

		It("requires a file", func() {
			rec := upload(router, "", nil, map[string]string{"epic_column": "epic_number"})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("jobs", func() {
		It("returns a job with its progress", func() {
			accepted := postJSON(router, "/api/v1/extract/bulk", `{"epic_numbers":["ABC1234567"]}`)
			var created api.JobAccepted
			Expect(json.Unmarshal(accepted.Body.Bytes(), &created)).To(Succeed())

			rec := do(router, http.MethodGet, "/api/v1/jobs/"+created.JobID.String(), nil, "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var job api.JobStatus
			Expect(json.Unmarshal(rec.Body.Bytes(), &job)).To(Succeed())
			Expect(job.JobID).To(Equal(created.JobID))
			Expect(job.Status).To(Equal(model.JobStatusPending))
			Expect(job.Progress).To(BeNumerically("==", 0))
			Expect(job.FailedEpics).To(BeEmpty())
		})

		It("returns 404 for an unknown job", func() {
			rec := do(router, http.MethodGet, "/api/v1/jobs/"+uuid.NewString(), nil, "")
			Expect(rec.Code).To(Equal(http.StatusNotFound))

			rec = do(router, http.MethodGet, "/api/v1/jobs/"+uuid.NewString()+"/logs", nil, "")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for a malformed job id", func() {
			rec := do(router, http.MethodGet, "/api/v1/jobs/not-a-uuid", nil, "")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("lists jobs filtered by status", func() {
			for i := 0; i < 3; i++ {
				rec := postJSON(router, "/api/v1/extract/bulk", `{"epic_numbers":["ABC1234567"]}`)
				Expect(rec.Code).To(Equal(http.StatusAccepted))
			}

			rec := do(router, http.MethodGet, "/api/v1/jobs?limit=2", nil, "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			var list api.JobList
			Expect(json.Unmarshal(rec.Body.Bytes(), &list)).To(Succeed())
			Expect(list.Count).To(Equal(2))

			rec = do(router, http.MethodGet, "/api/v1/jobs?status=completed", nil, "")
			Expect(json.Unmarshal(rec.Body.Bytes(), &list)).To(Succeed())
			Expect(list.Count).To(Equal(0))
			Expect(list.Jobs).NotTo(BeNil())
		})

		It("rejects a negative limit", func() {
			rec := do(router, http.MethodGet, "/api/v1/jobs?limit=-1", nil, "")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns the logs of a job", func() {
			accepted := postJSON(router, "/api/v1/extract/bulk", `{"epic_numbers":["ABC1234567"]}`)
			var created api.JobAccepted
			Expect(json.Unmarshal(accepted.Body.Bytes(), &created)).To(Succeed())

			jobID := created.JobID
			_, err := s.ExtractionLog().Create(context.TODO(), model.ExtractionLog{
				JobID:      jobID,
				EpicNumber: "ABC1234567",
				Status:     model.LogStatusFailed,
				Attempts:   3,
			})
			Expect(err).To(BeNil())

			rec := do(router, http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/logs?limit=5", jobID), nil, "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var logs api.ExtractionLogList
			Expect(json.Unmarshal(rec.Body.Bytes(), &logs)).To(Succeed())
			Expect(logs.Extractions).To(HaveLen(1))
			Expect(logs.Extractions[0].Attempts).To(Equal(3))
			Expect(logs.Extractions[0].VoterData).To(BeNil())
		})
	})

	Context("voters", func() {
		BeforeEach(func() {
			Expect(postJSON(router, "/api/v1/extract/single", `{"epic_number":"ABC1234567"}`).Code).To(Equal(http.StatusOK))
			Expect(postJSON(router, "/api/v1/extract/single", `{"epic_number":"XYZ7654321"}`).Code).To(Equal(http.StatusOK))
		})

		It("searches by name fragment", func() {
			rec := do(router, http.MethodGet, "/api/v1/voters/search?query=asha", nil, "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var list api.VoterList
			Expect(json.Unmarshal(rec.Body.Bytes(), &list)).To(Succeed())
			Expect(list.Count).To(Equal(1))
			Expect(list.Voters[0]).To(HaveKeyWithValue("epic_number", "ABC1234567"))
		})

		It("searches by exact identifier", func() {
			rec := do(router, http.MethodGet, "/api/v1/voters/search?epic_number=XYZ7654321", nil, "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var list api.VoterList
			Expect(json.Unmarshal(rec.Body.Bytes(), &list)).To(Succeed())
			Expect(list.Count).To(Equal(1))
			Expect(list.Voters[0]).To(HaveKeyWithValue("full_name", "Ravi Kumar"))
		})

		It("returns a single voter", func() {
			rec := do(router, http.MethodGet, "/api/v1/voters/ABC1234567", nil, "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var voter api.Voter
			Expect(json.Unmarshal(rec.Body.Bytes(), &voter)).To(Succeed())
			Expect(voter).To(HaveKeyWithValue("age", BeNumerically("==", 42)))

			rec = do(router, http.MethodGet, "/api/v1/voters/ZZZ0000000", nil, "")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("exports a workbook", func() {
			rec := do(router, http.MethodGet, "/api/v1/voters/export", nil, "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(ContainSubstring("spreadsheetml"))
			Expect(rec.Header().Get("Content-Disposition")).To(ContainSubstring(".xlsx"))
			// xlsx files are zip archives
			Expect(rec.Body.Bytes()[:2]).To(Equal([]byte("PK")))
		})

		It("reports statistics", func() {
			rec := do(router, http.MethodGet, "/api/v1/stats", nil, "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var stats api.Stats
			Expect(json.Unmarshal(rec.Body.Bytes(), &stats)).To(Succeed())
			Expect(stats.TotalVoters).To(BeNumerically("==", 2))
		})
	})

	Context("info", func() {
		It("reports health", func() {
			rec := do(router, http.MethodGet, "/health", nil, "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var health api.Health
			Expect(json.Unmarshal(rec.Body.Bytes(), &health)).To(Succeed())
			Expect(health.Database).To(Equal(api.HealthHealthy))
			Expect(health.Portal).To(Equal(api.HealthHealthy))
			Expect(health.Overall).To(Equal(api.HealthHealthy))
		})

		It("answers on the root path", func() {
			rec := do(router, http.MethodGet, "/", nil, "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"status":"ok"`))
		})
	})
})
