package mappers_test

import (
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/voterlookup/epic-extractor/internal/service/mappers"
	"github.com/voterlookup/epic-extractor/internal/store/model"
)

var _ = Describe("outbound mappers", func() {
	It("maps a job with its failure ledger", func() {
		job := model.NewJob("Bulk extraction - 3 EPICs", model.JobTypeBulk, "S08", 3)
		job.Processed = 3
		job.Successful = 1
		job.Failed = 1
		job.Duplicates = 1
		job.Status = model.JobStatusCompleted
		job.FailedEntries = model.MakeJSONField(model.FailedEntries{{Identifier: "C", Reason: "Failed to extract data after 5 attempts"}})

		out := mappers.JobToApi(*job)
		Expect(out.JobID).To(Equal(job.ID))
		Expect(out.Progress).To(Equal(100.0))
		Expect(out.FailedEpics).To(HaveLen(1))
		Expect(out.FailedEpics[0].Epic).To(Equal("C"))
	})

	It("returns an empty ledger for jobs without failures", func() {
		out := mappers.JobToApi(*model.NewJob("job", model.JobTypeBulk, "S08", 0))
		Expect(out.FailedEpics).ToNot(BeNil())
		Expect(out.FailedEpics).To(BeEmpty())
		Expect(out.Progress).To(Equal(0.0))
	})

	It("attaches the voter summary to log entries", func() {
		name := "Asha Devi"
		voter := model.Voter{ID: uuid.New(), EpicNumber: "ABC1234567", FullName: &name}
		logs := mappers.ExtractionLogsToApi(model.ExtractionLogList{
			{EpicNumber: "ABC1234567", Status: model.LogStatusSuccess, Attempts: 2, Voter: &voter},
			{EpicNumber: "C", Status: model.LogStatusFailed, Attempts: 5},
		})

		Expect(logs.Extractions).To(HaveLen(2))
		Expect(*logs.Extractions[0].VoterData.FullName).To(Equal("Asha Devi"))
		Expect(logs.Extractions[1].VoterData).To(BeNil())
	})

	It("flattens voters to column names", func() {
		name := "Asha Devi"
		out := mappers.VoterListToApi(model.VoterList{{EpicNumber: "ABC1234567", FullName: &name, IsActive: true}})

		Expect(out.Count).To(Equal(1))
		Expect(out.Voters[0]).To(HaveKeyWithValue("epic_number", "ABC1234567"))
		Expect(out.Voters[0]).To(HaveKeyWithValue("full_name", "Asha Devi"))
		Expect(out.Voters[0]).To(HaveKeyWithValue("is_active", true))
	})
})
