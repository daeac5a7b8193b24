package mappers

import (
	"encoding/json"

	api "github.com/voterlookup/epic-extractor/api/v1alpha1"
	"github.com/voterlookup/epic-extractor/internal/store/model"
)

func JobToApi(j model.Job) api.JobStatus {
	job := api.JobStatus{
		JobID:             j.ID,
		JobName:           j.Name,
		JobType:           j.Type,
		Status:            j.Status,
		Progress:          j.Progress(),
		TotalRecords:      j.Total,
		ProcessedRecords:  j.Processed,
		SuccessfulRecords: j.Successful,
		FailedRecords:     j.Failed,
		DuplicateRecords:  j.Duplicates,
		FailedEpics:       []api.FailedEpic{},
		FileName:          j.FileName,
		ErrorMessage:      j.ErrorMessage,
		CreatedAt:         j.CreatedAt,
		StartedAt:         j.StartedAt,
		CompletedAt:       j.CompletedAt,
	}

	if j.FailedEntries != nil {
		for _, f := range j.FailedEntries.Data {
			job.FailedEpics = append(job.FailedEpics, api.FailedEpic{Epic: f.Identifier, Reason: f.Reason})
		}
	}

	return job
}

func JobListToApi(jobs model.JobList) api.JobList {
	list := api.JobList{Jobs: make([]api.JobStatus, 0, len(jobs))}
	for _, j := range jobs {
		list.Jobs = append(list.Jobs, JobToApi(j))
	}
	list.Count = len(list.Jobs)
	return list
}

func ExtractionLogsToApi(entries model.ExtractionLogList) api.ExtractionLogList {
	list := api.ExtractionLogList{Extractions: make([]api.ExtractionLogEntry, 0, len(entries))}
	for _, e := range entries {
		entry := api.ExtractionLogEntry{
			EpicNumber:   e.EpicNumber,
			Status:       e.Status,
			Attempts:     e.Attempts,
			ErrorMessage: e.ErrorMessage,
			CreatedAt:    e.CreatedAt,
		}
		if e.Voter != nil {
			summary := VoterSummaryToApi(*e.Voter)
			entry.VoterData = &summary
		}
		list.Extractions = append(list.Extractions, entry)
	}
	return list
}

func VoterSummaryToApi(v model.Voter) api.VoterSummary {
	return api.VoterSummary{
		FullName:           v.FullName,
		FullNameL1:         v.FullNameL1,
		Age:                v.Age,
		Gender:             v.Gender,
		RelationType:       v.RelationType,
		RelativeFullName:   v.RelativeFullName,
		RelativeFullNameL1: v.RelativeFullNameL1,
		PartNumber:         v.PartNumber,
		PartName:           v.PartName,
		AcNumber:           v.AcNumber,
		AsmblyName:         v.AsmblyName,
		DistrictValue:      v.DistrictValue,
		StateName:          v.StateName,
		PsBuildingName:     v.PsBuildingName,
		PsRoomDetails:      v.PsRoomDetails,
	}
}

// VoterToApi flattens the stored row into its column names.
func VoterToApi(v model.Voter) api.Voter {
	out := api.Voter{}
	b, err := json.Marshal(v)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(b, &out)
	return out
}

func VoterListToApi(voters model.VoterList) api.VoterList {
	list := api.VoterList{Voters: make([]api.Voter, 0, len(voters))}
	for _, v := range voters {
		list.Voters = append(list.Voters, VoterToApi(v))
	}
	list.Count = len(list.Voters)
	return list
}

func StatsToApi(s model.Stats) api.Stats {
	jobs := make(map[string]int64, len(s.JobsByStatus))
	for status, n := range s.JobsByStatus {
		jobs[status] = n
	}
	return api.Stats{TotalVoters: s.Voters, Jobs: jobs}
}
