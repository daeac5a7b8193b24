package store

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/voterlookup/epic-extractor/internal/store/model"
	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Voter() Voter
	Job() Job
	ExtractionLog() ExtractionLog
	InitialMigration(ctx context.Context) error
	Ping(ctx context.Context) error
	Statistics(ctx context.Context) (model.Stats, error)
	Close() error
}

type DataStore struct {
	db            *gorm.DB
	log           logrus.FieldLogger
	voter         Voter
	job           Job
	extractionLog ExtractionLog
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:            db,
		log:           logrus.New().WithField("component", "store"),
		voter:         NewVoterStore(db),
		job:           NewJobStore(db),
		extractionLog: NewExtractionLogStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db, s.log)
}

func (s *DataStore) Voter() Voter {
	return s.voter
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) ExtractionLog() ExtractionLog {
	return s.extractionLog
}

// InitialMigration creates the schema with gorm. Postgres deployments run the
// goose migrations instead.
func (s *DataStore) InitialMigration(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&model.Voter{}, &model.Job{}, &model.ExtractionLog{})
}

func (s *DataStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *DataStore) Statistics(ctx context.Context) (model.Stats, error) {
	stats := model.Stats{JobsByStatus: map[string]int64{}}

	voters, err := s.Voter().Count(ctx)
	if err != nil {
		return model.Stats{}, err
	}
	stats.Voters = voters

	var rows []struct {
		Status string
		Count  int64
	}
	if err := s.db.WithContext(ctx).Model(&model.Job{}).Select("status, count(*) as count").Group("status").Scan(&rows).Error; err != nil {
		return model.Stats{}, err
	}
	for _, r := range rows {
		stats.JobsByStatus[r.Status] = r.Count
	}

	return stats, nil
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
