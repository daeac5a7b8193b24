package service

import (
	"context"
	"errors"
	"io"

	"github.com/voterlookup/epic-extractor/internal/spreadsheet"
	"github.com/voterlookup/epic-extractor/internal/store"
	"github.com/voterlookup/epic-extractor/internal/store/model"
)

const (
	DefaultSearchLimit = 20
	MaxExportRows      = 50000
)

// VoterSearch selects voters by exact identifier or by a name fragment. The
// identifier wins when both are set.
type VoterSearch struct {
	EpicNumber string
	Query      string
	Limit      int
	Offset     int
}

type VoterService struct {
	store store.Store
}

func NewVoterService(st store.Store) *VoterService {
	return &VoterService{store: st}
}

func (s *VoterService) Search(ctx context.Context, search VoterSearch) (model.VoterList, error) {
	if search.EpicNumber != "" {
		return s.store.Voter().List(ctx, store.NewVoterQueryFilter().ByEpicNumber(search.EpicNumber), nil)
	}

	limit := search.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	opts := store.NewVoterQueryOptions().WithLimit(limit).WithOffset(max(search.Offset, 0))

	var filter *store.VoterQueryFilter
	if search.Query != "" {
		filter = store.NewVoterQueryFilter().ByNameLike(search.Query)
	}
	return s.store.Voter().List(ctx, filter, opts)
}

func (s *VoterService) GetVoter(ctx context.Context, epicNumber string) (*model.Voter, error) {
	voter, err := s.store.Voter().GetByEpic(ctx, epicNumber)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrVoterNotFound(epicNumber)
		}
		return nil, err
	}
	return voter, nil
}

// Export writes the matching voters as a workbook, ordered by identifier.
func (s *VoterService) Export(ctx context.Context, w io.Writer, query string) error {
	var filter *store.VoterQueryFilter
	if query != "" {
		filter = store.NewVoterQueryFilter().ByNameLike(query)
	}

	voters, err := s.store.Voter().List(ctx, filter, store.NewVoterQueryOptions().
		WithSortOrder(store.SortByEpicNumber).
		WithLimit(MaxExportRows))
	if err != nil {
		return err
	}
	return spreadsheet.WriteVoters(w, voters)
}
