package service

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/quizwise/backend/internal/domain/scoring"
	"github.com/quizwise/backend/internal/domain/subject"
	"github.com/quizwise/backend/internal/store"
)

const (
	DefaultLeaderboardSize = 20
	MaxLeaderboardSize     = 100
)

// ProgressService answers read-side queries over persisted results.
type ProgressService struct {
	reporter store.Reporter
	catalog  store.Catalog
}

func NewProgressService(r store.Reporter, c store.Catalog) *ProgressService {
	return &ProgressService{reporter: r, catalog: c}
}

// SubjectProgress aggregates a learner's resolutions per unit. Requested
// units without questions are reported with zero totals.
func (p *ProgressService) SubjectProgress(ctx context.Context, learnerID string, unitIDs []string) ([]scoring.UnitProgress, error) {
	questions, err := p.reporter.ListUnitQuestions(ctx, unitIDs)
	if err != nil {
		return nil, errors.Wrap(err, "list unit questions")
	}
	resolutions, err := p.reporter.ListResolutions(ctx, learnerID)
	if err != nil {
		return nil, errors.Wrap(err, "list resolutions")
	}

	qrefs := make([]scoring.QuestionRef, len(questions))
	for i, q := range questions {
		qrefs[i] = scoring.QuestionRef{QuestionID: q.ID, UnitID: q.UnitID}
	}
	rrefs := make([]scoring.ResolutionRef, len(resolutions))
	for i, r := range resolutions {
		rrefs[i] = scoring.ResolutionRef{QuestionID: r.QuestionID, Correct: r.Correct}
	}

	progress := scoring.SubjectProgress(qrefs, rrefs)
	seen := make(map[string]bool, len(progress))
	for _, up := range progress {
		seen[up.UnitID] = true
	}
	for _, u := range unitIDs {
		if !seen[u] {
			seen[u] = true
			progress = append(progress, scoring.UnitProgress{UnitID: u})
		}
	}
	sort.Slice(progress, func(i, j int) bool { return progress[i].UnitID < progress[j].UnitID })
	return progress, nil
}

// AreaUnits returns the unit IDs of an area, for progress over a whole area.
func (p *ProgressService) AreaUnits(ctx context.Context, areaID string) ([]string, error) {
	units, err := p.catalog.ListUnits(ctx, areaID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	return ids, nil
}

// Leaderboard returns the top learners by cumulative points.
func (p *ProgressService) Leaderboard(ctx context.Context, limit int) ([]store.RankEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	if limit > MaxLeaderboardSize {
		limit = MaxLeaderboardSize
	}
	return p.reporter.ListRankEntries(ctx, limit)
}

func (p *ProgressService) Areas(ctx context.Context) ([]*subject.Area, error) {
	return p.catalog.ListAreas(ctx)
}

func (p *ProgressService) Units(ctx context.Context, areaID string) ([]*subject.Unit, error) {
	return p.catalog.ListUnits(ctx, areaID)
}
