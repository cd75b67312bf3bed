package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/okian/cheevo/internal/domain/sequence"
	"github.com/okian/cheevo/internal/model/store"
	"github.com/okian/cheevo/internal/steam"
	"github.com/okian/cheevo/pkg/logger"
	"github.com/okian/cheevo/pkg/metrics"
)

// RankedScore is one row of the scoring output table.
type RankedScore struct {
	APIName     string
	DisplayName string
	Description string
	Score       float64
	Earned      bool
}

// Result is the full outcome of a scoring run.
type Result struct {
	// Rows is the ranked table, score descending.
	Rows []RankedScore

	// Unscored lists achievements present in the game schema but absent
	// from the model's vocabulary; they cannot be scored and are flagged
	// rather than silently assigned a value.
	Unscored []string

	// Meta describes the model that produced the scores.
	Meta store.Metadata
}

// Scoring ranks a player's likely-next achievements with a trained model.
type Scoring struct {
	api   PlayerAPI
	store *store.Store
	log   logger.Logger
}

// NewScoring creates a scoring driver.
func NewScoring(api PlayerAPI, st *store.Store, log logger.Logger) *Scoring {
	return &Scoring{api: api, store: st, log: log}
}

// Run loads the persisted model for the game, builds the target player's
// current sequence, and scores every achievement in the vocabulary. A
// missing model surfaces store.ErrModelNotFound: the user must train first.
func (s *Scoring) Run(ctx context.Context, steamID, appID string) (*Result, error) {
	m, meta, err := s.store.Load(ctx, appID)
	if err != nil {
		return nil, err
	}

	schema, err := s.api.GetGameSchema(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("fetch game schema: %w", err)
	}

	var seq sequence.Sequence
	records, err := s.api.GetPlayerAchievements(ctx, steamID, appID)
	switch {
	case err == nil:
		seq = sequence.Build(toUnlocks(records))
	case errors.Is(err, steam.ErrPrivateProfile):
		// No history available; score from population priors (cold start).
		s.log.Warn(ctx, "target profile is private; scoring cold start",
			logger.String("steamid", steamID))
	default:
		return nil, fmt.Errorf("fetch unlocks for %s: %w", steamID, err)
	}

	start := time.Now()
	scores, err := m.Score(ctx, seq)
	if err != nil {
		return nil, fmt.Errorf("score achievements: %w", err)
	}
	metrics.RecordScoringDuration(time.Since(start).Seconds())

	byName := make(map[string]steam.AchievementSchema, len(schema))
	for _, a := range schema {
		byName[a.APIName] = a
	}

	rows := make([]RankedScore, 0, len(scores))
	for _, sc := range scores {
		info := byName[sc.APIName]
		rows = append(rows, RankedScore{
			APIName:     sc.APIName,
			DisplayName: info.DisplayName,
			Description: info.Description,
			Score:       sc.Score,
			Earned:      seq.Contains(sc.APIName),
		})
	}

	// Score descending; equal scores fall back to api-name so the table is
	// stable across runs.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].APIName < rows[j].APIName
	})

	var unscored []string
	for _, a := range schema {
		if _, ok := m.Vocab.Lookup(a.APIName); !ok {
			unscored = append(unscored, a.APIName)
		}
	}
	if len(unscored) > 0 {
		s.log.Warn(ctx, "achievements outside the trained vocabulary cannot be scored",
			logger.Int("count", len(unscored)))
	}

	return &Result{Rows: rows, Unscored: unscored, Meta: meta}, nil
}

// Render writes the ranked table in a human-readable aligned layout.
func (r *Result) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ACHIEVEMENT\tNAME\tDESCRIPTION\tSCORE\tEARNED"); err != nil {
		return err
	}
	for _, row := range r.Rows {
		earned := ""
		if row.Earned {
			earned = "yes"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%s\n",
			row.APIName, row.DisplayName, row.Description, row.Score, earned); err != nil {
			return err
		}
	}
	if len(r.Unscored) > 0 {
		if _, err := fmt.Fprintf(tw, "\n%d achievement(s) not in the trained vocabulary: %v\n",
			len(r.Unscored), r.Unscored); err != nil {
			return err
		}
	}
	return tw.Flush()
}
