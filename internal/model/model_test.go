package model_test

import (
	"context"
	"testing"

	"github.com/okian/cheevo/internal/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestVocabulary(t *testing.T) {
	Convey("Given sequences from a sampled population", t, func() {
		sequences := [][]string{
			{"ACH_A", "ACH_B"},
			{"ACH_B", "ACH_C"},
		}

		vocab := model.NewVocabulary(sequences)

		Convey("When looking items up", func() {
			Convey("Then indices are 1-based in first-appearance order", func() {
				So(vocab.Size(), ShouldEqual, 3)
				idx, ok := vocab.Lookup("ACH_A")
				So(ok, ShouldBeTrue)
				So(idx, ShouldEqual, 1)
				So(vocab.Name(1), ShouldEqual, "ACH_A")
				So(vocab.Name(3), ShouldEqual, "ACH_C")
				So(vocab.Name(0), ShouldEqual, "")
			})

			Convey("Then unknown items are dropped on encode", func() {
				So(vocab.Encode([]string{"ACH_A", "ACH_UNSEEN", "ACH_C"}), ShouldResemble, []int{1, 3})
			})
		})
	})
}

func TestTrainerPreconditions(t *testing.T) {
	Convey("Given a sequence trainer", t, func() {
		ctx := context.Background()
		trainer := model.NewSequenceTrainer()

		Convey("When fitting an empty dataset", func() {
			_, err := trainer.Fit(ctx, nil)

			Convey("Then it rejects before training", func() {
				So(err, ShouldEqual, model.ErrEmptyDataset)
			})
		})

		Convey("When the vocabulary has fewer than 2 achievements", func() {
			_, err := trainer.Fit(ctx, [][]string{{"ACH_ONLY"}, {"ACH_ONLY"}})

			Convey("Then it rejects before training", func() {
				So(err, ShouldEqual, model.ErrDegenerateVocabulary)
			})
		})

		Convey("When every sequence has length <= 1", func() {
			_, err := trainer.Fit(ctx, [][]string{{"ACH_A"}, {"ACH_B"}})

			Convey("Then it rejects the degenerate dataset", func() {
				So(err, ShouldEqual, model.ErrDegenerateDataset)
			})
		})
	})
}

func TestTrainingAndScoring(t *testing.T) {
	Convey("Given a population where ACH_B always follows ACH_A", t, func() {
		ctx := context.Background()
		var sequences [][]string
		for i := 0; i < 20; i++ {
			sequences = append(sequences, []string{"ACH_A", "ACH_B", "ACH_D"})
			sequences = append(sequences, []string{"ACH_C", "ACH_D"})
		}

		trainer := model.NewSequenceTrainer(model.WithEmbeddingDim(16), model.WithIterations(30))
		m, err := trainer.Fit(ctx, sequences)
		So(err, ShouldBeNil)

		Convey("When scoring a player whose last unlock is ACH_A", func() {
			scores, err := m.Score(ctx, []string{"ACH_A"})
			So(err, ShouldBeNil)

			byName := indexScores(scores)

			Convey("Then the full vocabulary is scored", func() {
				So(scores, ShouldHaveLength, 4)
			})

			Convey("Then the learned transition ranks ACH_B above ACH_C", func() {
				So(byName["ACH_B"], ShouldBeGreaterThan, byName["ACH_C"])
			})
		})

		Convey("When scoring the documented three-achievement scenario", func() {
			// Player unlocked A then C; B never. B must still be scorable.
			scores, err := m.Score(ctx, []string{"ACH_A", "ACH_C"})
			So(err, ShouldBeNil)

			byName := indexScores(scores)

			Convey("Then B receives a score despite zero direct signal", func() {
				_, ok := byName["ACH_B"]
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When scoring a cold-start player with zero unlocks", func() {
			scores, err := m.Score(ctx, nil)
			So(err, ShouldBeNil)

			Convey("Then a full table is produced from population priors", func() {
				So(scores, ShouldHaveLength, 4)
				byName := indexScores(scores)
				// ACH_D appears in every sequence; it should top the priors.
				So(byName["ACH_D"], ShouldBeGreaterThan, byName["ACH_C"])
			})
		})

		Convey("When the input sequence contains only unseen achievements", func() {
			scores, err := m.Score(ctx, []string{"ACH_FROM_ANOTHER_GAME"})
			So(err, ShouldBeNil)

			cold, err := m.Score(ctx, nil)
			So(err, ShouldBeNil)

			Convey("Then it behaves exactly like the cold-start case", func() {
				So(scores, ShouldResemble, cold)
			})
		})
	})
}

func TestTrainingDeterminism(t *testing.T) {
	Convey("Given two trainers with identical configuration", t, func() {
		ctx := context.Background()
		sequences := [][]string{
			{"ACH_A", "ACH_B", "ACH_C"},
			{"ACH_B", "ACH_C"},
			{"ACH_A", "ACH_C"},
		}

		first, err := model.NewSequenceTrainer().Fit(ctx, sequences)
		So(err, ShouldBeNil)
		second, err := model.NewSequenceTrainer().Fit(ctx, sequences)
		So(err, ShouldBeNil)

		Convey("When scoring the same sequence with both models", func() {
			a, err := first.Score(ctx, []string{"ACH_A"})
			So(err, ShouldBeNil)
			b, err := second.Score(ctx, []string{"ACH_A"})
			So(err, ShouldBeNil)

			Convey("Then the scores are bit-identical", func() {
				So(a, ShouldResemble, b)
			})
		})
	})
}

func indexScores(scores []model.ItemScore) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for _, s := range scores {
		out[s.APIName] = s.Score
	}
	return out
}
