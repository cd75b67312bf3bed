package sequence_test

import (
	"testing"

	sequence "github.com/okian/cheevo/internal/domain/sequence"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBuild(t *testing.T) {
	Convey("Given a player's raw unlock records", t, func() {
		Convey("When some achievements are still locked", func() {
			unlocks := []sequence.Unlock{
				{APIName: "ACH_A", UnlockTime: 1},
				{APIName: "ACH_B", UnlockTime: 0},
				{APIName: "ACH_C", UnlockTime: 2},
			}

			seq := sequence.Build(unlocks)

			Convey("Then locked achievements never appear in the sequence", func() {
				So(seq, ShouldResemble, sequence.Sequence{"ACH_A", "ACH_C"})
				So(seq.Contains("ACH_B"), ShouldBeFalse)
			})
		})

		Convey("When records arrive out of timestamp order", func() {
			unlocks := []sequence.Unlock{
				{APIName: "ACH_LATE", UnlockTime: 900},
				{APIName: "ACH_FIRST", UnlockTime: 100},
				{APIName: "ACH_MID", UnlockTime: 500},
			}

			seq := sequence.Build(unlocks)

			Convey("Then the sequence is sorted by unlock time ascending", func() {
				So(seq, ShouldResemble, sequence.Sequence{"ACH_FIRST", "ACH_MID", "ACH_LATE"})
			})
		})

		Convey("When unlock timestamps tie", func() {
			forward := []sequence.Unlock{
				{APIName: "ACH_Z", UnlockTime: 50},
				{APIName: "ACH_A", UnlockTime: 50},
				{APIName: "ACH_M", UnlockTime: 50},
			}
			reversed := []sequence.Unlock{
				{APIName: "ACH_M", UnlockTime: 50},
				{APIName: "ACH_A", UnlockTime: 50},
				{APIName: "ACH_Z", UnlockTime: 50},
			}

			Convey("Then ties break by api-name ascending regardless of input order", func() {
				want := sequence.Sequence{"ACH_A", "ACH_M", "ACH_Z"}
				So(sequence.Build(forward), ShouldResemble, want)
				So(sequence.Build(reversed), ShouldResemble, want)
			})
		})

		Convey("When the player has zero unlocks", func() {
			unlocks := []sequence.Unlock{
				{APIName: "ACH_A", UnlockTime: 0},
				{APIName: "ACH_B", UnlockTime: 0},
			}

			seq := sequence.Build(unlocks)

			Convey("Then the sequence is empty", func() {
				So(seq, ShouldBeEmpty)
				So(seq.Last(), ShouldEqual, "")
			})
		})

		Convey("When building repeatedly from the same records", func() {
			unlocks := []sequence.Unlock{
				{APIName: "ACH_B", UnlockTime: 7},
				{APIName: "ACH_A", UnlockTime: 7},
				{APIName: "ACH_C", UnlockTime: 3},
			}

			first := sequence.Build(unlocks)
			second := sequence.Build(unlocks)

			Convey("Then the output is identical every time", func() {
				So(first, ShouldResemble, second)
				So(first, ShouldResemble, sequence.Sequence{"ACH_C", "ACH_A", "ACH_B"})
			})
		})
	})
}
