package transcriptfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/model"
)

func write(t *testing.T, dir, name, text string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(text), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad(t *testing.T) {
	Convey("Given a directory of transcripts", t, func() {
		dir := t.TempDir()
		write(t, dir, "alpha.txt", "first call")
		write(t, dir, "beta.part10.txt", "ten")
		write(t, dir, "beta.part2.txt", "two")
		write(t, dir, "beta.txt", "head")
		write(t, dir, "notes.md", "ignored")

		Convey("When the directory is loaded", func() {
			calls, err := Load([]string{dir})

			Convey("Then chunk files join their call in numeric order", func() {
				So(err, ShouldBeNil)
				So(len(calls), ShouldEqual, 2)
				So(calls[0].CallID, ShouldEqual, "alpha")
				So(calls[0].Transcript, ShouldEqual, "first call")
				So(calls[1].CallID, ShouldEqual, "beta")
				So(calls[1].Transcript, ShouldEqual, "head")
				So(calls[1].Chunks, ShouldResemble, []string{"two", "ten"})
			})
		})

		Convey("When single files are named", func() {
			calls, err := Load([]string{filepath.Join(dir, "beta.part2.txt"), filepath.Join(dir, "alpha.txt")})

			Convey("Then calls keep argument order", func() {
				So(err, ShouldBeNil)
				So(calls[0].CallID, ShouldEqual, "beta")
				So(calls[0].Transcript, ShouldBeEmpty)
				So(calls[0].Chunks, ShouldResemble, []string{"two"})
				So(calls[1].CallID, ShouldEqual, "alpha")
			})
		})
	})

	Convey("Given bad input", t, func() {
		dir := t.TempDir()

		Convey("Then an empty directory yields no calls", func() {
			_, err := Load([]string{dir})
			So(errors.Is(err, ErrNoFiles), ShouldBeTrue)
		})

		Convey("Then a missing file is an error", func() {
			_, err := Load([]string{filepath.Join(dir, "missing.txt")})
			So(err, ShouldNotBeNil)
		})

		Convey("Then a file name that is not a valid call ID is rejected", func() {
			p := write(t, dir, "has space.txt", "x")
			_, err := Load([]string{p})
			So(errors.Is(err, model.ErrInvalidCallID), ShouldBeTrue)
		})
	})
}
