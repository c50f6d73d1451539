package service

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/domain/leaderboard"
)

func TestResultCache(t *testing.T) {
	Convey("Given a cache holding two results", t, func() {
		c := newResultCache(2)
		a, b, d := &leaderboard.Result{}, &leaderboard.Result{}, &leaderboard.Result{}
		c.put("a", a)
		c.put("b", b)

		Convey("When a is read and a third result is added", func() {
			got, ok := c.get("a")
			So(ok, ShouldBeTrue)
			So(got, ShouldPointTo, a)
			c.put("d", d)

			Convey("Then the least recently used entry is evicted", func() {
				So(c.size(), ShouldEqual, 2)
				_, ok := c.get("b")
				So(ok, ShouldBeFalse)
				_, ok = c.get("a")
				So(ok, ShouldBeTrue)
				_, ok = c.get("d")
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When a key is stored again", func() {
			c.put("a", d)

			Convey("Then the entry is replaced in place", func() {
				got, _ := c.get("a")
				So(got, ShouldPointTo, d)
				So(c.size(), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a cache with no capacity", t, func() {
		c := newResultCache(0)
		c.put("a", &leaderboard.Result{})

		Convey("Then nothing is stored", func() {
			_, ok := c.get("a")
			So(ok, ShouldBeFalse)
			So(c.size(), ShouldEqual, 0)
		})
	})
}
