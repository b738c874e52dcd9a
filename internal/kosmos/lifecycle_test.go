package kosmos_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/kosmos/internal/body"
	"github.com/san-kum/kosmos/internal/dynamo"
	"github.com/san-kum/kosmos/internal/kosmos"
	"github.com/san-kum/kosmos/internal/vec"
)

var _ = Describe("Kosmos", func() {
	var k *kosmos.Kosmos

	BeforeEach(func() {
		var err error
		k, err = kosmos.New(kosmos.Config{G: 1, Softening: 0.01})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("adding bodies", func() {
		It("assigns increasing ids in insertion order", func() {
			a, err := k.AddBody(body.MustNew(1, vec.New(1, 0, 0), vec.Zero).WithName("a"))
			Expect(err).NotTo(HaveOccurred())
			b, err := k.AddBody(body.MustNew(2, vec.New(-1, 0, 0), vec.Zero).WithName("b"))
			Expect(err).NotTo(HaveOccurred())

			Expect(b).To(BeNumerically(">", a))
			Expect(k.IDs()).To(Equal([]body.ID{a, b}))
			Expect(k.BodyCount()).To(Equal(2))

			snap, err := k.Body(b)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Name).To(Equal("b"))
			Expect(snap.Mass).To(Equal(2.0))
		})

		It("rejects bodies with non-positive mass at construction", func() {
			_, err := body.New(0, vec.Zero, vec.Zero)
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
			_, err = body.New(-3, vec.Zero, vec.Zero)
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		})
	})

	Describe("stepping", func() {
		BeforeEach(func() {
			v := math.Sqrt2 / 2
			_, err := k.AddBody(body.MustNew(1, vec.New(0.5, 0, 0), vec.New(0, v, 0)))
			Expect(err).NotTo(HaveOccurred())
			_, err = k.AddBody(body.MustNew(1, vec.New(-0.5, 0, 0), vec.New(0, -v, 0)))
			Expect(err).NotTo(HaveOccurred())
		})

		It("advances time monotonically", func() {
			last := k.Time()
			for i := 0; i < 50; i++ {
				Expect(k.Step(1e-3)).To(Succeed())
				Expect(k.Time()).To(BeNumerically(">", last))
				last = k.Time()
			}
			Expect(k.Steps()).To(Equal(50))
			Expect(k.Evaluations()).To(Equal(100))
		})

		It("keeps the center of mass fixed when total momentum is zero", func() {
			com := k.CenterOfMass()
			Expect(k.Run(1e-3, 500)).To(Succeed())
			Expect(vec.Norm(vec.Sub(k.CenterOfMass(), com))).To(BeNumerically("<", 1e-12))
		})

		It("conserves angular momentum", func() {
			l0 := k.AngularMomentum()
			Expect(k.Run(1e-3, 2000)).To(Succeed())
			Expect(vec.Norm(vec.Sub(k.AngularMomentum(), l0))).To(BeNumerically("<", 1e-10))
		})

		It("leaves the clock untouched on invalid dt", func() {
			Expect(k.Step(0)).To(MatchError(dynamo.ErrInvalidParameter))
			Expect(k.Step(-1)).To(MatchError(dynamo.ErrInvalidParameter))
			Expect(k.Time()).To(BeZero())
		})
	})

	Describe("removing bodies", func() {
		It("reports unknown ids", func() {
			Expect(k.RemoveBody(42)).To(MatchError(dynamo.ErrNotFound))
		})

		It("drops the body's energy contribution", func() {
			keep, _ := k.AddBody(body.MustNew(1, vec.New(0, 0, 0), vec.New(0.2, 0, 0)))
			drop, _ := k.AddBody(body.MustNew(5, vec.New(2, 0, 0), vec.New(0, 1, 0)))

			Expect(k.RemoveBody(drop)).To(Succeed())
			Expect(k.TotalEnergy()).To(BeNumerically("~", 0.02, 1e-15))
			Expect(k.IDs()).To(ConsistOf(keep))
		})
	})
})
