package structure_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/alex-galey/docking-mcp/internal/structure"
)

var _ = Describe("Geometry", func() {
	triangle := []structure.Point3{{X: 0, Y: 0, Z: 0}, {X: 2, Y: 0, Z: 0}, {X: 0, Y: 2, Z: 0}}

	It("centers on the arithmetic mean", func() {
		c, err := structure.Center(triangle)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.X).To(BeNumerically("~", 2.0/3.0, 1e-9))
		Expect(c.Y).To(BeNumerically("~", 2.0/3.0, 1e-9))
		Expect(c.Z).To(BeNumerically("~", 0, 1e-9))
	})

	It("pads the extent on both sides of every axis", func() {
		b, err := structure.BoundingBox(triangle, structure.DefaultPadding)
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(Equal(structure.Box3{X: 22, Y: 22, Z: 20}))
	})

	It("gives a single atom a box of twice the padding", func() {
		b, err := structure.BoundingBox([]structure.Point3{{X: 5, Y: -3, Z: 1}}, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(Equal(structure.Box3{X: 8, Y: 8, Z: 8}))
	})

	It("handles negative coordinates", func() {
		b, err := structure.BoundingBox([]structure.Point3{{X: -4, Y: -1, Z: -10}, {X: -2, Y: 1, Z: -6}}, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(Equal(structure.Box3{X: 2, Y: 2, Z: 4}))
	})

	It("refuses empty input", func() {
		_, err := structure.Center(nil)
		Expect(err).To(MatchError(structure.ErrEmptyInput))
		_, err = structure.BoundingBox([]structure.Point3{}, 10)
		Expect(err).To(MatchError(structure.ErrEmptyInput))
	})

	It("falls back to the documented defaults", func() {
		Expect(structure.CenterOrDefault(nil)).To(Equal(structure.Point3{}))
		Expect(structure.BoundingBoxOrDefault(nil, 3)).To(Equal(structure.Box3{X: 20, Y: 20, Z: 20}))

		center, box, fallback := structure.SearchSpace(nil, structure.DefaultPadding)
		Expect(fallback).To(BeTrue())
		Expect(center).To(Equal(structure.DefaultCenter))
		Expect(box).To(Equal(structure.DefaultBox))
	})

	It("uses the default box for a single atom regardless of padding", func() {
		lone := []structure.Point3{{X: 1, Y: 2, Z: 3}}
		Expect(structure.BoundingBoxOrDefault(lone, 5)).To(Equal(structure.DefaultBox))

		center, box, fallback := structure.SearchSpace(lone, 5)
		Expect(fallback).To(BeTrue())
		Expect(center).To(Equal(structure.Point3{X: 1, Y: 2, Z: 3}))
		Expect(box).To(Equal(structure.Box3{X: 20, Y: 20, Z: 20}))
	})

	It("derives the search space from real atoms", func() {
		center, box, fallback := structure.SearchSpace(triangle, structure.DefaultPadding)
		Expect(fallback).To(BeFalse())
		Expect(center.X).To(BeNumerically("~", 0.667, 1e-3))
		Expect(box.X).To(Equal(22.0))
	})
})
