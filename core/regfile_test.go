package core

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RegisterFile", func() {
	var f *RegisterFile

	BeforeEach(func() {
		f = &RegisterFile{}
	})

	It("should read zero from register 0 after a write", func() {
		f.Write(0, 1234)

		Expect(f.Read(0)).To(BeZero())
		Expect(f.Values()[0]).To(BeZero())
	})

	It("should store other registers", func() {
		for i := uint8(1); i < 32; i++ {
			f.Write(i, uint32(i)*3)
		}

		for i := uint8(1); i < 32; i++ {
			Expect(f.Read(i)).To(Equal(uint32(i) * 3))
		}
	})

	It("should never report register 0 as locked", func() {
		f.lock(0)

		Expect(f.Locked(0)).To(BeFalse())
	})

	It("should count locks", func() {
		f.lock(7)
		f.lock(7)
		Expect(f.Locks(7)).To(Equal(uint32(2)))
		Expect(f.Locked(7)).To(BeTrue())

		f.unlock(7)
		f.unlock(7)
		Expect(f.Locked(7)).To(BeFalse())
	})

	It("should panic when releasing an unlocked register", func() {
		Expect(func() { f.unlock(5) }).To(Panic())
	})
})
