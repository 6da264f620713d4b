package monitoring

import (
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type sampleStruct struct {
	field1 int
	field2 string
	field3 *sampleStruct
	field4 []sampleStruct
}

var _ = Describe("walkFields", func() {
	It("should walk int fields", func() {
		s := &sampleStruct{
			field1: 1,
		}

		elem, err := walkFields(s, "field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk string fields", func() {
		s := &sampleStruct{
			field2: "abc",
		}

		elem, err := walkFields(s, "field2")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.String))
		Expect(elem.String()).To(Equal("abc"))
	})

	It("should walk struct", func() {
		s := &sampleStruct{
			field3: &sampleStruct{},
		}

		elem, err := walkFields(s, "field3")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Struct))
		Expect(elem.Type().Name()).To(Equal("sampleStruct"))
	})

	It("should walk recursively", func() {
		s := &sampleStruct{
			field3: &sampleStruct{
				field1: 1,
			},
		}

		elem, err := walkFields(s, "field3.field1")

		Expect(err).To(BeNil())
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk slice recursively", func() {
		s := &sampleStruct{
			field4: []sampleStruct{{
				field4: []sampleStruct{
					{field1: 1},
				},
			}, {}},
		}

		elem, err := walkFields(s, "field4.0.field4.0.field1")

		Expect(err).To(BeNil())
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should report missing fields", func() {
		_, err := walkFields(&sampleStruct{}, "field9")

		Expect(err).To(MatchError(`field "field9" not found`))
	})

	It("should report nil pointers", func() {
		_, err := walkFields(&sampleStruct{}, "field3.field1")

		Expect(err).To(HaveOccurred())
	})

	It("should report bad slice indices", func() {
		s := &sampleStruct{field4: []sampleStruct{{}}}

		_, err := walkFields(s, "field4.1")
		Expect(err).To(HaveOccurred())

		_, err = walkFields(s, "field4.x")
		Expect(err).To(HaveOccurred())
	})

	It("should not walk into scalars", func() {
		_, err := walkFields(&sampleStruct{}, "field1.x")

		Expect(err).To(HaveOccurred())
	})
})
