package sqldb

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("rebind", func() {
	It("leaves question placeholders alone", func() {
		d := &Driver{placeholder: Question}
		Expect(d.rebind("SELECT * FROM turns WHERE id = ? LIMIT ?")).To(Equal("SELECT * FROM turns WHERE id = ? LIMIT ?"))
	})

	It("numbers dollar placeholders in order", func() {
		d := &Driver{placeholder: Dollar}
		Expect(d.rebind("SELECT * FROM turns WHERE provider = ? LIMIT ?")).To(Equal("SELECT * FROM turns WHERE provider = $1 LIMIT $2"))
	})
})
