package extraction

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NormalizePONumber", func() {
	It("strips the leading zeros from a 7-digit number", func() {
		po, ok := NormalizePONumber("0040085")
		Expect(ok).To(BeTrue())
		Expect(po).To(Equal("40085"))
	})

	It("keeps the line suffix while stripping zeros", func() {
		po, ok := NormalizePONumber("0040085-05")
		Expect(ok).To(BeTrue())
		Expect(po).To(Equal("40085-05"))
	})

	It("accepts a plain 5-digit number", func() {
		po, ok := NormalizePONumber("40085")
		Expect(ok).To(BeTrue())
		Expect(po).To(Equal("40085"))
	})

	It("repairs digit runs split by recognition", func() {
		po, ok := NormalizePONumber("00407 48")
		Expect(ok).To(BeTrue())
		Expect(po).To(Equal("40748"))
	})

	It("finds the token inside surrounding text", func() {
		po, ok := NormalizePONumber("PO/Rel 0040303-00 page 1")
		Expect(ok).To(BeTrue())
		Expect(po).To(Equal("40303-00"))
	})

	It("reports false when no token is present", func() {
		_, ok := NormalizePONumber("no numbers here")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("POCandidates", func() {
	var (
		text       string
		candidates []string
	)

	JustBeforeEach(func() {
		candidates = POCandidates(text, genericPOPatterns)
	})

	When("the text holds several labeled numbers", func() {
		BeforeEach(func() {
			text = "Purchase Order # 0040744-00\nPO 40085\nTotal $12.00"
		})

		It("returns the distinct normalized numbers sorted by core", func() {
			Expect(candidates).To(Equal([]string{"40085", "40744-00"}))
		})
	})

	When("the same number appears in two formats", func() {
		BeforeEach(func() {
			text = "PO 0040085\nOrder # 40085"
		})

		It("deduplicates after normalization", func() {
			Expect(candidates).To(Equal([]string{"40085"}))
		})
	})

	When("a number follows a phone-number ending", func() {
		BeforeEach(func() {
			text = "call 972-5590 0040644-00 for help"
		})

		It("captures it", func() {
			Expect(candidates).To(ContainElement("40644-00"))
		})
	})

	When("the text has no PO numbers", func() {
		BeforeEach(func() {
			text = "nothing to see"
		})

		It("returns an empty list", func() {
			Expect(candidates).To(BeEmpty())
		})
	})
})

var _ = Describe("ParseAmount", func() {
	It("strips currency symbols and separators", func() {
		amount, ok := ParseAmount("$1,234.56")
		Expect(ok).To(BeTrue())
		Expect(amount).To(Equal(1234.56))
	})

	It("accepts a plain decimal", func() {
		amount, ok := ParseAmount("250.50")
		Expect(ok).To(BeTrue())
		Expect(amount).To(Equal(250.50))
	})

	It("tolerates trailing non-numeric characters", func() {
		amount, ok := ParseAmount("99.95 USD")
		Expect(ok).To(BeTrue())
		Expect(amount).To(Equal(99.95))
	})

	It("reports false for non-numeric input", func() {
		_, ok := ParseAmount("abc")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("BuildLabelPattern", func() {
	It("matches the escaped label followed by a PO number", func() {
		re := BuildLabelPattern(FieldPONumber, "PO/Rel")
		m := re.FindStringSubmatch("Line PO/Rel 0040303-00 end")
		Expect(m).NotTo(BeNil())
		Expect(m[1]).To(Equal("0040303-00"))
	})

	It("treats regex metacharacters in the label literally", func() {
		re := BuildLabelPattern(FieldPONumber, "P.O.")
		Expect(re.MatchString("P.O. 40085")).To(BeTrue())
		Expect(re.MatchString("PxOx 40085")).To(BeFalse())
	})

	It("matches case-insensitively", func() {
		re := BuildLabelPattern(FieldPONumber, "PO#")
		Expect(re.MatchString("po# 40085")).To(BeTrue())
	})

	It("captures an amount after an amount-field label", func() {
		re := BuildLabelPattern(FieldAmount, "Balance Fwd")
		m := re.FindStringSubmatch("Balance Fwd $1,234.56")
		Expect(m).NotTo(BeNil())
		Expect(m[1]).To(Equal("1,234.56"))
	})
})

var _ = Describe("CollapseDigitRuns", func() {
	It("joins digits split by whitespace", func() {
		Expect(CollapseDigitRuns("00 40 7 48")).To(Equal("0040748"))
	})

	It("leaves word boundaries alone", func() {
		Expect(CollapseDigitRuns("PO 40085 due")).To(Equal("PO 40085 due"))
	})
})
