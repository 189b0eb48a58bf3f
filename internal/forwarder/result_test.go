package forwarder

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = DescribeTable("formatDuration",
	func(d time.Duration, expected string) {
		Expect(formatDuration(d)).To(Equal(expected))
	},
	Entry("whole milliseconds", 152*time.Millisecond, "152ms"),
	Entry("rounds a fractional leg up", 1600*time.Microsecond, "2ms"),
	Entry("rounds a fractional leg down", 1400*time.Microsecond, "1ms"),
	Entry("keeps a fast leg above zero", 600*time.Microsecond, "1ms"),
	Entry("zero", time.Duration(0), "0ms"),
)
