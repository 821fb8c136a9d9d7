package progress

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

const (
	barWidth    = 40
	barThrottle = 65 * 1000000
	spinnerType = 14
)

// NewMessageBar counts messages written to out. total may be -1 when unknown.
// A nil out gives a bar that renders nothing.
func NewMessageBar(out io.Writer, description string, total int64) *progressbar.ProgressBar {
	if out == nil {
		return progressbar.DefaultSilent(total, description)
	}
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetWidth(barWidth),
		progressbar.OptionThrottle(barThrottle),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("msg"),
		progressbar.OptionShowIts(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(out, "\n")
		}),
		progressbar.OptionSpinnerType(spinnerType),
		progressbar.OptionSetRenderBlankState(true),
	)
}
