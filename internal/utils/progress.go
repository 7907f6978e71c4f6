package utils

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Standard progress bar descriptions
const (
	DescDownloading = "Downloading"
	DescExtracting  = "Extracting"
	DescInstalling  = "Installing"
)

// NewProgressBar creates a consistently styled progress bar. Use -1 for an
// unknown total (spinner mode), which is the usual case for archive downloads
// where the provider omits Content-Length.
func NewProgressBar(total int64, description string) *progressbar.ProgressBar {
	opts := []progressbar.Option{
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	}

	if total < 0 {
		opts = append(opts,
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	return progressbar.NewOptions64(total, opts...)
}

// ProgressWriter wraps w so writes advance the bar alongside the real output
func ProgressWriter(w io.Writer, bar *progressbar.ProgressBar) io.Writer {
	if bar == nil {
		return w
	}
	return io.MultiWriter(w, bar)
}
