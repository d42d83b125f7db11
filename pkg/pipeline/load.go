package pipeline

import (
	"github.com/matzehuels/flowscope/pkg/packet"
)

// Load decodes the input capture and applies the time range. It returns
// the kept records and the number of frames the decoder skipped.
func Load(opts Options) ([]packet.Record, int, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, 0, err
	}

	capture, err := packet.ReadFile(opts.Input)
	if err != nil {
		return nil, 0, err
	}

	records, err := packet.Filter(capture.Records, opts.From, opts.To)
	if err != nil {
		return nil, 0, err
	}

	if capture.Skipped > 0 {
		opts.Logger.Warn("skipped frames without IP and TCP/UDP", "count", capture.Skipped)
	}
	if dropped := len(capture.Records) - len(records); dropped > 0 {
		opts.Logger.Debug("time filter dropped records", "count", dropped)
	}
	return records, capture.Skipped, nil
}
