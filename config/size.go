package config

import "github.com/docker/go-units"

// SizeArgument is a byte count written in human form, e.g. "1MB" or "512KiB".
type SizeArgument struct {
	Size int64 `arg:"" help:"size in bytes"`
}

func (s *SizeArgument) UnmarshalText(text []byte) (err error) {
	s.Size, err = units.RAMInBytes(string(text))
	return
}

func (s SizeArgument) MarshalText() ([]byte, error) {
	return []byte(units.BytesSize(float64(s.Size))), nil
}
