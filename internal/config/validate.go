package config

import (
	"fmt"
	"strings"
)

// Validate performs syntactic validation on raw config
func Validate(raw *RawConfig) error {
	return validateRawSyntax(raw)
}

// validateRawSyntax performs basic syntactic validation on raw config
func validateRawSyntax(raw *RawConfig) error {
	if strings.ContainsAny(raw.Stats.ProcessType, " \t\n") {
		return fmt.Errorf("process_type %q cannot contain whitespace", raw.Stats.ProcessType)
	}

	if sd := raw.Stats.Stackdriver; sd != nil {
		if strings.Contains(sd.PathPrefix, "//") || strings.HasPrefix(sd.PathPrefix, "/") || strings.HasSuffix(sd.PathPrefix, "/") {
			return fmt.Errorf("stackdriver path_prefix %q must not start or end with '/' or contain empty segments", sd.PathPrefix)
		}
	}

	if raw.Ingest.MaxPacketSize < 0 {
		return fmt.Errorf("ingest max_packet_size cannot be negative")
	}

	return nil
}
