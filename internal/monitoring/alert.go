package monitoring

import (
	"github.com/rs/zerolog/log"
)

// Alert reports a condition an operator should look at. Alerts are logged
// until a paging integration exists.
func Alert(message string, labels map[string]string) {
	fields := make(map[string]interface{}, len(labels))
	for k, v := range labels {
		fields[k] = v
	}
	log.Error().
		Str("alert", message).
		Fields(fields).
		Msg("ALERT: Client-facing degradation detected")
}
