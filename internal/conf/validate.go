// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// maxSampleCount keeps a single buffer within one UDP datagram.
const maxSampleCount = (65507 - 32) / 8

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct and reports every
// problem found, not just the first.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		func(s *Settings) error { return validatePoolSettings(&s.Pool) },
		func(s *Settings) error { return validateReceiverSettings(&s.Receivers, s.Pool.SampleCount) },
		func(s *Settings) error { return validateCaptureSettings(&s.Capture) },
		func(s *Settings) error { return validateWebServerSettings(&s.WebServer) },
		func(s *Settings) error { return validateMQTTSettings(&s.MQTT) },
		func(s *Settings) error { return validateDatastoreSettings(&s.Datastore) },
		func(s *Settings) error { return validateSentrySettings(&s.Sentry) },
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// joinErrs folds a section's problems into one error line.
func joinErrs(section string, errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s settings errors: %s", section, strings.Join(errs, ", "))
}

func validatePoolSettings(p *PoolSettings) error {
	var errs []string

	if p.Antennas < 1 {
		errs = append(errs, fmt.Sprintf("antennas must be positive, got %d", p.Antennas))
	}
	if p.Channels < 1 {
		errs = append(errs, fmt.Sprintf("channels must be positive, got %d", p.Channels))
	}
	if p.Beams < 1 {
		errs = append(errs, fmt.Sprintf("beams must be positive, got %d", p.Beams))
	}
	if p.Multiplier < 1 {
		errs = append(errs, fmt.Sprintf("multiplier must be positive, got %d", p.Multiplier))
	}
	if p.SampleCount < 1 || p.SampleCount > maxSampleCount {
		errs = append(errs, fmt.Sprintf("samplecount must be between 1 and %d, got %d", maxSampleCount, p.SampleCount))
	}
	if p.DuplicateSecondAntenna && p.Antennas < 3 {
		errs = append(errs, "duplicatesecondantenna requires at least 3 antennas")
	}

	switch p.Matcher {
	case MatcherAll:
	case MatcherQuorum:
		if p.Quorum < 1 || p.Quorum > p.Antennas {
			errs = append(errs, fmt.Sprintf("quorum must be between 1 and %d, got %d", p.Antennas, p.Quorum))
		}
	default:
		errs = append(errs, fmt.Sprintf("matcher must be %q or %q, got %q", MatcherAll, MatcherQuorum, p.Matcher))
	}

	if p.MaxMemoryPercent <= 0 || p.MaxMemoryPercent > 90 {
		errs = append(errs, fmt.Sprintf("maxmemorypercent must be in (0, 90], got %g", p.MaxMemoryPercent))
	}

	if p.Remap.Enabled {
		errs = append(errs, validateRemap("antennas", p.Remap.Antennas, p.Antennas)...)
		errs = append(errs, validateRemap("channels", p.Remap.Channels, p.Channels)...)
		errs = append(errs, validateRemap("beams", p.Remap.Beams, p.Beams)...)
	}

	return joinErrs("pool", errs)
}

func validateRemap(name string, hardware []uint16, logical int) []string {
	if len(hardware) == 0 {
		return nil
	}
	var errs []string
	if len(hardware) != logical {
		errs = append(errs, fmt.Sprintf("remap.%s lists %d ids for %d %s", name, len(hardware), logical, name))
	}
	seen := make(map[uint16]bool, len(hardware))
	for _, hw := range hardware {
		if seen[hw] {
			errs = append(errs, fmt.Sprintf("remap.%s lists hardware id %d twice", name, hw))
		}
		seen[hw] = true
	}
	return errs
}

func validateReceiverSettings(r *ReceiverSettings, sampleCount int) error {
	var errs []string

	switch r.Mode {
	case ReceiverModeUDP:
		if len(r.UDP.Listen) == 0 {
			errs = append(errs, "udp.listen must list at least one address")
		}
		for _, addr := range r.UDP.Listen {
			if _, _, err := net.SplitHostPort(addr); err != nil {
				errs = append(errs, fmt.Sprintf("invalid udp listen address %q: %v", addr, err))
			}
		}
		if g := r.UDP.MulticastGroup; g != "" {
			if ip := net.ParseIP(g); ip == nil || !ip.IsMulticast() {
				errs = append(errs, fmt.Sprintf("udp.multicastgroup %q is not a multicast address", g))
			}
		}
		if r.UDP.ReadBuffer < 0 {
			errs = append(errs, "udp.readbuffer must not be negative")
		}
	case ReceiverModeSimulate:
		if r.Simulate.Rate <= 0 {
			errs = append(errs, fmt.Sprintf("simulate.rate must be positive, got %g", r.Simulate.Rate))
		}
		if r.Simulate.Tone < 0 || r.Simulate.Tone >= 0.5 {
			errs = append(errs, fmt.Sprintf("simulate.tone must be in [0, 0.5) cycles per sample, got %g", r.Simulate.Tone))
		}
		if r.Simulate.Noise < 0 {
			errs = append(errs, "simulate.noise must not be negative")
		}
	default:
		errs = append(errs, fmt.Sprintf("mode must be %q or %q, got %q", ReceiverModeUDP, ReceiverModeSimulate, r.Mode))
	}

	if r.DropLogInterval < 0 {
		errs = append(errs, "droploginterval must not be negative")
	}

	return joinErrs("receivers", errs)
}

func validateCaptureSettings(c *CaptureSettings) error {
	var errs []string
	if c.Path == "" {
		errs = append(errs, "path must be set")
	}
	if c.RingSize <= 0 {
		errs = append(errs, fmt.Sprintf("ringsize must be positive, got %d", c.RingSize))
	}
	if c.MaxRecords < 0 {
		errs = append(errs, "maxrecords must not be negative")
	}
	if c.MinFreeMB < 0 {
		errs = append(errs, "minfreemb must not be negative")
	}
	if c.Scale <= 0 {
		errs = append(errs, fmt.Sprintf("scale must be positive, got %g", c.Scale))
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Sprintf("samplerate must be positive, got %d", c.SampleRate))
	}
	return joinErrs("capture", errs)
}

func validateWebServerSettings(w *WebServerSettings) error {
	if !w.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(w.Listen); err != nil {
		return fmt.Errorf("webserver settings errors: invalid listen address %q: %w", w.Listen, err)
	}
	return nil
}

func validateMQTTSettings(m *MQTTSettings) error {
	if !m.Enabled {
		return nil
	}
	var errs []string
	if err := validateEnvBrokerURL(m.Broker); err != nil {
		errs = append(errs, err.Error())
	}
	if m.Topic == "" {
		errs = append(errs, "topic must be set")
	}
	if strings.ContainsAny(m.Topic, "#+") {
		errs = append(errs, "topic must not contain wildcards")
	}
	return joinErrs("mqtt", errs)
}

func validateDatastoreSettings(d *DatastoreSettings) error {
	if !d.Enabled {
		return nil
	}
	var errs []string
	switch d.Type {
	case DatastoreSQLite:
		if d.SQLite.Path == "" {
			errs = append(errs, "sqlite.path must be set")
		}
	case DatastoreMySQL:
		if d.MySQL.Host == "" || d.MySQL.Database == "" {
			errs = append(errs, "mysql.host and mysql.database must be set")
		}
		if d.MySQL.Port < 1 || d.MySQL.Port > 65535 {
			errs = append(errs, fmt.Sprintf("mysql.port out of range: %d", d.MySQL.Port))
		}
	default:
		errs = append(errs, fmt.Sprintf("type must be %q or %q, got %q", DatastoreSQLite, DatastoreMySQL, d.Type))
	}
	if d.Retention < 0 {
		errs = append(errs, "retention must not be negative")
	}
	return joinErrs("datastore", errs)
}

func validateSentrySettings(s *SentrySettings) error {
	if !s.Enabled {
		return nil
	}
	var errs []string
	if u, err := url.Parse(s.DSN); err != nil || u.Host == "" {
		errs = append(errs, "dsn must be a valid URL")
	}
	if s.SampleRate <= 0 || s.SampleRate > 1 {
		errs = append(errs, fmt.Sprintf("samplerate must be in (0, 1], got %g", s.SampleRate))
	}
	return joinErrs("sentry", errs)
}
