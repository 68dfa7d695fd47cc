package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	return &Settings{
		Pool: PoolSettings{
			Antennas: 3, Channels: 1, Beams: 1, Multiplier: 6, SampleCount: 4096,
			Matcher: MatcherAll, Quorum: 2, MaxMemoryPercent: 25,
		},
		Receivers: ReceiverSettings{
			Mode:     ReceiverModeSimulate,
			UDP:      UDPSettings{Listen: []string{":5000"}},
			Simulate: SimulateSettings{Rate: 100, Tone: 0.01, Noise: 0.05},
		},
		Capture:   CaptureSettings{Path: "captures/", RingSize: 1 << 20, Scale: 1, SampleRate: 48000},
		WebServer: WebServerSettings{Enabled: true, Listen: ":8080"},
		MQTT:      MQTTSettings{Broker: "tcp://localhost:1883", Topic: "corrbuf"},
		Datastore: DatastoreSettings{Type: DatastoreSQLite, SQLite: SQLiteSettings{Path: "corrbuf.db"}},
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"defaults are valid", func(*Settings) {}, ""},
		{"zero antennas", func(s *Settings) { s.Pool.Antennas = 0 }, "antennas must be positive"},
		{"sample count above datagram", func(s *Settings) { s.Pool.SampleCount = 9000 }, "samplecount"},
		{"duplication with two antennas", func(s *Settings) {
			s.Pool.Antennas = 2
			s.Pool.DuplicateSecondAntenna = true
		}, "duplicatesecondantenna"},
		{"quorum above antennas", func(s *Settings) {
			s.Pool.Matcher = MatcherQuorum
			s.Pool.Quorum = 4
		}, "quorum must be between 1 and 3"},
		{"unknown matcher", func(s *Settings) { s.Pool.Matcher = "any" }, "matcher must be"},
		{"memory percent", func(s *Settings) { s.Pool.MaxMemoryPercent = 0 }, "maxmemorypercent"},
		{"remap length", func(s *Settings) {
			s.Pool.Remap = RemapSettings{Enabled: true, Antennas: []uint16{1, 2}}
		}, "remap.antennas lists 2 ids for 3 antennas"},
		{"remap duplicate", func(s *Settings) {
			s.Pool.Remap = RemapSettings{Enabled: true, Channels: []uint16{5}, Antennas: []uint16{1, 1, 2}}
		}, "hardware id 1 twice"},
		{"disabled remap is ignored", func(s *Settings) {
			s.Pool.Remap = RemapSettings{Antennas: []uint16{1}}
		}, ""},
		{"udp without listen", func(s *Settings) {
			s.Receivers.Mode = ReceiverModeUDP
			s.Receivers.UDP.Listen = nil
		}, "udp.listen"},
		{"udp bad address", func(s *Settings) {
			s.Receivers.Mode = ReceiverModeUDP
			s.Receivers.UDP.Listen = []string{"5000"}
		}, "invalid udp listen address"},
		{"udp unicast group", func(s *Settings) {
			s.Receivers.Mode = ReceiverModeUDP
			s.Receivers.UDP.MulticastGroup = "10.0.0.1"
		}, "not a multicast address"},
		{"simulate tone above nyquist", func(s *Settings) { s.Receivers.Simulate.Tone = 0.5 }, "simulate.tone"},
		{"unknown mode", func(s *Settings) { s.Receivers.Mode = "tcp" }, "mode must be"},
		{"capture scale", func(s *Settings) { s.Capture.Scale = 0 }, "scale must be positive"},
		{"capture sample rate", func(s *Settings) { s.Capture.SampleRate = 0 }, "samplerate must be positive"},
		{"webserver listen", func(s *Settings) { s.WebServer.Listen = "8080" }, "invalid listen address"},
		{"webserver disabled ignores listen", func(s *Settings) {
			s.WebServer = WebServerSettings{Listen: "nonsense"}
		}, ""},
		{"mqtt wildcard topic", func(s *Settings) {
			s.MQTT.Enabled = true
			s.MQTT.Topic = "corrbuf/#"
		}, "wildcards"},
		{"mqtt bad scheme", func(s *Settings) {
			s.MQTT.Enabled = true
			s.MQTT.Broker = "http://localhost:1883"
		}, "unsupported broker scheme"},
		{"datastore type", func(s *Settings) {
			s.Datastore.Enabled = true
			s.Datastore.Type = "postgres"
		}, "type must be"},
		{"mysql port", func(s *Settings) {
			s.Datastore.Enabled = true
			s.Datastore.Type = DatastoreMySQL
			s.Datastore.MySQL = MySQLSettings{Host: "db", Database: "corrbuf", Port: 0}
		}, "mysql.port"},
		{"sentry dsn", func(s *Settings) {
			s.Sentry = SentrySettings{Enabled: true, DSN: "not a url", SampleRate: 1}
		}, "dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSettingsCollectsAllSections(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Pool.Channels = 0
	s.Capture.Path = ""
	s.Receivers.Mode = "tcp"

	err := ValidateSettings(s)
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3)
}
