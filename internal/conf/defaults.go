// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/corrlab/corrbuf/internal/logger"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("pool.antennas", 3)
	viper.SetDefault("pool.channels", 1)
	viper.SetDefault("pool.beams", 1)
	viper.SetDefault("pool.multiplier", 6)
	viper.SetDefault("pool.samplecount", 4096)
	viper.SetDefault("pool.duplicatesecondantenna", false)
	viper.SetDefault("pool.matcher", MatcherAll)
	viper.SetDefault("pool.quorum", 2)
	viper.SetDefault("pool.maxmemorypercent", 25.0)
	viper.SetDefault("pool.remap.enabled", false)
	viper.SetDefault("pool.remap.antennas", []uint16{})
	viper.SetDefault("pool.remap.channels", []uint16{})
	viper.SetDefault("pool.remap.beams", []uint16{})

	viper.SetDefault("receivers.mode", ReceiverModeSimulate)
	viper.SetDefault("receivers.droploginterval", 10*time.Second)
	viper.SetDefault("receivers.udp.listen", []string{":5000"})
	viper.SetDefault("receivers.udp.multicastgroup", "")
	viper.SetDefault("receivers.udp.interface", "")
	viper.SetDefault("receivers.udp.readbuffer", 4<<20)
	viper.SetDefault("receivers.simulate.rate", 100.0)
	viper.SetDefault("receivers.simulate.tone", 0.01)
	viper.SetDefault("receivers.simulate.noise", 0.05)

	viper.SetDefault("correlator.enabled", true)
	viper.SetDefault("correlator.logevery", 100)

	viper.SetDefault("capture.path", "captures/")
	viper.SetDefault("capture.ringsize", 16<<20)
	viper.SetDefault("capture.maxrecords", 0)
	viper.SetDefault("capture.minfreemb", 512)
	viper.SetDefault("capture.scale", 1.0)
	viper.SetDefault("capture.samplerate", 48000)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.listen", ":8080")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "corrbuf")
	viper.SetDefault("mqtt.clientid", "corrbuf")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("datastore.enabled", false)
	viper.SetDefault("datastore.type", DatastoreSQLite)
	viper.SetDefault("datastore.retention", 7*24*time.Hour)
	viper.SetDefault("datastore.sqlite.path", "corrbuf.db")
	viper.SetDefault("datastore.mysql.host", "localhost")
	viper.SetDefault("datastore.mysql.port", 3306)
	viper.SetDefault("datastore.mysql.username", "corrbuf")
	viper.SetDefault("datastore.mysql.password", "")
	viper.SetDefault("datastore.mysql.database", "corrbuf")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")
	viper.SetDefault("sentry.samplerate", 1.0)

	viper.SetDefault("logging.default_level", logger.DefaultLogLevel)
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	viper.SetDefault("logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	viper.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	viper.SetDefault("logging.file_output.level", logger.DefaultLogLevel)
}
