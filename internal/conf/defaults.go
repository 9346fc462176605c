// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("llm.provider", ProviderGemini)
	viper.SetDefault("llm.model", "gemini-2.0-flash")
	viper.SetDefault("llm.apikey", "")
	viper.SetDefault("llm.baseurl", "https://api.openai.com")
	viper.SetDefault("llm.timeout", 60*time.Second)
	viper.SetDefault("llm.maxretries", 2)
	viper.SetDefault("llm.basedelay", time.Second)
	viper.SetDefault("llm.temperature", 0.1)

	viper.SetDefault("calibration.infraredpenalty", 0.15)
	viper.SetDefault("calibration.flasheyeshinecap", 0.55)
	viper.SetDefault("calibration.occludedfacecap", 0.60)
	viper.SetDefault("calibration.reviewthreshold", 0.65)
	viper.SetDefault("calibration.ambiguitymargin", 0.15)

	viper.SetDefault("taxonomy.path", "")
	viper.SetDefault("taxonomy.stationspath", "")

	viper.SetDefault("imaging.maxbytes", 15<<20)

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.ttl", time.Hour)

	viper.SetDefault("webserver.listen", ":8080")
	viper.SetDefault("webserver.bodylimit", "20M")
	viper.SetDefault("webserver.requesttimeout", 120*time.Second)

	viper.SetDefault("batch.pacing", 500*time.Millisecond)
	viper.SetDefault("batch.retries", 3)
	viper.SetDefault("batch.retrydelay", 2*time.Second)

	viper.SetDefault("metrics.enabled", true)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/trapcam.log")
	viper.SetDefault("logging.file_output.level", "debug")
}
