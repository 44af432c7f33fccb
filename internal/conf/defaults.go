// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "occurrence-go")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/occurrence.log")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "occurrence.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "occurrence")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "occurrence")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("worms.enabled", true)
	viper.SetDefault("worms.endpoint", "https://www.marinespecies.org/rest")
	viper.SetDefault("worms.timeoutsec", 10)
	viper.SetDefault("worms.cachettlmin", 60)
	viper.SetDefault("worms.ratelimitms", 200)
	viper.SetDefault("worms.batchsize", 50)
	viper.SetDefault("worms.maxretries", 3)
	viper.SetDefault("worms.maxinflight", 4)

	viper.SetDefault("analysis.coordinateprecision", 1)
	viper.SetDefault("analysis.previewrows", 10)
	viper.SetDefault("analysis.taxonrank", "species")
}
