// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "fieldscan")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "fieldscan.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)
	viper.SetDefault("main.log.rotationday", "Sunday")

	viper.SetDefault("analyzer.command", "")
	viper.SetDefault("analyzer.args", []string{})
	viper.SetDefault("analyzer.minconfidence", 0.1)
	viper.SetDefault("analyzer.timeout", 10*time.Minute)

	viper.SetDefault("input.path", ".")
	viper.SetDefault("input.folderpattern", "")
	viper.SetDefault("input.validate", true)

	viper.SetDefault("batch.workers", 1)

	viper.SetDefault("watch.settletime", 10*time.Second)
	viper.SetDefault("watch.poll", 2*time.Second)
	viper.SetDefault("watch.cooldown", 60*time.Second)

	viper.SetDefault("output.path", "results")
	viper.SetDefault("output.mastername", "master_results.csv")
	viper.SetDefault("output.automerge", true)

	viper.SetDefault("output.sqlite.enabled", false)
	viper.SetDefault("output.sqlite.path", "fieldscan.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "fieldscan")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "fieldscan")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", 3306)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "fieldscan/results")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", "localhost:9180")

	viper.SetDefault("notify.enabled", false)
	viper.SetDefault("notify.urls", []string{})

	viper.SetDefault("export.enabled", false)
	viper.SetDefault("export.local.enabled", false)
	viper.SetDefault("export.local.path", "export")
	viper.SetDefault("export.ftp.enabled", false)
	viper.SetDefault("export.ftp.host", "localhost")
	viper.SetDefault("export.ftp.port", 21)
	viper.SetDefault("export.ftp.timeout", 30*time.Second)
	viper.SetDefault("export.sftp.enabled", false)
	viper.SetDefault("export.sftp.host", "localhost")
	viper.SetDefault("export.sftp.port", 22)
	viper.SetDefault("export.sftp.timeout", 30*time.Second)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.debug", false)
}
