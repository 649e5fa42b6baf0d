package database

// Config holds configuration for the replica database connection.
type Config struct {
	// Host is the replica host, e.g. wikidatawiki.analytics.db.svc.wikimedia.cloud.
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the replica port.
	Port int `mapstructure:"port" default:"3306"`
	// User is the replica user.
	User string `mapstructure:"user" default:""`
	// Password is the replica password.
	Password string `mapstructure:"password" default:""`
	// Name is the database name, e.g. wikidatawiki_p.
	Name string `mapstructure:"name" default:"wikidatawiki_p"`
	// TimeoutSeconds is the connection and I/O timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
