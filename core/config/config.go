package config

import (
	"reflect"
	"strings"

	"github.com/MisterSynergy/rfc-protect/core/database"
	"github.com/MisterSynergy/rfc-protect/core/logger"
	"github.com/MisterSynergy/rfc-protect/core/server"
	"github.com/MisterSynergy/rfc-protect/core/storage"
	"github.com/MisterSynergy/rfc-protect/feature/protect"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Protect holds the reconciler policy and collaborator settings.
	Protect protect.Config `mapstructure:"protect"`
	// Database holds the connection details of the wiki replica database.
	Database database.Config `mapstructure:"database"`
	// Storage holds the report archive (S3/MinIO) settings.
	Storage storage.Config `mapstructure:"storage"`
	// Server holds configuration for the report HTTP server.
	Server server.Config `mapstructure:"server"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
}

// LoadConfig loads configuration from environment variables and .env file,
// and validates the protection policy. An invalid policy fails the load;
// no partial run may start on a broken threshold ordering.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. PROTECT_POLICY_ADD_LIMIT -> protect.policy.add_limit)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Protect.Policy.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
