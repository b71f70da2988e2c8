package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vk/wrangler/internal/app"
)

const (
	appName   = "wrangler"
	envPrefix = "WRANGLER"
)

// newViper returns a viper instance with defaults and environment binding.
// Each command tree gets its own instance so tests stay isolated.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("log_format", "text")
	v.SetDefault("log_level", "info")
	v.SetDefault("workers", 4)
	v.SetDefault("fetch_timeout", "30s")
	v.SetDefault("settle_timeout", "5m")
	v.SetDefault("format", app.FormatText)
	v.SetDefault("listen", ":8080")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// readConfigFile loads the --config file, or wrangler.yaml from the working
// directory or the user config directory when present.
func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		return v.ReadInConfig()
	}
	v.SetConfigName(appName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", appName))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// bindFlags binds every flag of fs to the viper key of the same name with
// dashes replaced by underscores.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		_ = v.BindPFlag(key, f)
	})
}

// appConfig builds and validates the application configuration.
func appConfig(v *viper.Viper, workflowPath string) (*app.Config, error) {
	cfg, err := app.NewConfig(app.Config{
		WorkflowPath:    workflowPath,
		InputPaths:      v.GetStringMapString("input"),
		Outputs:         v.GetStringSlice("output"),
		Format:          strings.ToLower(v.GetString("format")),
		MaxRows:         v.GetInt("max_rows"),
		SQLitePath:      v.GetString("sqlite"),
		LogFormat:       strings.ToLower(v.GetString("log_format")),
		LogLevel:        strings.ToLower(v.GetString("log_level")),
		Workers:         v.GetInt("workers"),
		FetchTimeout:    v.GetDuration("fetch_timeout"),
		SettleTimeout:   v.GetDuration("settle_timeout"),
		ListenAddr:      v.GetString("listen"),
		HealthcheckPort: v.GetInt("healthcheck_port"),
	})
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}
