package cmd

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing tvrec configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the effective configuration",
	Long: `Dump the effective configuration in YAML format.

With no config file or environment overrides this prints the defaults, which
can be redirected to a file to create a configuration template:

  tvrec config dump > config.yaml

Environment variables use the TVREC_ prefix and underscores for nesting.
Example: database.dsn -> TVREC_DATABASE_DSN`,
	Args: cobra.NoArgs,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap converts a config struct to a map keyed by mapstructure tags,
// formatting durations for human readability.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		key := typ.Field(i).Tag.Get("mapstructure")
		if key == "" {
			key = typ.Field(i).Name
		}

		switch fv := field.Interface().(type) {
		case time.Duration:
			result[key] = fv.String()
		default:
			if field.Kind() == reflect.Struct {
				result[key] = toMap(fv)
			} else {
				result[key] = fv
			}
		}
	}
	return result
}

func runConfigDump(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	yamlData, err := yaml.Marshal(toMap(cfg))
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "# tvrec configuration")
	fmt.Fprintln(out, "# Duration format: 500ms, 30s, 1h")
	fmt.Fprintln(out, "#")
	fmt.Fprintln(out, "# Environment variable overrides:")
	fmt.Fprintln(out, "#   TVREC_DATABASE_DSN, TVREC_DATABASE_IDLE_TIMEOUT")
	fmt.Fprintln(out, "#   TVREC_STORAGE_BASE_DIR, TVREC_FFMPEG_BINARY_PATH")
	fmt.Fprintln(out, "#   TVREC_THUMBNAIL_SIZE, TVREC_THUMBNAIL_POSITION")
	fmt.Fprintln(out, "#   TVREC_LOGGING_LEVEL, TVREC_LOGGING_FORMAT")
	fmt.Fprintln(out)
	_, err = fmt.Fprint(out, string(yamlData))
	return err
}
