package util

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imlxw/Chronicle-Map/lib/chmap"
	"github.com/imlxw/Chronicle-Map/lib/engine"
	"github.com/imlxw/Chronicle-Map/lib/serial"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupMapFlags adds the shared map/engine configuration flags to a command
func SetupMapFlags(cmd *cobra.Command) {
	key := "segments"
	cmd.PersistentFlags().Int(key, 0, WrapString("Number of lock segments (0 = one per CPU)"))

	key = "segment-size"
	cmd.PersistentFlags().Int(key, 64, WrapString("Slab size per segment in MB"))

	key = "chunk-size"
	cmd.PersistentFlags().Int(key, 64, WrapString("Allocation granularity in bytes"))

	key = "alignment"
	cmd.PersistentFlags().Int(key, 8, WrapString("Value start alignment in bytes (power of two, 1 = none)"))

	key = "put-returns-null"
	cmd.PersistentFlags().Bool(key, false, WrapString("Skip decoding previous values on put"))

	key = "remove-returns-null"
	cmd.PersistentFlags().Bool(key, false, WrapString("Skip decoding previous values on remove"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("chmap")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetEngineOptions reads the engine configuration from viper
func GetEngineOptions() *engine.Options {
	return &engine.Options{
		Segments:     viper.GetInt("segments"),
		SegmentBytes: viper.GetInt("segment-size") << 20,
		ChunkSize:    viper.GetInt("chunk-size"),
		Alignment:    viper.GetInt("alignment"),
	}
}

// NewMap creates a string/bytes map from the viper configuration
func NewMap(name string) (*chmap.Map[string, []byte], error) {
	return chmap.New(chmap.Options[string, []byte]{
		Name:              name,
		KeyCodec:          serial.NewStringCodec(),
		ValueCodec:        serial.NewBytesCodec(),
		EngineOptions:     GetEngineOptions(),
		PutReturnsNull:    viper.GetBool("put-returns-null"),
		RemoveReturnsNull: viper.GetBool("remove-returns-null"),
	})
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
