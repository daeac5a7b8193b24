package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
	"github.com/voterlookup/epic-extractor/internal/config"
	"github.com/voterlookup/epic-extractor/pkg/log"
	"go.uber.org/zap"
)

const (
	jsonFormat = "json"
	yamlFormat = "yaml"
)

var (
	legalOutputTypes = []string{jsonFormat, yamlFormat}
)

type GlobalOptions struct {
	ConfigFile string
	Output     string

	config *config.Config
	undo   func()
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		Output: jsonFormat,
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigFile, "config", "c", o.ConfigFile, "Path to configuration file")
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

// Complete loads the configuration and installs the global logger.
func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return fmt.Errorf("reading configuration: %w", err)
	}
	o.config = cfg

	logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel))
	o.undo = zap.ReplaceGlobals(logger)
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	if !funk.ContainsString(legalOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}
	return nil
}

func (o *GlobalOptions) Config() *config.Config {
	return o.config
}

func (o *GlobalOptions) Close() {
	_ = zap.L().Sync()
	if o.undo != nil {
		o.undo()
	}
}
