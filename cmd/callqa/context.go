package main

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/massimocristi1970/CallAnalysisApp/internal/config"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/logger"
)

// cliLogLevel keeps library chatter off the terminal unless --verbose is given.
const cliLogLevel = "warn"

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

// ensureConfig loads the configuration once: --config when given, else CALLQA_CONFIG.
// Environment overrides apply either way.
func (c *commandContext) ensureConfig(ctx context.Context) (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		var cfg *config.Config
		var err error
		if path != "" {
			cfg, err = config.LoadFile(ctx, path)
		} else {
			cfg, err = config.Load(ctx)
		}
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger points the global logger at w (stderr in practice).
func (c *commandContext) logger(w io.Writer) logger.Logger {
	level, format := cliLogLevel, ""
	if c.config != nil {
		format = c.config.LogFormat
		if c.verboseFlag != nil && *c.verboseFlag {
			level = c.config.LogLevel
		}
	}
	if err := logger.InitWithWriter(w, format); err != nil {
		return logger.Nop()
	}
	_ = logger.SetLevelString(level)
	return logger.Named("callqa")
}
