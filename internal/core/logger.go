package core

import (
	"github.com/labstack/gommon/log"

	"github.com/udovin/peerreview/internal/config"
)

func logLevel(level config.LogLevel) log.Lvl {
	if level == 0 {
		return log.INFO
	}
	return log.Lvl(level)
}
