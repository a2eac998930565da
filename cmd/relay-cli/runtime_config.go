package main

import (
	"strconv"
	"strings"

	"relay-cli/internal/logger"
)

type runtimeConfig struct {
	LogPath         string
	ProtocolLogPath string
	ExecTimeoutSecs int
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		LogPath:         logger.DefaultLogPath,
		ProtocolLogPath: logger.DefaultProtocolLogPath,
		ExecTimeoutSecs: 600,
	}
}

func applyRuntimeKVOverrides(cfg runtimeConfig, overrides []string) runtimeConfig {
	for _, raw := range overrides {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		switch key {
		case "log_path", "log-path":
			cfg.LogPath = val
		case "protocol_log_path", "protocol-log-path":
			cfg.ProtocolLogPath = val
		case "exec_timeout_seconds", "exec-timeout", "timeout":
			if n, err := strconv.Atoi(val); err == nil && n > 0 {
				cfg.ExecTimeoutSecs = n
			}
		}
	}
	return cfg
}
