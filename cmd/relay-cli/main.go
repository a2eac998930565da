package main

import (
	"os"
	"path/filepath"
	"strings"

	"relay-cli/internal/child"
	"relay-cli/internal/config"
	"relay-cli/internal/logger"
	"relay-cli/internal/session"
	"relay-cli/internal/tui"
)

var log = logger.Named("cli")

func main() {
	logger.Configure()

	root, rest, err := parseRootArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("parse args: %v", err)
	}
	if len(rest) > 0 {
		switch rest[0] {
		case "exec":
			execMain(root, rest[1:])
			return
		case "config":
			configMain(root, rest[1:])
			return
		}
	}

	runInteractive(root, rest)
}

func runInteractive(root rootArgs, args []string) {
	fs, cli := newInteractiveFlagSet("relay-cli")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse args: %v", err)
	}
	cli.finalizePrompt(fs)
	cli.configOverrides = stringSlice(prependOverrides(root.overrides, []string(cli.configOverrides)))

	cfg, rt := loadConfig(cli)

	if logFile, _, err := logger.SetupFile(rt.LogPath); err != nil {
		log.Warnf("failed to initialize log file: %v", err)
	} else {
		defer logFile.Close()
	}

	protocolLog := logger.Named("protocol")
	if entry, closer, _, err := logger.SetupComponentFile("protocol", rt.ProtocolLogPath); err != nil {
		log.Warnf("failed to initialize protocol log (%s): %v", rt.ProtocolLogPath, err)
	} else {
		protocolLog = entry
		if closer != nil {
			defer closer.Close()
		}
	}

	workdir := resolveWorkdir(cfg.Workdir)
	sess := session.New(session.Options{Log: protocolLog})
	spawn := func(onData func(string), onExit func(int)) (*child.Process, error) {
		return child.Start(child.Spec{
			Bin:     cfg.Agent,
			Args:    cfg.AgentArgs,
			Workdir: workdir,
			OnData:  onData,
			OnExit:  onExit,
		})
	}

	if _, err := tui.Run(tui.Options{
		Session:       sess,
		Spawn:         spawn,
		Agent:         cfg.Agent,
		Workdir:       workdir,
		InitialPrompt: cli.prompt,
	}); err != nil {
		log.Fatalf("program exit: %v", err)
	}
}

func loadConfig(cli *interactiveArgs) (config.Config, runtimeConfig) {
	cfg, err := config.Load(cli.cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg = config.ApplyKVOverrides(cfg, []string(cli.configOverrides))
	if strings.TrimSpace(cli.agentOverride) != "" {
		cfg.Agent = strings.TrimSpace(cli.agentOverride)
	}
	if strings.TrimSpace(cli.workdir) != "" {
		cfg.Workdir = cli.workdir
	}

	rt := defaultRuntimeConfig()
	rt = applyRuntimeKVOverrides(rt, []string(cli.configOverrides))
	return cfg, rt
}

func resolveWorkdir(input string) string {
	if strings.TrimSpace(input) == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		return wd
	}
	if filepath.IsAbs(input) {
		return input
	}
	wd, err := os.Getwd()
	if err != nil {
		return input
	}
	return filepath.Join(wd, input)
}
