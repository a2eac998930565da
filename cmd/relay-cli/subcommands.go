package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"relay-cli/internal/config"
)

// configMain 管理持久化配置：path / show / set key=value。
func configMain(root rootArgs, args []string) {
	if err := runConfig(root, args, os.Stdout); err != nil {
		log.Fatalf("config: %v", err)
	}
}

func runConfig(root rootArgs, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	var cfgPath string
	fs.StringVar(&cfgPath, "config", "", "Path to config file (default ~/.relay/config.toml)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	verb := "show"
	if len(rest) > 0 {
		verb = rest[0]
		rest = rest[1:]
	}

	switch verb {
	case "path":
		path := cfgPath
		if path == "" {
			path = config.DefaultPath()
		}
		if path == "" {
			return errors.New("config path is empty and $HOME is not set")
		}
		fmt.Fprintln(out, path)
		return nil
	case "show":
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		fmt.Fprintf(out, "agent = %s\n", cfg.Agent)
		if len(cfg.AgentArgs) > 0 {
			fmt.Fprintf(out, "agent_args = %s\n", strings.Join(cfg.AgentArgs, " "))
		}
		if cfg.Workdir != "" {
			fmt.Fprintf(out, "workdir = %s\n", cfg.Workdir)
		}
		fmt.Fprintf(out, "source = %s\n", cfg.Source)
		return nil
	case "set":
		overrides := prependOverrides(root.overrides, rest)
		if len(overrides) == 0 {
			return errors.New("set requires at least one key=value pair")
		}
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = config.ApplyKVOverrides(cfg, overrides)
		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintln(out, "Config saved.")
		return nil
	default:
		return fmt.Errorf("unknown config subcommand %q (want path, show or set)", verb)
	}
}
