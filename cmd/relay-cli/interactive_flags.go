package main

import (
	"flag"
	"strings"
)

// interactiveArgs captures flags shared by interactive entrypoints.
type interactiveArgs struct {
	cfgPath         string
	agentOverride   string
	workdir         string
	prompt          string
	configOverrides stringSlice
}

func newInteractiveFlagSet(name string) (*flag.FlagSet, *interactiveArgs) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	args := &interactiveArgs{}

	fs.StringVar(&args.cfgPath, "config", "", "Path to config file (default ~/.relay/config.toml)")
	fs.StringVar(&args.agentOverride, "agent", "", "Agent binary override")
	fs.StringVar(&args.agentOverride, "a", "", "Alias for --agent")
	fs.StringVar(&args.workdir, "cd", "", "Working directory for the agent")
	fs.StringVar(&args.workdir, "C", "", "Alias for --cd")
	fs.StringVar(&args.prompt, "prompt", "", "Initial prompt")
	fs.Var(&args.configOverrides, "c", "Override config value key=value (repeatable)")

	return fs, args
}

func (i *interactiveArgs) finalizePrompt(fs *flag.FlagSet) {
	if i.prompt == "" && fs.NArg() > 0 {
		i.prompt = strings.Join(fs.Args(), " ")
	}
}
