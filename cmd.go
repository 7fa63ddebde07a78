package main

import "github.com/stupid-simple/assets/config"

type Command struct {
	Version struct{} `cmd:"" help:"Print version information."`
	Serve   struct {
		Config        string `help:"config file path" short:"c" required:""`
		WatchInterval int    `help:"seconds between config file checks, 0 to disable reloading" default:"10"`
	} `cmd:"" help:"Serve the configured asset mounts."`
	Bundle struct {
		Source      string              `help:"source directory path" short:"s" required:""`
		Dest        string              `help:"destination zip file path" short:"D" required:""`
		Prefix      string              `help:"directory inside the bundle the files are stored under"`
		MaxFileSize config.SizeArgument `help:"skip files larger than this size"`
		DryRun      bool                `help:"don't write any files, just print the output"`
	} `cmd:"" help:"Pack a directory into a zip bundle that can be served."`
}
