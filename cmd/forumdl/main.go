package main

import (
	"forumdl/cmd/forumdl/commands"
	"forumdl/pkg/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
