package main

import (
	"tmsassist/cmd/tmsctl/commands"
	"tmsassist/internal/components/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
