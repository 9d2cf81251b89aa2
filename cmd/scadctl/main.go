package main

import (
	"os"

	"scadd/internal/ctl"
)

func main() { os.Exit(ctl.Main()) }
