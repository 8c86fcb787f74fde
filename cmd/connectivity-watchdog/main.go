// connectivity-watchdog restarts the network service of a kiosk device
// when internet connectivity is lost.
package main

import (
	"os"

	"github.com/amartya2002/connectivity-watchdog/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
