package main

import (
	"fmt"
	"os"

	"github.com/xv6go/xv6go/cmd"
)

func main() {
	xv6goCmd := cmd.SetupCLI()
	if err := xv6goCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
