// wtvc-ctl sends control commands to a running wtvc daemon.
//
//	wtvc-ctl status
//	wtvc-ctl press / release
//	wtvc-ctl say "text to speak"
//	wtvc-ctl bind
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	cli "github.com/spf13/pflag"

	"github.com/Le-Camarade/War-Thunder-Voice-Chat/internal/ipc"
)

func main() {
	socketPath := cli.String("socket", ipc.DefaultSocketPath, "control socket path")
	cli.Parse()

	args := cli.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: wtvc-ctl [--socket path] <press|release|say|status|bind> [arg]")
		os.Exit(2)
	}
	cmd := args[0]
	arg := ""
	if len(args) > 1 {
		arg = args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := ipc.Send(ctx, *socketPath, cmd, arg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(reply)
}
