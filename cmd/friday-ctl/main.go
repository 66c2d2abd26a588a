package main

import (
	"fmt"
	"os"
	"strings"

	cli "github.com/spf13/pflag"

	"friday/internal/ipc"
	"friday/internal/shell"
)

func main() {
	socket := cli.StringP("socket", "s", "", "Control socket path (env FRIDAY_SOCKET)")
	cli.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: friday-ctl [-s socket] listen | ask <text...> | state")
		cli.PrintDefaults()
	}
	cli.Parse()

	path := *socket
	if path == "" {
		path = os.Getenv("FRIDAY_SOCKET")
	}
	if path == "" {
		path = ipc.DefaultSocketPath
	}

	args := cli.Args()
	if len(args) == 0 {
		cli.Usage()
		os.Exit(2)
	}

	msg := ipc.ControlMessage{Cmd: args[0]}
	if msg.Cmd == ipc.CmdAsk {
		msg.Text = strings.Join(args[1:], " ")
	}

	reply, err := ipc.SendCommand(path, msg)
	if err != nil {
		fmt.Println("friday-daemon not running:", err)
		os.Exit(1)
	}

	if reply.State != nil {
		fmt.Println(shell.Format(*reply.State))
	}
	if reply.Error != "" {
		fmt.Println("error:", reply.Error)
		os.Exit(1)
	}
}
