package main

import (
	"os"

	"github.com/sun1tar/todo-reminders/internal/cli"
)

var Version = "dev"

func main() {
	if err := cli.Execute(Version); err != nil {
		os.Exit(1)
	}
}
