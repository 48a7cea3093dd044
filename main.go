package main

import (
	"github.com/aleksclark/editorbind/internal/cmd"
)

func main() {
	cmd.Execute()
}
