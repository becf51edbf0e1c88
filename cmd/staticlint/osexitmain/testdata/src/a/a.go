package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("starting")
	defer func() {
		os.Exit(3)
	}()
	if len(os.Args) > 5 {
		os.Exit(2) // want "os.Exit called directly in main.main"
	}
	os.Exit(run()) // want "os.Exit called directly in main.main"
}

func run() int {
	os.Exit(1)
	return 0
}
