package main

import "github.com/coreapfs/apfsro/cmd/apfsro"

func main() {
	apfsro.Execute()
}
