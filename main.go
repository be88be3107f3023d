package main

import "github.com/frahmantamala/habilitation-management/cmd"

func main() {
	cmd.Execute()
}
