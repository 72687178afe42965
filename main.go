package main

import "github.com/frahmantamala/credential-vault/cmd"

func main() {
	cmd.Execute()
}
