package main

import "github.com/evomaxseipio/evotrack-backend/cmd"

func main() {
	cmd.Execute()
}
