package main

import "massnet.org/massdigest/cmd/massdigest/cmd"

func main() {
	cmd.Execute()
}
