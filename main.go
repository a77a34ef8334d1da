package main

import "github.com/ashermasroor/SlowRvbBass/cmd"

func main() {
	cmd.Execute()
}
