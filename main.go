package main

import "github.com/shreekarashastry/miningsim/cmd/miningsim"

func main() {
	miningsim.Execute()
}
