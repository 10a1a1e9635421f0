// Public domain.

package main

import "github.com/soniakeys/mapds/internal/mdprog"

func main() {
	mdprog.Main()
}
