package main

import "github.com/SblYMblK/FitRose/cmd/fitrose"

func main() {
	fitrose.Execute()
}
